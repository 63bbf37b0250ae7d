package loaders_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/devblok/karman/loaders"
	"github.com/devblok/karman/resource"
)

func newTestManager(t *testing.T, contents map[string][]byte) *resource.Manager {
	t.Helper()

	mgr, err := resource.NewManager(resource.Configuration{
		Resolver: resource.MapResolver(contents),
	})
	if err != nil {
		t.Fatal(err)
	}
	mgr.RegisterLoader(loaders.RawType, loaders.RawLoader{})
	mgr.RegisterLoader(loaders.ShaderType, loaders.ShaderLoader{})
	mgr.RegisterLoader(loaders.ManifestType, loaders.ManifestLoader{})
	mgr.RegisterAsyncLoader(loaders.ImageType, loaders.ImageLoader{})
	mgr.RegisterAsyncLoader(loaders.ModelType, loaders.ModelLoader{})
	return mgr
}

func spirvBytes(words []uint32) []byte {
	buf := bytes.NewBuffer([]byte{})
	binary.Write(buf, binary.LittleEndian, words)
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	buf := bytes.NewBuffer([]byte{})
	if err := png.Encode(buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRawLoader(t *testing.T) {
	mgr := newTestManager(t, map[string][]byte{
		"blob.bin": []byte("some bytes"),
	})

	if err := mgr.Schedule(loaders.RawType, "blob.bin", nil); err != nil {
		t.Fatal(err)
	}
	if err := mgr.RunToCompletion(); err != nil {
		t.Fatal(err)
	}

	res, err := mgr.Get(loaders.RawType, "blob.bin", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(res.(*loaders.Raw).Data) != "some bytes" {
		t.Error("raw contents do not match up")
	}
}

func TestShaderLoader(t *testing.T) {
	words := []uint32{0x07230203, 0x00010000, 0xdeadbeef}
	mgr := newTestManager(t, map[string][]byte{
		"shaders/basic.vert.spv": spirvBytes(words),
		"shaders/basic.frag.spv": spirvBytes(words),
		"shaders/noext":          spirvBytes(words),
		"shaders/bad.vert.spv":   []byte("xyz"),
	})

	if err := mgr.Schedule(loaders.ShaderType, "shaders/basic.vert.spv", nil); err != nil {
		t.Fatal(err)
	}
	if err := mgr.RunToCompletion(); err != nil {
		t.Fatal(err)
	}

	res, err := mgr.Get(loaders.ShaderType, "shaders/basic.vert.spv", nil)
	if err != nil {
		t.Fatal(err)
	}
	shader := res.(*loaders.Shader)
	if shader.Stage != loaders.VertexShaderStage {
		t.Errorf("incorrect stage: %v", shader.Stage)
	}
	if shader.Name != "basic" {
		t.Errorf("incorrect name: %s", shader.Name)
	}
	if len(shader.Words) != len(words) || shader.Words[2] != 0xdeadbeef {
		t.Error("shader words do not match up")
	}
}

func TestShaderLoaderRejectsBadNames(t *testing.T) {
	mgr := newTestManager(t, map[string][]byte{
		"shaders/noext": spirvBytes([]uint32{0x07230203}),
	})

	if err := mgr.Schedule(loaders.ShaderType, "shaders/noext", nil); err != nil {
		t.Fatal(err)
	}
	err := mgr.RunToCompletion()
	if err == nil {
		t.Fatal("expected a load failure")
	}
	var lerr resource.LoadError
	if !errors.As(err, &lerr) || lerr.Err != loaders.ErrNotShader {
		t.Errorf("expected ErrNotShader, got: %v", err)
	}
}

func TestShaderLoaderRejectsTruncated(t *testing.T) {
	mgr := newTestManager(t, map[string][]byte{
		"shaders/bad.vert.spv": []byte("xyz"),
	})

	if err := mgr.Schedule(loaders.ShaderType, "shaders/bad.vert.spv", nil); err != nil {
		t.Fatal(err)
	}
	if err := mgr.RunToCompletion(); err == nil {
		t.Fatal("expected a load failure")
	}
}

func TestImageLoader(t *testing.T) {
	mgr := newTestManager(t, map[string][]byte{
		"textures/grid.png": pngBytes(t, 8, 4),
	})

	if err := mgr.Schedule(loaders.ImageType, "textures/grid.png", nil); err != nil {
		t.Fatal(err)
	}
	if err := mgr.RunToCompletion(); err != nil {
		t.Fatal(err)
	}

	res, err := mgr.Get(loaders.ImageType, "textures/grid.png", nil)
	if err != nil {
		t.Fatal(err)
	}
	img := res.(*loaders.Image)
	if img.Width != 8 || img.Height != 4 {
		t.Errorf("incorrect dimensions: %dx%d", img.Width, img.Height)
	}
	if img.Stride != 4*8 {
		t.Errorf("incorrect stride: %d", img.Stride)
	}
	if len(img.Pix) != 4*8*4 {
		t.Errorf("incorrect pixel buffer size: %d", len(img.Pix))
	}
}

func TestImageLoaderRowPitch(t *testing.T) {
	mgr := newTestManager(t, map[string][]byte{
		"textures/grid.png": pngBytes(t, 8, 4),
	})

	params := loaders.ImageParams{RowPitch: 64}
	if err := mgr.Schedule(loaders.ImageType, "textures/grid.png", params); err != nil {
		t.Fatal(err)
	}
	if err := mgr.RunToCompletion(); err != nil {
		t.Fatal(err)
	}

	res, err := mgr.Get(loaders.ImageType, "textures/grid.png", params)
	if err != nil {
		t.Fatal(err)
	}
	if img := res.(*loaders.Image); img.Stride != 64 {
		t.Errorf("row pitch not applied, stride: %d", img.Stride)
	}
}

func TestManifestLoaderPullsDependencies(t *testing.T) {
	manifest := []byte(`{
		"name": "level1",
		"assets": [
			{"type": "raw", "path": "blob.bin"},
			{"type": "shader", "path": "shaders/basic.vert.spv"}
		]
	}`)
	mgr := newTestManager(t, map[string][]byte{
		"level1.json":            manifest,
		"blob.bin":               []byte("payload"),
		"shaders/basic.vert.spv": spirvBytes([]uint32{0x07230203, 1}),
	})

	if err := mgr.Schedule(loaders.ManifestType, "level1.json", nil); err != nil {
		t.Fatal(err)
	}
	if err := mgr.RunToCompletion(); err != nil {
		t.Fatal(err)
	}

	if mgr.LoadedCount() != 3 {
		t.Fatalf("incorrect loaded count: %d", mgr.LoadedCount())
	}
	if !mgr.IsLoaded(loaders.RawType, "blob.bin", nil) {
		t.Error("manifest dependency was not loaded")
	}

	res, err := mgr.Get(loaders.ManifestType, "level1.json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.(*loaders.Manifest); got.Name != "level1" || len(got.Assets) != 2 {
		t.Errorf("manifest contents do not match up: %+v", got)
	}

	// Dropping the manifest drops everything it pulled in.
	if err := mgr.Unload(loaders.ManifestType, "level1.json", nil); err != nil {
		t.Fatal(err)
	}
	if mgr.LoadedCount() != 0 {
		t.Errorf("dependencies leaked after unload: %d", mgr.LoadedCount())
	}
}
