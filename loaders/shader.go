// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loaders

import (
	"encoding/binary"
	"errors"
	"strings"

	"github.com/devblok/karman/resource"
)

// ShaderStage represents the pipeline stage a shader is compiled for.
type ShaderStage int

// Identifies shader objects with their stages
const (
	VertexShaderStage ShaderStage = iota
	FragmentShaderStage
	UnknownShaderStage
)

const shaderSuffix = ".spv"

// shader loader errors
var (
	ErrNotShader = errors.New("file does not follow the name.stage.spv convention")
	ErrBadShader = errors.New("shader binary is not valid SPIR-V")
)

// spirvMagic is the first word of every valid SPIR-V module.
const spirvMagic = 0x07230203

// Shader is a compiled SPIR-V shader ready for pipeline creation.
type Shader struct {
	Name  string
	Stage ShaderStage
	Words []uint32
}

// ShaderLoader loads compiled SPIR-V shaders. The file name carries
// the stage: the first dot separated node is the shader name, the
// second its stage (vert or frag) and the .spv extension marks the
// file as compiled.
type ShaderLoader struct{}

// Dependencies implements resource.SyncLoader.
func (ShaderLoader) Dependencies(path string, file resource.File, params interface{}) ([]resource.ID, error) {
	return nil, nil
}

// Load implements resource.SyncLoader.
func (ShaderLoader) Load(path string, file resource.File, params interface{}) (interface{}, error) {
	name, stage, err := shaderNameAndStage(path)
	if err != nil {
		return nil, err
	}
	data, err := file.ReadAll()
	if err != nil {
		return nil, err
	}
	words, err := sliceUint32(data)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 || words[0] != spirvMagic {
		return nil, ErrBadShader
	}
	return &Shader{Name: name, Stage: stage, Words: words}, nil
}

func shaderNameAndStage(path string) (string, ShaderStage, error) {
	base := path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if !strings.HasSuffix(base, shaderSuffix) {
		return "", UnknownShaderStage, ErrNotShader
	}
	nodes := strings.Split(strings.TrimSuffix(base, shaderSuffix), ".")
	if len(nodes) != 2 {
		return "", UnknownShaderStage, ErrNotShader
	}
	switch nodes[1] {
	case "vert":
		return nodes[0], VertexShaderStage, nil
	case "frag":
		return nodes[0], FragmentShaderStage, nil
	default:
		return "", UnknownShaderStage, ErrNotShader
	}
}

// sliceUint32 converts shader bytes into the words the pipeline
// expects them in.
func sliceUint32(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, ErrBadShader
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}
