package resource

import "testing"

func TestNewIDNormalizesPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"textures/grid.png", "textures/grid.png"},
		{"textures//grid.png", "textures/grid.png"},
		{"textures/../textures/grid.png", "textures/grid.png"},
		{"./textures/grid.png", "textures/grid.png"},
		{"  textures/grid.png", "textures/grid.png"},
	}
	for _, tc := range cases {
		if got := NewID("image", tc.in, nil); got.Path != tc.want {
			t.Errorf("NewID(%q).Path = %q, want %q", tc.in, got.Path, tc.want)
		}
	}
}

func TestIDKeyStructural(t *testing.T) {
	type params struct {
		Mipmaps bool
		Pitch   int
	}

	a := NewID("image", "textures//grid.png", params{Mipmaps: true, Pitch: 64})
	b := NewID("image", "textures/grid.png", params{Mipmaps: true, Pitch: 64})
	if a.key() != b.key() {
		t.Error("equal identities produced different keys")
	}

	c := NewID("image", "textures/grid.png", params{Mipmaps: false, Pitch: 64})
	if a.key() == c.key() {
		t.Error("different parameter values produced the same key")
	}

	d := NewID("raw", "textures/grid.png", params{Mipmaps: true, Pitch: 64})
	if a.key() == d.key() {
		t.Error("different types produced the same key")
	}

	e := NewID("image", "textures/grid.png", nil)
	if a.key() == e.key() {
		t.Error("missing parameters produced the same key")
	}
}

func TestIDValidate(t *testing.T) {
	if err := NewID("", "a.png", nil).validate(); err != ErrInvalidArgument {
		t.Errorf("expected ErrInvalidArgument, got: %v", err)
	}
	if err := NewID("image", "", nil).validate(); err != ErrInvalidArgument {
		t.Errorf("expected ErrInvalidArgument, got: %v", err)
	}
	if err := NewID("image", "a.png", nil).validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDedupKeepsFirstSeenOrder(t *testing.T) {
	ids := []ID{
		NewID("raw", "a", nil),
		NewID("raw", "b", nil),
		NewID("raw", "a", nil),
		NewID("raw", "c", nil),
		NewID("raw", "b", nil),
	}
	out := dedup(ids)
	if len(out) != 3 {
		t.Fatalf("incorrect length after dedup: %d", len(out))
	}
	for i, want := range []string{"a", "b", "c"} {
		if out[i].Path != want {
			t.Errorf("position %d: got %q, want %q", i, out[i].Path, want)
		}
	}
}
