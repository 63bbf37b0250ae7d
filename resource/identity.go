// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ID identifies one requested resource. Two IDs with the same type,
// the same path after separator normalization and parameter values
// that compare equal name the same cache entry, regardless of how the
// request was spelled.
type ID struct {
	Type   string
	Path   string
	Params interface{}
}

// NewID builds an ID with the path canonicalized to forward slashes
// and redundant elements cleaned out.
func NewID(typ, path string, params interface{}) ID {
	return ID{
		Type:   typ,
		Path:   normalizePath(path),
		Params: params,
	}
}

func (id ID) String() string {
	if id.Params == nil {
		return id.Type + ":" + id.Path
	}
	return fmt.Sprintf("%s:%s?%+v", id.Type, id.Path, id.Params)
}

func (id ID) validate() error {
	if id.Type == "" || id.Path == "" || id.Path == "." {
		return ErrInvalidArgument
	}
	return nil
}

// key is the map form of an ID. Parameter values are compared through
// their formatted value, so two requests carrying equal but distinct
// parameter structs still collide on one entry.
type key struct {
	typ    string
	path   string
	params string
}

func (id ID) key() key {
	k := key{typ: id.Type, path: id.Path}
	if id.Params != nil {
		k.params = fmt.Sprintf("%+v", id.Params)
	}
	return k
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return p
	}
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))
}

// dedup drops duplicate IDs, keeping the first occurrence of each.
func dedup(ids []ID) []ID {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[key]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id.key()]; ok {
			continue
		}
		seen[id.key()] = struct{}{}
		out = append(out, id)
	}
	return out
}
