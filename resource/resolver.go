// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/devblok/karman/utility/kar"
)

// DirResolver resolves resource paths against a root directory on the
// local filesystem.
type DirResolver struct {
	Root string
}

// Resolve implements Resolver.
func (r DirResolver) Resolve(path string) (File, error) {
	full := filepath.Join(r.Root, filepath.FromSlash(path))
	if _, err := os.Stat(full); err != nil {
		return nil, err
	}
	return &osFile{name: path, full: full}, nil
}

type osFile struct {
	name string
	full string
}

func (f *osFile) Name() string {
	return f.name
}

func (f *osFile) ReadAll() ([]byte, error) {
	return ioutil.ReadFile(f.full)
}

// NewArchiveResolver creates a Resolver backed by a kar archive.
func NewArchiveResolver(archive *kar.Archive) *ArchiveResolver {
	return &ArchiveResolver{archive: archive}
}

// ArchiveResolver resolves resource paths inside a kar archive.
type ArchiveResolver struct {
	archive *kar.Archive
}

// Resolve implements Resolver.
func (r *ArchiveResolver) Resolve(path string) (File, error) {
	if !r.archive.Contains(path) {
		return nil, os.ErrNotExist
	}
	return &archiveFile{name: path, archive: r.archive}, nil
}

type archiveFile struct {
	name    string
	archive *kar.Archive
}

func (f *archiveFile) Name() string {
	return f.name
}

func (f *archiveFile) ReadAll() ([]byte, error) {
	return f.archive.ReadAll(f.name)
}

// MapResolver serves contents straight from memory. Mostly useful in
// tests and for small built-in resources.
type MapResolver map[string][]byte

// Resolve implements Resolver.
func (r MapResolver) Resolve(path string) (File, error) {
	data, ok := r[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return MemFile{FileName: path, Data: data}, nil
}

// MemFile is a File held fully in memory.
type MemFile struct {
	FileName string
	Data     []byte
}

// Name implements File.
func (f MemFile) Name() string {
	return f.FileName
}

// ReadAll implements File.
func (f MemFile) ReadAll() ([]byte, error) {
	return f.Data, nil
}
