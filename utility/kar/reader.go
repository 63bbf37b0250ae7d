// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"io"
	"io/ioutil"

	"github.com/pierrec/lz4"
	"golang.org/x/exp/mmap"
)

// Open opens the kar archive read from r. It will also check if the
// file is actually a kar archive, will return an error when the file
// is incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	ar := Archive{
		reader: r,
		index:  make(map[string]IndexEntry),
	}

	magicBytes := make([]byte, MagicLength)
	if num, err := r.ReadAt(magicBytes, 0); err != nil {
		return nil, err
	} else if num < MagicLength || string(magicBytes) != string(magic[:]) {
		return nil, ErrFileFormat
	}

	headerSizeBytes := make([]byte, HeaderSizeNumberLength)
	if num, err := r.ReadAt(headerSizeBytes, MagicLength); err != nil {
		return nil, err
	} else if num < HeaderSizeNumberLength {
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToint64(headerSizeBytes)
	if err != nil || headerSize <= 0 {
		return nil, ErrFileFormat
	}

	headerBytes := make([]byte, headerSize)
	if num, err := r.ReadAt(headerBytes, MagicLength+HeaderSizeNumberLength); err != nil {
		return nil, err
	} else if int64(num) < headerSize {
		return nil, ErrFileFormat
	}

	if err := gobDecode(&ar.header, headerBytes); err != nil {
		return nil, ErrFileFormat
	}

	ar.dataStart = MagicLength + HeaderSizeNumberLength + headerSize
	for _, entry := range ar.header.Index {
		ar.index[entry.Name] = entry
	}
	return &ar, nil
}

// OpenFile memory maps the file with the given name and opens it as a
// kar archive. Close the archive to unmap it.
func OpenFile(name string) (*Archive, error) {
	r, err := mmap.Open(name)
	if err != nil {
		return nil, err
	}
	ar, err := Open(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	ar.closer = r
	return ar, nil
}

// Archive provides concurrent io for a kar file, and can provide an
// io.Reader for each file separately to perform actions on.
type Archive struct {
	reader    io.ReaderAt
	closer    io.Closer
	header    Header
	index     map[string]IndexEntry
	dataStart int64
}

// Header returns the decoded archive header.
func (a *Archive) Header() Header {
	return a.header
}

// Index returns the archive's file index.
func (a *Archive) Index() []IndexEntry {
	return a.header.Index
}

// Contains reports whether a file with the given name is in the
// archive.
func (a *Archive) Contains(name string) bool {
	_, ok := a.index[name]
	return ok
}

// ReadAll returns the entire decompressed contents of a file with a
// given name.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != r.entry.Size {
		return nil, ErrIOMisc
	}
	return data, nil
}

// Open returns a Reader for a file in the Archive.
func (a *Archive) Open(name string) (*Reader, error) {
	entry, ok := a.index[name]
	if !ok {
		return nil, ErrNotFound
	}
	section := io.NewSectionReader(a.reader, a.dataStart+entry.Offset, entry.CompressedSize)
	return &Reader{
		entry:      entry,
		decompress: lz4.NewReader(section),
	}, nil
}

// Close releases resources held by the archive, the memory map when
// it was opened with OpenFile. Readers must not be used afterwards.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Reader is a reader for a single file in an Archive. Abstracts away
// the location that needs to be known.
type Reader struct {
	entry      IndexEntry
	decompress *lz4.Reader
}

// Read reads already decompressed data.
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.decompress.Read(p)
}

// Size returns the decompressed size of the file.
func (r *Reader) Size() int64 {
	return r.entry.Size
}
