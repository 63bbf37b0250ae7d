// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devblok/karman/utility/kar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func buildTestArchive(t *testing.T) []byte {
	t.Helper()

	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := builder.Add("test", bytes.NewReader([]byte(testString1))); err != nil {
		t.Fatal(err)
	}
	if err := builder.Add("test2", bytes.NewReader([]byte(testString2))); err != nil {
		t.Fatal(err)
	}

	buf := bytes.NewBuffer([]byte{})
	if written, err := builder.WriteTo(buf); err != nil {
		t.Fatal(err)
	} else {
		t.Logf("written %d", written)
	}
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	ar, err := kar.Open(bytes.NewReader(buildTestArchive(t)))
	if err != nil {
		t.Fatal(err)
	}

	f, err := ar.Open("test")
	if err != nil {
		t.Fatal(err)
	}

	result := make([]byte, len(testString1))
	if _, err := io.ReadFull(f, result); err != nil {
		t.Error(err)
	}

	if strings.Compare(string(result), testString1) != 0 {
		t.Error("test string does not match up")
	}

	if f.Size() != int64(len(testString1)) {
		t.Errorf("incorrect size in index: %d", f.Size())
	}
}

func TestCreateAndReadAll(t *testing.T) {
	ar, err := kar.Open(bytes.NewReader(buildTestArchive(t)))
	if err != nil {
		t.Fatal(err)
	}

	if f, err := ar.ReadAll("test"); err != nil {
		t.Error(err)
	} else if strings.Compare(string(f), testString1) != 0 {
		t.Error("result is not expected value")
	}

	if f, err := ar.ReadAll("test2"); err != nil {
		t.Error(err)
	} else if strings.Compare(string(f), testString2) != 0 {
		t.Error("result is not expected value")
	}
}

func TestIndex(t *testing.T) {
	ar, err := kar.Open(bytes.NewReader(buildTestArchive(t)))
	if err != nil {
		t.Fatal(err)
	}

	if len(ar.Index()) != 2 {
		t.Fatalf("incorrect number of index entries: %d", len(ar.Index()))
	}

	if !ar.Contains("test") || !ar.Contains("test2") {
		t.Error("expected files missing from index")
	}

	if ar.Contains("nosuchfile") {
		t.Error("index contains a file that was never added")
	}

	if ar.Header().Author != "devblok" {
		t.Errorf("incorrect author: %s", ar.Header().Author)
	}
}

func TestConcurrentAdd(t *testing.T) {
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		t.Fatal(err)
	}

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("file%d", i)
			if err := builder.Add(name, strings.NewReader(strings.Repeat(name, 64))); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	buf := bytes.NewBuffer([]byte{})
	if _, err := builder.WriteTo(buf); err != nil {
		t.Fatal(err)
	}

	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(ar.Index()) != workers {
		t.Fatalf("incorrect number of index entries: %d", len(ar.Index()))
	}
	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("file%d", i)
		data, err := ar.ReadAll(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if string(data) != strings.Repeat(name, 64) {
			t.Errorf("%s contents do not match up", name)
		}
	}
}

func TestOpenNotAnArchive(t *testing.T) {
	if _, err := kar.Open(bytes.NewReader([]byte("definitely not a kar file"))); err != kar.ErrFileFormat {
		t.Errorf("expected ErrFileFormat, got: %v", err)
	}
}

func TestOpenFileMmap(t *testing.T) {
	dir, err := ioutil.TempDir("", "karTest")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	name := filepath.Join(dir, "opentest.kar")
	if err := ioutil.WriteFile(name, buildTestArchive(t), 0644); err != nil {
		t.Fatal(err)
	}

	ar, err := kar.OpenFile(name)
	if err != nil {
		t.Fatal(err)
	}
	defer ar.Close()

	if f, err := ar.ReadAll("test2"); err != nil {
		t.Error(err)
	} else if strings.Compare(string(f), testString2) != 0 {
		t.Error("result is not expected value")
	}
}
