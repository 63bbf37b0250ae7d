// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/devblok/karman/utility/kar"
)

func init() {
	u, err := user.Current()
	if err != nil {
		currentUserName = "unknown"
		return
	}
	currentUserName = u.Name
}

var (
	currentUserName string
	author          = flag.String("author", currentUserName, "Set the author of the package when compressing")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	extract         = flag.String("e", "", "Extract the given archive")
	compress        = flag.String("c", "", "Compress the given file/folder")
	dstFile         = flag.String("f", "out.kar", "Destination file or directory")
	silent          = flag.Bool("s", false, "Silent")
)

func main() {
	var opMade bool
	flag.Parse()

	if *extract != "" && *compress != "" {
		fatal(errors.New("only one operation at a time"))
	}

	if *extract != "" {
		opMade = true
		if err := extractFiles(); err != nil {
			fatal(err)
		}
	}

	if *compress != "" {
		opMade = true
		if err := compressFiles(); err != nil {
			fatal(err)
		}
	}

	if !opMade {
		flag.PrintDefaults()
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func report(format string, args ...interface{}) {
	if !*silent {
		fmt.Printf(format+"\n", args...)
	}
}

func compressFiles() error {
	if _, err := os.Stat(*dstFile); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}

	var filesToCompress []string
	err := filepath.Walk(*compress, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		filesToCompress = append(filesToCompress, path)
		return nil
	})
	if err != nil {
		return err
	}

	karBuilder, err := kar.NewBuilder(kar.Header{
		Author:      *author,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}

	for _, ftc := range filesToCompress {
		// Archive names are relative to the compression root, so an
		// extracted tree looks the same no matter where it was built.
		name, err := filepath.Rel(*compress, ftc)
		if err != nil {
			name = ftc
		}
		name = filepath.ToSlash(name)

		f, err := os.Open(ftc)
		if err != nil {
			return err
		}
		err = karBuilder.Add(name, f)
		f.Close()
		if err != nil {
			return err
		}
		report("added %s", name)
	}

	dst, err := os.Create(*dstFile)
	if err != nil {
		return err
	}
	defer dst.Close()

	written, err := karBuilder.WriteTo(dst)
	if err != nil {
		return err
	}
	report("wrote %s (%d bytes)", *dstFile, written)
	return nil
}

func extractFiles() error {
	archive, err := kar.OpenFile(*extract)
	if err != nil {
		return err
	}
	defer archive.Close()

	header := archive.Header()
	report("archive by %s, version %d, created %s",
		header.Author, header.Version, time.Unix(header.DateCreated, 0))

	for _, entry := range archive.Index() {
		if err := extractOne(archive, entry); err != nil {
			return err
		}
		report("extracted %s (%d bytes)", entry.Name, entry.Size)
	}
	return nil
}

func extractOne(archive *kar.Archive, entry kar.IndexEntry) error {
	src, err := archive.Open(entry.Name)
	if err != nil {
		return err
	}

	full := filepath.Join(*dstFile, filepath.FromSlash(entry.Name))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	dst, err := os.Create(full)
	if err != nil {
		return err
	}
	defer dst.Close()

	copied, err := io.Copy(dst, src)
	if err != nil {
		return err
	}
	if copied != entry.Size {
		return kar.ErrIOMisc
	}
	return nil
}
