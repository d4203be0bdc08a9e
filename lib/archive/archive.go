// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive packs a package's output tree into a zstd-compressed
// tar artifact and unpacks artifacts into the installed-packages area.
//
// Both directions are atomic with respect to the final name. Pack
// writes a temporary file and renames it; Unpack extracts into a
// temporary sibling directory and renames it. A reader that finds the
// final name always finds a complete artifact or tree.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/boldos/bold/lib/contenthash"
	"github.com/boldos/bold/lib/pkgref"
)

// Extension is the artifact file suffix.
const Extension = ".tar.zst"

// FileName is the artifact file name of a package.
func FileName(ref pkgref.Ref) string {
	return ref.String() + Extension
}

// Info describes a packed artifact.
type Info struct {
	Path   string
	Size   int64
	Digest contenthash.Digest
}

// Pack archives the contents of source into the artifact at path. If
// path already exists it is kept and described instead; artifacts are
// keyed by content-addressed identity, so an existing one is the same.
func Pack(source, path string) (Info, error) {
	if _, err := os.Stat(path); err == nil {
		return describe(path)
	}

	temporary, err := os.CreateTemp(filepath.Dir(path), ".pack-*")
	if err != nil {
		return Info{}, fmt.Errorf("packing %s: %w", source, err)
	}
	temporaryPath := temporary.Name()
	success := false
	defer func() {
		if !success {
			temporary.Close()
			os.Remove(temporaryPath)
		}
	}()

	encoder, err := zstd.NewWriter(temporary,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(10)),
	)
	if err != nil {
		return Info{}, fmt.Errorf("packing %s: %w", source, err)
	}
	if err := writeTar(encoder, source); err != nil {
		encoder.Close()
		return Info{}, fmt.Errorf("packing %s: %w", source, err)
	}
	if err := encoder.Close(); err != nil {
		return Info{}, fmt.Errorf("packing %s: %w", source, err)
	}
	if err := temporary.Close(); err != nil {
		return Info{}, fmt.Errorf("packing %s: %w", source, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return Info{}, fmt.Errorf("packing %s: %w", source, err)
	}
	success = true
	return describe(path)
}

func describe(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer file.Close()
	digest, size, err := contenthash.Artifact(file)
	if err != nil {
		return Info{}, err
	}
	return Info{Path: path, Size: size, Digest: digest}, nil
}

func writeTar(writer io.Writer, source string) error {
	archive := tar.NewWriter(writer)
	err := filepath.WalkDir(source, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == source {
			return nil
		}
		relative, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		} else if !info.Mode().IsRegular() && !info.IsDir() {
			return fmt.Errorf("%s: unsupported file type %s", relative, info.Mode().Type())
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relative)
		if info.IsDir() {
			header.Name += "/"
		}
		header.Uname, header.Gname = "", ""
		header.Uid, header.Gid = 0, 0
		if err := archive.WriteHeader(header); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(archive, file)
		return err
	})
	if err != nil {
		return err
	}
	return archive.Close()
}

// Unpack extracts the artifact at path into destination, which must
// not exist. Extraction happens in a temporary sibling directory that
// is renamed to destination only after every entry is written. Entries
// cannot write outside the extraction directory.
func Unpack(path, destination string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unpacking %s: %w", path, err)
	}
	defer file.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("unpacking %s: %w", path, err)
	}
	temporary, err := os.MkdirTemp(filepath.Dir(destination), ".unpack-*")
	if err != nil {
		return fmt.Errorf("unpacking %s: %w", path, err)
	}
	defer os.RemoveAll(temporary)

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return fmt.Errorf("unpacking %s: %w", path, err)
	}
	defer decoder.Close()

	if err := extract(tar.NewReader(decoder), temporary); err != nil {
		return fmt.Errorf("unpacking %s: %w", path, err)
	}
	if err := os.Chmod(temporary, 0o755); err != nil {
		return fmt.Errorf("unpacking %s: %w", path, err)
	}
	if err := os.Rename(temporary, destination); err != nil {
		return fmt.Errorf("unpacking %s: %w", path, err)
	}
	return nil
}

func extract(reader *tar.Reader, directory string) error {
	root, err := os.OpenRoot(directory)
	if err != nil {
		return err
	}
	defer root.Close()

	// Directory modes are applied last so read-only directories can
	// still receive their entries.
	directoryModes := make(map[string]fs.FileMode)
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		name := strings.TrimPrefix(strings.TrimSuffix(header.Name, "/"), "./")
		if name == "" || name == "." {
			continue
		}
		if !filepath.IsLocal(name) {
			return fmt.Errorf("entry %q escapes the archive root", header.Name)
		}
		if parent := filepath.Dir(name); parent != "." {
			if err := root.MkdirAll(parent, 0o755); err != nil {
				return err
			}
		}

		mode := header.FileInfo().Mode().Perm()
		switch header.Typeflag {
		case tar.TypeDir:
			if err := root.MkdirAll(name, 0o755); err != nil {
				return err
			}
			directoryModes[name] = mode
		case tar.TypeReg:
			output, err := root.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
			if err != nil {
				return err
			}
			if _, err := io.Copy(output, reader); err != nil {
				output.Close()
				return err
			}
			if err := output.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := root.Symlink(header.Linkname, name); err != nil {
				return err
			}
		case tar.TypeLink:
			target := strings.TrimPrefix(header.Linkname, "./")
			if !filepath.IsLocal(target) {
				return fmt.Errorf("hardlink %q escapes the archive root", header.Name)
			}
			if err := root.Link(target, name); err != nil {
				return err
			}
		default:
			return fmt.Errorf("entry %q: unsupported type %q", header.Name, header.Typeflag)
		}
	}

	for name, mode := range directoryModes {
		if err := root.Chmod(name, mode); err != nil {
			return err
		}
	}
	return nil
}
