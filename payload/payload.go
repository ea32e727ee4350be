// Package payload provides re-readable upload sources for in-memory bytes,
// files on a billy filesystem and data URLs.
package payload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
)

// DefaultContentType is used when the content type cannot be determined.
const DefaultContentType = "application/octet-stream"

// sniffLen is how much of a file is read for content detection.
const sniffLen = 512

// Bytes is an in-memory payload.
type Bytes struct {
	name        string
	contentType string
	data        []byte
}

// FromBytes returns a payload holding data. An empty contentType is detected
// from the content.
func FromBytes(name string, data []byte, contentType string) *Bytes {
	if contentType == "" {
		contentType = detect(name, data)
	}
	return &Bytes{name: name, contentType: contentType, data: data}
}

// Name returns the payload file name.
func (b *Bytes) Name() string { return b.name }

// Size returns the payload length in bytes.
func (b *Bytes) Size() int64 { return int64(len(b.data)) }

// ContentType returns the payload MIME type.
func (b *Bytes) ContentType() string { return b.contentType }

// Open returns a new reader over the payload.
func (b *Bytes) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// Data returns the payload bytes.
func (b *Bytes) Data() []byte { return b.data }

// File is a payload backed by a file on a billy filesystem.
// The file is reopened for every attempt.
type File struct {
	fs          billy.Filesystem
	path        string
	name        string
	size        int64
	contentType string
}

// FromFile returns a payload for the regular file at path in fs.
// The content type is sniffed from the first bytes, falling back to the file extension.
func FromFile(fs billy.Filesystem, path string) (*File, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, errors.NewError("fromFile", err).WithKey(path)
	}
	if info.IsDir() {
		return nil, errors.NewError("fromFile", errors.ErrInvalidInput).
			WithKey(path).
			WithMessage("path is a directory")
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.NewError("fromFile", err).WithKey(path)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, errors.NewError("fromFile", err).WithKey(path)
	}

	return &File{
		fs:          fs,
		path:        path,
		name:        filepath.Base(path),
		size:        info.Size(),
		contentType: detect(path, buf[:n]),
	}, nil
}

// Name returns the base name of the file.
func (f *File) Name() string { return f.name }

// Size returns the file size at the time the payload was created.
func (f *File) Size() int64 { return f.size }

// ContentType returns the detected MIME type.
func (f *File) ContentType() string { return f.contentType }

// Path returns the file path within its filesystem.
func (f *File) Path() string { return f.path }

// Open opens the file from the start.
func (f *File) Open() (io.ReadCloser, error) {
	file, err := f.fs.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	return file, nil
}

// detect sniffs data and falls back to the extension of name when the
// content is not recognized.
func detect(name string, data []byte) string {
	if len(data) > 0 {
		if mt := mimetype.Detect(data); mt != nil && !mt.Is(DefaultContentType) {
			return mt.String()
		}
	}
	return contentTypeFromExtension(name)
}

func contentTypeFromExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return DefaultContentType
}
