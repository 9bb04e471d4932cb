package flink

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// StreamFactory opens the destination stream for one checkpoint.
type StreamFactory interface {
	Create(checkpointID uint64, timestamp int64) (OutputStream, error)
}

// OutputStream is an append-only checkpoint sink. Close before
// CloseAndFinalize aborts the write and discards partial output; a
// finalized stream is immutable and Close becomes a no-op.
type OutputStream interface {
	io.WriteCloser

	// Position returns the current write position in bytes.
	Position() (int64, error)

	// CloseAndFinalize seals the stream and returns the handle under
	// which the written bytes can be re-opened.
	CloseAndFinalize() (StreamHandle, error)
}

// StreamHandle is the immutable result of a finalized stream.
type StreamHandle interface {
	OpenRandomRead() (io.ReadSeekCloser, error)
}

// --------------------------------------------------------------------

// MemoryStreamFactory keeps artifacts in memory. Mainly useful in
// tests and for backends whose state fits comfortably in RAM.
type MemoryStreamFactory struct{}

// Create implements StreamFactory.
func (MemoryStreamFactory) Create(_ uint64, _ int64) (OutputStream, error) {
	return &memoryStream{}, nil
}

type memoryStream struct {
	buf       bytes.Buffer
	finalized bool
}

func (s *memoryStream) Write(p []byte) (int, error) {
	if s.finalized {
		return 0, fmt.Errorf("flink: write to a finalized stream")
	}
	return s.buf.Write(p)
}

func (s *memoryStream) Position() (int64, error) {
	return int64(s.buf.Len()), nil
}

func (s *memoryStream) CloseAndFinalize() (StreamHandle, error) {
	s.finalized = true
	data := make([]byte, s.buf.Len())
	copy(data, s.buf.Bytes())
	return MemoryHandle(data), nil
}

func (s *memoryStream) Close() error {
	if !s.finalized {
		s.buf.Reset()
	}
	return nil
}

// MemoryHandle is an in-memory artifact.
type MemoryHandle []byte

// OpenRandomRead implements StreamHandle.
func (h MemoryHandle) OpenRandomRead() (io.ReadSeekCloser, error) {
	return nopCloser{bytes.NewReader(h)}, nil
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }

// --------------------------------------------------------------------

// FileFactoryOptions define file stream factory specific options.
type FileFactoryOptions struct {
	// Dir is the directory artifacts are written to.
	// Default: os.TempDir().
	Dir string

	// BufferSize is the write buffer in bytes.
	// Default: 64KiB.
	BufferSize int
}

func (o *FileFactoryOptions) norm() *FileFactoryOptions {
	var oo FileFactoryOptions
	if o != nil {
		oo = *o
	}

	if oo.Dir == "" {
		oo.Dir = os.TempDir()
	}
	if oo.BufferSize < 1 {
		oo.BufferSize = 1 << 16
	}

	return &oo
}

// FileStreamFactory writes each artifact to its own uniquely named
// file in a directory.
type FileStreamFactory struct {
	o *FileFactoryOptions
}

// NewFileStreamFactory inits a factory with the given options.
func NewFileStreamFactory(o *FileFactoryOptions) *FileStreamFactory {
	return &FileStreamFactory{o: o.norm()}
}

// Create implements StreamFactory.
func (f *FileStreamFactory) Create(checkpointID uint64, _ int64) (OutputStream, error) {
	name := fmt.Sprintf("chk-%d-%s", checkpointID, uuid.NewString())
	file, err := os.Create(filepath.Join(f.o.Dir, name))
	if err != nil {
		return nil, err
	}
	return &fileStream{
		file: file,
		w:    bufio.NewWriterSize(file, f.o.BufferSize),
	}, nil
}

type fileStream struct {
	file      *os.File
	w         *bufio.Writer
	pos       int64
	finalized bool
}

func (s *fileStream) Write(p []byte) (int, error) {
	if s.finalized {
		return 0, fmt.Errorf("flink: write to a finalized stream")
	}
	n, err := s.w.Write(p)
	s.pos += int64(n)
	return n, err
}

func (s *fileStream) Position() (int64, error) {
	return s.pos, nil
}

func (s *fileStream) CloseAndFinalize() (StreamHandle, error) {
	if err := s.w.Flush(); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.file.Sync(); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.file.Close(); err != nil {
		return nil, err
	}
	s.finalized = true
	return FileHandle(s.file.Name()), nil
}

// Close aborts an unfinalized stream, removing the partial file.
func (s *fileStream) Close() error {
	if s.finalized {
		return nil
	}
	s.finalized = true
	err := s.file.Close()
	if rerr := os.Remove(s.file.Name()); err == nil {
		err = rerr
	}
	return err
}

// FileHandle is a finalized artifact stored as a file.
type FileHandle string

// Path returns the artifact's file path.
func (h FileHandle) Path() string { return string(h) }

// OpenRandomRead implements StreamHandle.
func (h FileHandle) OpenRandomRead() (io.ReadSeekCloser, error) {
	return os.Open(string(h))
}
