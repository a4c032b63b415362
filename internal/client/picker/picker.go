// Package picker models a user's file selection: the list of files the
// upload pipeline reads from.
package picker

import (
	"context"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrijs2005/carvault/internal/filex"
)

// File is one selected file. Read is called at most once per upload.
type File interface {
	Name() string
	ContentType() string
	Read(ctx context.Context) ([]byte, error)
}

// Selection is the set of files picked for one upload batch. Reset clears
// it once the batch is done.
type Selection interface {
	Files() []File
	Reset()
}

// PathSelection is a Selection over local filesystem paths.
type PathSelection struct {
	mu    sync.Mutex
	files []File
}

// FromPaths selects the given paths. Files are not opened until read, so a
// missing path only fails its own upload.
func FromPaths(paths []string, maxSize int64) *PathSelection {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		files = append(files, &localFile{path: p, maxSize: maxSize})
	}
	return &PathSelection{files: files}
}

func (s *PathSelection) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, len(s.files))
	copy(out, s.files)
	return out
}

func (s *PathSelection) Reset() {
	s.mu.Lock()
	s.files = nil
	s.mu.Unlock()
}

type localFile struct {
	path    string
	maxSize int64
}

func (f *localFile) Name() string { return filepath.Base(f.path) }

// ContentType is derived from the extension and may be empty.
func (f *localFile) ContentType() string {
	ext := strings.ToLower(filepath.Ext(f.path))
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(ext)
}

func (f *localFile) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return filex.ReadLimited(f.path, f.maxSize)
}

// Memory is an in-memory File, used for content that does not come from
// disk.
type Memory struct {
	FileName string
	Type     string
	Data     []byte
	Err      error
}

func (m Memory) Name() string        { return m.FileName }
func (m Memory) ContentType() string { return m.Type }

func (m Memory) Read(context.Context) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Data, nil
}

// Static is a Selection over a fixed list of files.
type Static struct {
	mu     sync.Mutex
	files  []File
	resets int
}

func NewStatic(files ...File) *Static { return &Static{files: files} }

func (s *Static) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, len(s.files))
	copy(out, s.files)
	return out
}

func (s *Static) Reset() {
	s.mu.Lock()
	s.files = nil
	s.resets++
	s.mu.Unlock()
}

// Resets reports how many times Reset was called.
func (s *Static) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}
