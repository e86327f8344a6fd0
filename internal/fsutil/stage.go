// Package fsutil writes output files through temporaries so that a failed conversion never
// leaves partially written results behind.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Stage collects temporary files that are promoted to their destination together.
type Stage struct {
	files []staged
	done  bool
}

type staged struct {
	file *os.File
	dst  string
}

// Create opens a temporary file in the directory of dst, to be renamed into dst on Commit.
func (s *Stage) Create(dst string) (*os.File, error) {
	if s.done {
		return nil, errors.New("fsutil: stage already finished")
	}

	file, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*")
	if err != nil {
		return nil, fmt.Errorf("fsutil: failed to create temp file: %w", err)
	}

	s.files = append(s.files, staged{file: file, dst: dst})
	return file, nil
}

// Commit closes every temporary file and renames it into place. If anything fails, the
// remaining temporaries are removed along with the files already promoted.
func (s *Stage) Commit() error {
	if s.done {
		return errors.New("fsutil: stage already finished")
	}

	for _, f := range s.files {
		if err := f.file.Chmod(0644); err != nil {
			s.Abort()
			return fmt.Errorf("fsutil: failed to set permissions of %s: %w", f.dst, err)
		}
		if err := f.file.Close(); err != nil {
			s.Abort()
			return fmt.Errorf("fsutil: failed to close temp file: %w", err)
		}
	}

	s.done = true
	for i, f := range s.files {
		if err := os.Rename(f.file.Name(), f.dst); err != nil {
			for _, promoted := range s.files[:i] {
				os.Remove(promoted.dst)
			}
			for _, pending := range s.files[i:] {
				os.Remove(pending.file.Name())
			}
			return fmt.Errorf("fsutil: failed to rename %s: %w", f.dst, err)
		}
	}
	return nil
}

// Abort discards every temporary file. It is safe to call after Commit, in which case it
// does nothing.
func (s *Stage) Abort() {
	if s.done {
		return
	}

	s.done = true
	for _, f := range s.files {
		f.file.Close()
		os.Remove(f.file.Name())
	}
}

// WriteFile atomically replaces the content of a file.
func WriteFile(path string, data []byte) error {
	var stage Stage
	file, err := stage.Create(path)
	if err != nil {
		return err
	}

	if _, err := file.Write(data); err != nil {
		stage.Abort()
		return fmt.Errorf("fsutil: failed to write %s: %w", path, err)
	}
	return stage.Commit()
}
