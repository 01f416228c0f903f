package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klwxsrx/go-app-shell/pkg/auth"
)

const (
	stateFileMode = 0o600
	stateDirMode  = 0o700
)

type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Save(_ context.Context, state auth.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	err = os.MkdirAll(dir, stateDirMode)
	if err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(stateFileMode)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}

	err = os.Rename(tmp.Name(), f.path)
	if err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	return nil
}

func (f *File) Load(_ context.Context) (*auth.State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	return decodeState(data)
}

func (f *File) Clear(_ context.Context) error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}

	return nil
}
