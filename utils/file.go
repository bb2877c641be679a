package utils

import (
	"context"
	"os"
	"path/filepath"
)

// DirUploader writes export objects below a local directory.
// It stands in for R2 in development and in the CLI.
type DirUploader struct {
	Root string
}

func (u *DirUploader) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	dest := filepath.Join(u.Root, filepath.FromSlash(key))
	if err := WriteFile(dest, body); err != nil {
		return "", err
	}
	return dest, nil
}

// WriteFile writes data to path, creating parent directories. The file is
// written next to its destination and renamed so readers never see a partial export.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
