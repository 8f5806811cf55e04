package storage

import (
	"context"
	"path/filepath"

	"starter/internal/common/config"
	"starter/internal/common/utils"
)

// FileSink writes each record to <dir>/<name>.
type FileSink struct {
	dir   string
	files *utils.FileHelper
}

func NewFileSink(dir string, files *utils.FileHelper) *FileSink {
	return &FileSink{dir: dir, files: files}
}

func (s *FileSink) Save(_ context.Context, name string, payload []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := s.files.WriteFile(path, string(payload), utils.DefaultEncoding); err != nil {
		return "", err
	}
	return path, nil
}

func (s *FileSink) Backend() string { return config.BackendFile }

func (s *FileSink) Close() error { return nil }
