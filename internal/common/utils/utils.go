// Package utils holds small stateless helpers shared by the application.
package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"starter/internal/common/logger"
	"starter/internal/common/validation"
)

const (
	DateLayout      = "2006-01-02 15:04:05"
	DefaultEncoding = "utf-8"
)

var errInvalidUTF8 = errors.New("invalid utf-8 content")

// FormatDate formats t as "YYYY-MM-DD HH:MM:SS". A zero t means now.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(DateLayout)
}

// ValidateEmail reports whether address has a plausible email shape.
func ValidateEmail(address string) bool {
	return validation.ValidateEmail(address)
}

// FileHelper reads and writes text files, logging each failure before
// returning it.
type FileHelper struct {
	logger logger.Logger
}

func NewFileHelper(log logger.Logger) *FileHelper {
	return &FileHelper{logger: log}
}

// ReadFile returns the whole file decoded from the named encoding.
// An empty encoding means utf-8.
func (h *FileHelper) ReadFile(path, encodingName string) (string, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		h.logger.Error("failed to read file", map[string]interface{}{"path": path, "error": err.Error()})
		return "", err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		h.logger.Error("failed to read file", map[string]interface{}{"path": path, "error": err.Error()})
		return "", err
	}

	text, err := decode(enc, raw)
	if err != nil {
		h.logger.Error("failed to decode file", map[string]interface{}{"path": path, "encoding": encodingName, "error": err.Error()})
		return "", err
	}
	return text, nil
}

// Decode converts raw bytes in the named encoding to a string without logging.
// An empty encoding means utf-8, which is validated rather than repaired.
func Decode(raw []byte, encodingName string) (string, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return "", err
	}
	return decode(enc, raw)
}

// WriteFile creates missing parent directories and writes content in the
// named encoding.
func (h *FileHelper) WriteFile(path, content, encodingName string) error {
	if err := h.writeFile(path, content, encodingName); err != nil {
		h.logger.Error("failed to write file", map[string]interface{}{"path": path, "error": err.Error()})
		return err
	}
	h.logger.Info("file written", map[string]interface{}{"path": path})
	return nil
}

func (h *FileHelper) writeFile(path, content, encodingName string) error {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data := []byte(content)
	if enc != nil {
		if data, err = enc.NewEncoder().Bytes(data); err != nil {
			return fmt.Errorf("encode %s: %w", encodingName, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// decode converts raw to a Go string. A nil enc means utf-8, which is
// validated rather than repaired.
func decode(enc encoding.Encoding, raw []byte) (string, error) {
	if enc == nil {
		if !utf8.Valid(raw) {
			return "", errInvalidUTF8
		}
		return string(raw), nil
	}
	text, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}
