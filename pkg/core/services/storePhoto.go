package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const photoTimeLayout = "20060102_150405"

// PhotoFileName is the name an uploaded photo is stored under
func PhotoFileName(original string, now time.Time) string {
	return fmt.Sprintf("%s_%s", now.Format(photoTimeLayout), filepath.Base(original))
}

// StorePhoto copies srcPath into dir and returns the stored path, suitable for a report's photo_path
func StorePhoto(dir, srcPath string, now time.Time) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open photo: %w", err)
	}
	defer src.Close()

	return SavePhoto(dir, filepath.Base(srcPath), src, now)
}

// SavePhoto writes the contents of r into dir under PhotoFileName(name, now)
func SavePhoto(dir, name string, r io.Reader, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create photo directory: %w", err)
	}

	dst := filepath.Join(dir, PhotoFileName(name, now))
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create photo file: %w", err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to write photo: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close photo file: %w", err)
	}

	return dst, nil
}
