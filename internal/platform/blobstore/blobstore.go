package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

// ErrNotFound is returned by Open when the key does not exist.
var ErrNotFound = errors.New("blob not found")

// Store holds dataset uploads and model artifacts.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Mode string

const (
	ModeLocal       Mode = "local"
	ModeGCS         Mode = "gcs"
	ModeGCSEmulator Mode = "gcs_emulator"
)

type Config struct {
	Mode         Mode
	LocalDir     string
	Bucket       string
	EmulatorHost string
	Credentials  string
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeLocal:
		if strings.TrimSpace(c.LocalDir) == "" {
			return fmt.Errorf("blobstore: local mode requires STORAGE_LOCAL_DIR")
		}
	case ModeGCS:
		if strings.TrimSpace(c.Bucket) == "" {
			return fmt.Errorf("blobstore: gcs mode requires GCS_BUCKET_NAME")
		}
	case ModeGCSEmulator:
		if strings.TrimSpace(c.Bucket) == "" || strings.TrimSpace(c.EmulatorHost) == "" {
			return fmt.Errorf("blobstore: gcs_emulator mode requires GCS_BUCKET_NAME and STORAGE_EMULATOR_HOST")
		}
	default:
		return fmt.Errorf("blobstore: unsupported mode %q", c.Mode)
	}
	return nil
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeGCS, ModeGCSEmulator:
		return NewGCS(ctx, log, cfg)
	default:
		return NewLocal(log, cfg.LocalDir)
	}
}

// ReadAll opens key and returns its full contents.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("blobstore: empty key")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("blobstore: invalid key %q", key)
		}
	}
	return key, nil
}
