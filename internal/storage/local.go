package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

type localStore struct {
	dir     string
	baseURL string
	logger  zerolog.Logger
}

// NewLocalStore creates an ObjectStore writing below dir. Files are expected
// to be served at baseURL.
func NewLocalStore(dir, baseURL string, logger zerolog.Logger) (ObjectStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}

	logger = logger.With().Str("component", "local-store").Logger()
	logger.Info().Str("dir", dir).Msg("using local file system for uploads")

	return &localStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

func (s *localStore) Put(ctx context.Context, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(obj.Key))
	rel, err := filepath.Rel(s.dir, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("invalid object key: %s", obj.Key)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", obj.Key, err)
	}

	if err := os.WriteFile(target, obj.Body, 0o644); err != nil {
		s.logger.Error().Err(err).Str("key", obj.Key).Msg("failed to write object")
		return fmt.Errorf("failed to write %s: %w", obj.Key, err)
	}

	return nil
}

func (s *localStore) PublicURL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}
