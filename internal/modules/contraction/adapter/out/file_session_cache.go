package out

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"storkwatch/internal/modules/contraction/domain"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	apperrors "storkwatch/internal/platform/errors"
)

type cacheEntry struct {
	Key    string         `json:"key"`
	Events []domain.Event `json:"events"`
}

// FileSessionCache stores one JSON file per cache key under dir.
type FileSessionCache struct {
	dir string
}

func NewFileSessionCache(dir string) contractionout.SessionCache {
	return &FileSessionCache{dir: dir}
}

func (c *FileSessionCache) path(key domain.CacheKey) (string, error) {
	if !key.Valid() {
		return "", fmt.Errorf("%w: cache key %q", apperrors.ErrInvalidInput, key.String())
	}
	return filepath.Join(c.dir, url.PathEscape(key.Feature), url.PathEscape(key.UserID)+".json"), nil
}

func (c *FileSessionCache) Load(_ context.Context, key domain.CacheKey) ([]domain.Event, bool, error) {
	path, err := c.path(key)
	if err != nil {
		return nil, false, err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cached session: %w", err)
	}
	entry := cacheEntry{}
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cached session: %w", err)
	}
	if len(entry.Events) == 0 {
		return nil, false, nil
	}
	return entry.Events, true, nil
}

// Save replaces the entry through a temp file so a crash never leaves a torn write.
func (c *FileSessionCache) Save(_ context.Context, key domain.CacheKey, events []domain.Event) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	payload, err := json.MarshalIndent(cacheEntry{Key: key.String(), Events: events}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cached session: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write cached session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace cached session: %w", err)
	}
	return nil
}

func (c *FileSessionCache) Clear(_ context.Context, key domain.CacheKey) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("clear cached session: %w", err)
	}
	return nil
}
