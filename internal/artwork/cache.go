// Package artwork keeps a well-known path pointing at the current cover art.
package artwork

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/genricoloni/mprisbar/internal/domain"
	"go.uber.org/zap"
)

const fileScheme = "file://"

// SymlinkCache points a fixed path at local cover art files
type SymlinkCache struct {
	logger *zap.Logger
	path   string
}

// NewSymlinkCache creates a cache rooted at the configured cover path
func NewSymlinkCache(logger *zap.Logger, cfg domain.Config) *SymlinkCache {
	return &SymlinkCache{
		logger: logger,
		path:   cfg.GetCoverPath(),
	}
}

// Path returns the cache symlink path
func (c *SymlinkCache) Path() string {
	return c.path
}

// Update removes any previous cache entry and, for file:// URLs, links the
// cache path to the referenced file. Remote and empty URLs leave no entry.
func (c *SymlinkCache) Update(artURL string) error {
	if _, err := os.Lstat(c.path); err == nil {
		if err := os.RemoveAll(c.path); err != nil {
			return fmt.Errorf("failed to remove stale cover: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat cover path: %w", err)
	}

	if !strings.HasPrefix(artURL, fileScheme) {
		c.logger.Debug("Cover art is not a local file, cache cleared",
			zap.String("artUrl", artURL))
		return nil
	}

	src := strings.TrimPrefix(artURL, fileScheme)

	// Ensure the cache directory exists
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	if err := os.Symlink(src, c.path); err != nil {
		return fmt.Errorf("failed to link cover: %w", err)
	}

	c.logger.Debug("Cover art cached",
		zap.String("source", src),
		zap.String("path", c.path))
	return nil
}
