package lineage

import (
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yumyai/genomeqc/internal/util"
)

// ErrUnavailable means the reference dataset could not be obtained. Every
// genome in the batch needs it, so callers abort the whole run.
var ErrUnavailable = errors.New("reference lineage dataset unavailable")

// Cache resolves a named reference lineage dataset to a local directory,
// fetching it on demand. Resolution happens once per batch; the returned
// path is shared read-only by every genome job.
type Cache struct {
	Dir   string                  // optional base directory for cached lineages
	Fetch func(name string) error // acquisition, normally `busco download`
	Log   *zap.Logger
}

// Resolve returns the local path of the dataset, downloading it when absent.
// Idempotent: a dataset already on disk is returned without any acquisition.
func (c *Cache) Resolve(name string) (string, error) {
	if path, ok := c.lookup(name); ok {
		c.Log.Info("BUSCO lineage found, no download needed", zap.String("lineage", path))
		return path, nil
	}

	c.Log.Info("BUSCO lineage not found, attempting to download", zap.String("lineage", name))
	if err := c.Fetch(name); err != nil {
		return "", fmt.Errorf("%w: download failed: %v", ErrUnavailable, err)
	}

	if path, ok := c.lookup(name); ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: %q still missing after download", ErrUnavailable, name)
}

func (c *Cache) lookup(name string) (string, bool) {
	if util.DirExists(name) {
		return name, true
	}
	if c.Dir != "" {
		cached := filepath.Join(c.Dir, name)
		if util.DirExists(cached) {
			return cached, true
		}
	}
	return "", false
}
