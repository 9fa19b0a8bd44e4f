package serialinfo

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/metal-test/metal/internal/symbols"
)

// Cache stores generated bundles keyed by a fingerprint of their inputs.
type Cache struct {
	dir    string
	logger zerolog.Logger
}

// NewCache returns a cache rooted at dir.
func NewCache(dir string, logger zerolog.Logger) *Cache {
	return &Cache{
		dir:    dir,
		logger: logger.With().Str("component", "serialinfo-cache").Logger(),
	}
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Load returns the cached bundle for key, if any.
func (c *Cache) Load(key string) (*Info, bool) {
	info, err := Load(c.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug().Err(err).Str("key", key).Msg("Ignoring unreadable cache entry")
		}
		return nil, false
	}
	return info, true
}

// Store writes info under key.
func (c *Cache) Store(key string, info *Info) error {
	return info.Save(c.path(key))
}

// Fingerprint hashes the binary, the generation options and every source
// file the given compile units reference.
func Fingerprint(opts GenerateOptions, units []symbols.CompileUnit) (string, error) {
	h := xxh3.New()

	if err := hashFile(h, opts.Binary); err != nil {
		return "", err
	}
	for _, list := range [][]string{opts.Includes, opts.Defines, opts.Macros} {
		for _, s := range list {
			_, _ = io.WriteString(h, s)
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{1})
	}

	files := make(map[string]struct{})
	for _, cu := range units {
		files[cu.Path()] = struct{}{}
		for _, f := range cu.Files {
			files[f] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(files))
	for f := range files {
		sorted = append(sorted, f)
	}
	sort.Strings(sorted)
	for _, f := range sorted {
		_, _ = io.WriteString(h, f)
		_, _ = h.Write([]byte{0})
		if err := hashFile(h, f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}

	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:]), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return nil
}
