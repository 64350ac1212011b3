// Package cache provides localized filesystem-based caching for transient mirror catalog responses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/koi-cli/koi/where"
)

// TTL bounds the lifetime of cached mirror responses. Episode indexes drift
// as new episodes air, so entries expire within a day.
const TTL = 24 * time.Hour

// GenerateKey generates a deterministic SHA-256 hash from a query and scope pair for use as a cache identifier.
func GenerateKey(query, scope string) string {
	sanitized := strings.ToLower(strings.ReplaceAll(query, " ", "")) + scope
	hash := sha256.Sum256([]byte(sanitized))
	return hex.EncodeToString(hash[:])
}

// Read attempts to retrieve and deserialize a cached object if it exists and has not exceeded its TTL.
func Read(key string, target interface{}) bool {
	path := filepath.Join(where.Mirror(), key)

	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > TTL {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(target); err != nil {
		return false
	}
	return true
}

// Write persists a serializable object to the cache using an atomic file swap to ensure data integrity.
func Write(key string, data interface{}) error {
	path := filepath.Join(where.Mirror(), key)
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(f).Encode(data); err != nil {
		f.Close()
		return err
	}
	f.Close()

	return os.Rename(tmpPath, path)
}

// CollectGarbage spawns a background task that prunes expired cache entries
// from the filesystem. It returns a channel that closes once the sweep is done.
func CollectGarbage() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		dir := where.Mirror()
		_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if info, err := d.Info(); err == nil && time.Since(info.ModTime()) > TTL {
				_ = os.Remove(path)
			}
			return nil
		})
	}()
	return done
}
