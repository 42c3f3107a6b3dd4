// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads database credentials and API keys from a directory
// of plain-text files. The filename is the key and the trimmed file contents
// are the value.
//
// Recognised keys: db-server, db-name, db-user, db-password, openfda-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	DBServer      = "db-server"
	DBName        = "db-name"
	DBUser        = "db-user"
	DBPassword    = "db-password"
	OpenFDAAPIKey = "openfda-api-key"
)

// Set maps secret names to values.
type Set map[string]string

// Fill sets *dst to the secret named key when *dst is empty and the secret
// exists. It reports whether a value was taken from the set.
func (s Set) Fill(dst *string, key string) bool {
	if *dst != "" {
		return false
	}
	v, ok := s[key]
	if !ok {
		return false
	}
	*dst = v
	return true
}

// Keys returns the names present in the set, without values.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error and yields an empty set. Unreadable files are logged and
// skipped.
func Load(dir string, log *zap.Logger) (Set, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	set := make(Set)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			set[name] = value
		}
	}
	return set, nil
}
