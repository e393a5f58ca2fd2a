package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WriteTemplate writes a starter config with a freshly generated encryption
// key. An existing file is kept unless force is set.
func WriteTemplate(path string, force bool) (string, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return "", err
		}
		path = p
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config %s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}

	key, err := newKey()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(template(key))
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("writing config %s: %w", path, err)
	}
	return path, nil
}

func template(key string) map[string]any {
	d := Defaults()
	return map[string]any{
		"server": map[string]any{
			"addr":         d.Server.Addr,
			"cors_origins": []string{"http://localhost:3000"},
		},
		"storage": map[string]any{
			"path": "",
		},
		"security": map[string]any{
			"encryption_key": key,
		},
		"log": map[string]any{
			"level":        d.Log.Level,
			"encoding":     d.Log.Encoding,
			"file":         "",
			"max_size_mb":  d.Log.MaxSizeMB,
			"max_backups":  d.Log.MaxBackups,
			"max_age_days": d.Log.MaxAgeDays,
		},
		"livedb": map[string]any{
			"max_conns":       d.LiveDB.MaxConns,
			"connect_timeout": d.LiveDB.ConnectTimeout.String(),
		},
		"ai": map[string]any{
			"request_timeout": d.AI.RequestTimeout.String(),
		},
	}
}

func newKey() (string, error) {
	b := make([]byte, MinEncryptionKeyLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating encryption key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
