// Package cookies persists the session cookie jar to a TOML file in the app
// data directory. Writes go through a temp file and rename so a crash never
// leaves a half-written store.
package cookies

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/hazuki-dev/vrcwatch/internal/ports"
)

const (
	fileMode        = 0o600
	dirMode         = 0o700
	tempFilePattern = ".cookies-*.toml.tmp"
)

type Store struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.CookieStore = (*Store)(nil)

func NewStore(path string) *Store {
	cleaned := filepath.Clean(path)
	return &Store{path: cleaned, mu: lockForPath(cleaned)}
}

type fileSchema struct {
	Version int            `toml:"version"`
	Cookies []cookieSchema `toml:"cookies"`
}

type cookieSchema struct {
	Name     string `toml:"name"`
	Value    string `toml:"value"`
	Domain   string `toml:"domain,omitempty"`
	Path     string `toml:"path,omitempty"`
	Expires  string `toml:"expires,omitempty"`
	Secure   bool   `toml:"secure,omitempty"`
	HTTPOnly bool   `toml:"http_only,omitempty"`
}

func (s *Store) Load() ([]*http.Cookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cookie store: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode cookie store: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(file.Cookies))
	for _, entry := range file.Cookies {
		cookies = append(cookies, fromSchema(entry))
	}
	return cookies, nil
}

func (s *Store) Save(cookies []*http.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := fileSchema{Version: 1, Cookies: make([]cookieSchema, 0, len(cookies))}
	for _, c := range cookies {
		file.Cookies = append(file.Cookies, toSchema(c))
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return fmt.Errorf("create cookie directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode cookie store: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp cookie file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp cookie file: %w", err)
	}
	if err := tempFile.Chmod(fileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp cookie file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp cookie file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace cookie store: %w", err)
	}
	cleanup = false

	if err := os.Chmod(s.path, fileMode); err != nil {
		return fmt.Errorf("chmod cookie store: %w", err)
	}
	return nil
}

func toSchema(c *http.Cookie) cookieSchema {
	entry := cookieSchema{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
	}
	if !c.Expires.IsZero() {
		entry.Expires = c.Expires.Format(time.RFC3339)
	}
	return entry
}

func fromSchema(entry cookieSchema) *http.Cookie {
	c := &http.Cookie{
		Name:     entry.Name,
		Value:    entry.Value,
		Domain:   entry.Domain,
		Path:     entry.Path,
		Secure:   entry.Secure,
		HttpOnly: entry.HTTPOnly,
	}
	if entry.Expires != "" {
		if parsed, err := time.Parse(time.RFC3339, entry.Expires); err == nil {
			c.Expires = parsed
		}
	}
	return c
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}
	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
