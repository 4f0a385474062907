package ports

import "net/http"

// CookieStore persists session cookies across runs. Load returns an empty
// slice when nothing is stored; a corrupt or unreadable store is an error
// the caller treats as non-fatal.
type CookieStore interface {
	Load() ([]*http.Cookie, error)
	Save(cookies []*http.Cookie) error
}
