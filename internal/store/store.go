package store

import (
	"context"
	"database/sql"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"notice/internal/apperr"
)

// Store wraps access to the Postgres row store. All queries run on a
// shared *sql.DB with pooling.
type Store struct {
	DB *sql.DB
}

// New creates a new Store on a shared *sql.DB.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// CanonicalizeURL lowercases the scheme and host and strips the fragment.
// Path, query, and trailing slashes are preserved as given.
func CanonicalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperr.Newf(apperr.KindValidation, "invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", apperr.Newf(apperr.KindValidation, "unsupported URL scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return "", apperr.New(apperr.KindValidation, "URL has no host")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u.String(), nil
}

// ExtractDomain returns the lowercase host component of a URL.
func ExtractDomain(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", apperr.Newf(apperr.KindValidation, "invalid URL: %v", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", apperr.New(apperr.KindValidation, "URL has no host")
	}
	return host, nil
}

func nullStr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func strPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
