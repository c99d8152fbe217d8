package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// TokenStore persists the panel session between runs.
type TokenStore interface {
	// Load returns found=false when nothing was saved yet.
	Load(ctx context.Context) (cookies []*proto.NetworkCookieParam, found bool, err error)
	Save(ctx context.Context, cookies []*proto.NetworkCookie) error
}

type savedSession struct {
	SavedAt time.Time             `json:"saved_at"`
	Cookies []*proto.NetworkCookie `json:"cookies"`
}

// FileTokenStore keeps the cookie jar in a JSON file readable only by the
// owner.
type FileTokenStore struct {
	Path string
}

// Load implements TokenStore. Expired cookies are dropped.
func (f FileTokenStore) Load(ctx context.Context) ([]*proto.NetworkCookieParam, bool, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read session file: %w", err)
	}

	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, false, fmt.Errorf("parse session file %s: %w", f.Path, err)
	}

	now := float64(time.Now().Unix())
	params := make([]*proto.NetworkCookieParam, 0, len(saved.Cookies))
	for _, c := range saved.Cookies {
		if c == nil {
			continue
		}
		// session cookies carry Expires <= 0
		if c.Expires > 0 && float64(c.Expires) < now {
			continue
		}
		params = append(params, cookieParam(c))
	}
	if len(params) == 0 {
		return nil, false, nil
	}
	return params, true, nil
}

// Save implements TokenStore. The file is replaced atomically.
func (f FileTokenStore) Save(ctx context.Context, cookies []*proto.NetworkCookie) error {
	data, err := json.MarshalIndent(savedSession{SavedAt: time.Now().UTC(), Cookies: cookies}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

func cookieParam(c *proto.NetworkCookie) *proto.NetworkCookieParam {
	return &proto.NetworkCookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
		Priority: c.Priority,
	}
}
