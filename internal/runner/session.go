package runner

import (
	"context"

	"catalogsync/internal/browser"
	"catalogsync/internal/surface"
)

// Session is an open panel session.
type Session interface {
	// Authenticate establishes panel access, blocking on confirm when the
	// operator has to sign in.
	Authenticate(ctx context.Context, confirm func(context.Context) error) error
	// Catalog reaches the catalog page and returns its surface.
	Catalog(ctx context.Context) (surface.Surface, error)
	Close() error
}

// Opener starts sessions. interactive is set for authentication runs.
type Opener interface {
	Open(ctx context.Context, interactive bool) (Session, error)
}

// BrowserOpener opens Chrome sessions through a browser.SessionManager.
type BrowserOpener struct {
	Manager *browser.SessionManager
}

// Open implements Opener.
func (o BrowserOpener) Open(ctx context.Context, interactive bool) (Session, error) {
	s, err := o.Manager.Open(ctx, interactive)
	if err != nil {
		return nil, err
	}
	return browserSession{s}, nil
}

type browserSession struct {
	s *browser.Session
}

func (b browserSession) Authenticate(ctx context.Context, confirm func(context.Context) error) error {
	return b.s.Authenticate(ctx, confirm)
}

func (b browserSession) Catalog(ctx context.Context) (surface.Surface, error) {
	surf, err := b.s.CatalogSurface(ctx)
	if err != nil {
		return nil, err
	}
	return surf, nil
}

func (b browserSession) Close() error {
	return b.s.Close()
}
