// Package browser drives the merchant panel through a scripted Chrome.
//
// Two session strategies exist. The profile strategy reuses an operator's
// real, already signed-in Chrome profile. The session strategy launches an
// isolated Chrome and restores a cookie jar saved by an earlier interactive
// login.
package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"catalogsync/internal/config"
	"catalogsync/internal/logging"
)

var (
	// ErrConfig is the umbrella for profile and session misconfiguration.
	ErrConfig = errors.New("browser session misconfigured")

	// ErrProfileNotConfigured means the profile strategy has no user data dir.
	ErrProfileNotConfigured = fmt.Errorf("%w: no chrome profile configured", ErrConfig)

	// ErrNoSavedSession means the session strategy found no saved cookies
	// and the run is not an interactive login.
	ErrNoSavedSession = fmt.Errorf("%w: no saved session, run login first", ErrConfig)

	// ErrCatalogUnreachable means every catalog URL candidate failed.
	ErrCatalogUnreachable = errors.New("catalog unreachable")
)

// disguiseJS runs before any page script and hides the automation markers
// panels check for.
const disguiseJS = `(() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'languages', { get: () => ['pt-BR', 'pt', 'en-US', 'en'] });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3] });
	window.chrome = window.chrome || { runtime: {} };
})();`

// Config holds browser configuration.
type Config struct {
	Strategy       string
	UserDataDir    string
	Profile        string
	Executable     string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int

	NavigationTimeout time.Duration // per catalog URL attempt
	ActionTimeout     time.Duration // per element wait
	Pace              time.Duration // minimum gap between UI interactions

	LoginURL       string
	CatalogURLs    []string // primary first, then fallbacks
	CatalogPattern string   // landed URL must match; empty accepts any
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:          config.StrategySession,
		ViewportWidth:     1366,
		ViewportHeight:    900,
		NavigationTimeout: 45 * time.Second,
		ActionTimeout:     8 * time.Second,
		Pace:              400 * time.Millisecond,
	}
}

// ConfigFrom maps the application config onto browser settings.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Strategy:          cfg.Browser.ResolvedStrategy(),
		UserDataDir:       cfg.Browser.UserDataDir,
		Profile:           cfg.Browser.Profile,
		Executable:        cfg.Browser.Executable,
		Headless:          cfg.Browser.Headless,
		ViewportWidth:     cfg.Browser.ViewportWidth,
		ViewportHeight:    cfg.Browser.ViewportHeight,
		NavigationTimeout: cfg.GetNavigationTimeout(),
		ActionTimeout:     cfg.GetActionTimeout(),
		Pace:              cfg.GetPace(),
		LoginURL:          cfg.Panel.LoginURL,
		CatalogURLs:       cfg.Panel.CatalogCandidates(),
		CatalogPattern:    cfg.Panel.CatalogPattern,
	}
}

// GetViewportWidth returns viewport width.
func (c Config) GetViewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1366
	}
	return c.ViewportWidth
}

// GetViewportHeight returns viewport height.
func (c Config) GetViewportHeight() int {
	if c.ViewportHeight == 0 {
		return 900
	}
	return c.ViewportHeight
}

// GetNavigationTimeout returns the per-attempt navigation timeout.
func (c Config) GetNavigationTimeout() time.Duration {
	if c.NavigationTimeout <= 0 {
		return 45 * time.Second
	}
	return c.NavigationTimeout
}

// GetActionTimeout returns the per-element wait timeout.
func (c Config) GetActionTimeout() time.Duration {
	if c.ActionTimeout <= 0 {
		return 8 * time.Second
	}
	return c.ActionTimeout
}

// SessionManager opens browser sessions according to the configured strategy.
type SessionManager struct {
	cfg    Config
	tokens TokenStore
}

// NewSessionManager creates a session manager. tokens may be nil when only
// the profile strategy is used.
func NewSessionManager(cfg Config, tokens TokenStore) *SessionManager {
	return &SessionManager{cfg: cfg, tokens: tokens}
}

// Open launches Chrome and returns a session. interactive is true for the
// login flow, which may start without saved cookies.
func (m *SessionManager) Open(ctx context.Context, interactive bool) (*Session, error) {
	var (
		l       *launcher.Launcher
		cookies []*proto.NetworkCookieParam
		temp    bool
	)

	switch m.cfg.Strategy {
	case config.StrategyProfile:
		dir, profile, ok := ResolveProfile(m.cfg.UserDataDir, m.cfg.Profile)
		if !ok {
			return nil, ErrProfileNotConfigured
		}
		logging.Browser("using chrome profile %q in %s", profile, dir)
		// A real profile renders like a normal window; headless would
		// invalidate its cookies on some panels.
		l = launcher.New().
			UserDataDir(dir).
			Headless(false).
			Leakless(false).
			Set(flags.Flag("profile-directory"), profile).
			Set(flags.Flag("start-maximized")).
			Delete(flags.Flag("enable-automation"))

	case config.StrategySession:
		if m.tokens == nil {
			return nil, fmt.Errorf("%w: no session token store", ErrConfig)
		}
		saved, found, err := m.tokens.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		if !found && !interactive {
			return nil, ErrNoSavedSession
		}
		cookies = saved
		temp = true
		l = launcher.New().Headless(m.cfg.Headless && !interactive)

	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrConfig, m.cfg.Strategy)
	}

	if m.cfg.Executable != "" {
		l = l.Bin(m.cfg.Executable)
	}

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	s := &Session{cfg: m.cfg, tokens: m.tokens, browser: browser, launcher: l, tempProfile: temp}

	if len(cookies) > 0 {
		if err := browser.SetCookies(cookies); err != nil {
			s.Close()
			return nil, fmt.Errorf("restore cookies: %w", err)
		}
		logging.BrowserDebug("restored %d cookies", len(cookies))
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	if m.cfg.Strategy == config.StrategySession {
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             m.cfg.GetViewportWidth(),
			Height:            m.cfg.GetViewportHeight(),
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}).Call(page); err != nil {
			logging.BrowserWarn("failed to set viewport: %v", err)
		}
	}
	if _, err := page.EvalOnNewDocument(disguiseJS); err != nil {
		s.Close()
		return nil, fmt.Errorf("install page init script: %w", err)
	}
	s.page = page

	logging.Browser("browser session opened (%s strategy)", m.cfg.Strategy)
	return s, nil
}

// Session owns one Chrome process and its working page. It must be closed.
type Session struct {
	cfg    Config
	tokens TokenStore

	browser     *rod.Browser
	launcher    *launcher.Launcher
	page        *rod.Page
	tempProfile bool

	closeOnce sync.Once
	closeErr  error
}

// Authenticate establishes or refreshes panel access. The profile strategy
// only needs to reach the catalog; the session strategy runs the
// interactive login and saves the resulting cookies.
func (s *Session) Authenticate(ctx context.Context, confirm func(context.Context) error) error {
	if s.cfg.Strategy == config.StrategyProfile {
		_, err := s.GotoCatalog(ctx)
		return err
	}
	return s.Login(ctx, confirm)
}

// Login opens the login page, blocks on confirm while the operator signs in,
// then saves the browser cookies.
func (s *Session) Login(ctx context.Context, confirm func(context.Context) error) error {
	if s.tokens == nil {
		return fmt.Errorf("%w: no session token store", ErrConfig)
	}
	if s.cfg.LoginURL != "" {
		if err := s.page.Context(ctx).Timeout(s.cfg.GetNavigationTimeout()).Navigate(s.cfg.LoginURL); err != nil {
			return fmt.Errorf("open login page: %w", err)
		}
	}
	logging.Browser("waiting for operator to finish signing in at %s", s.cfg.LoginURL)
	if confirm != nil {
		if err := confirm(ctx); err != nil {
			return fmt.Errorf("login not confirmed: %w", err)
		}
	}

	cookies, err := s.browser.GetCookies()
	if err != nil {
		return fmt.Errorf("get cookies: %w", err)
	}
	if err := s.tokens.Save(ctx, cookies); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	logging.Browser("saved session with %d cookies", len(cookies))
	return nil
}

// GotoCatalog navigates to the first catalog URL candidate that lands on a
// URL matching the catalog pattern.
func (s *Session) GotoCatalog(ctx context.Context) (*rod.Page, error) {
	var pattern *regexp.Regexp
	if s.cfg.CatalogPattern != "" {
		re, err := regexp.Compile(s.cfg.CatalogPattern)
		if err != nil {
			return nil, fmt.Errorf("%w: catalog pattern: %v", ErrConfig, err)
		}
		pattern = re
	}
	if len(s.cfg.CatalogURLs) == 0 {
		return nil, fmt.Errorf("%w: no catalog URL", ErrCatalogUnreachable)
	}

	var lastErr error
	for _, u := range s.cfg.CatalogURLs {
		landed, err := s.tryCatalog(ctx, u)
		if err == nil && (pattern == nil || pattern.MatchString(landed)) {
			logging.Browser("catalog reached at %s", landed)
			return s.page, nil
		}
		if err == nil {
			err = fmt.Errorf("landed on %s", landed)
		}
		logging.BrowserWarn("catalog candidate %s failed: %v", u, err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrCatalogUnreachable, lastErr)
}

// CatalogSurface reaches the catalog and wraps its page in a Surface.
func (s *Session) CatalogSurface(ctx context.Context) (*Surface, error) {
	page, err := s.GotoCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return NewSurface(page, s.cfg), nil
}

func (s *Session) tryCatalog(ctx context.Context, u string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.GetNavigationTimeout())
	defer cancel()

	p := s.page.Context(attemptCtx)
	if err := p.Navigate(u); err != nil {
		return "", err
	}
	if err := p.WaitLoad(); err != nil {
		return "", err
	}
	info, err := p.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Close shuts Chrome down. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
		if s.launcher == nil {
			return
		}
		if s.closeErr != nil {
			s.launcher.Kill()
		}
		// Cleanup deletes the user data dir, so never for a real profile.
		if s.tempProfile {
			s.launcher.Cleanup()
		}
		logging.Browser("browser session closed")
	})
	return s.closeErr
}
