package config

import (
	"fmt"
	"strings"
)

// Browser strategies.
const (
	StrategyProfile = "profile" // reuse a real, already logged-in Chrome profile
	StrategySession = "session" // isolated Chrome with a saved cookie jar
)

// BrowserConfig configures Chrome.
type BrowserConfig struct {
	Strategy       string `yaml:"strategy"`      // profile, session; empty = auto
	UserDataDir    string `yaml:"user_data_dir"` // ...\User Data or ...\User Data\Default
	Profile        string `yaml:"profile"`       // Default, Profile 1, ...
	Executable     string `yaml:"executable"`
	Headless       bool   `yaml:"headless"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
	SessionFile    string `yaml:"session_file"` // saved cookie jar for the session strategy
}

// ResolvedStrategy returns the explicit strategy, or profile when a user data
// dir is configured and session otherwise.
func (b BrowserConfig) ResolvedStrategy() string {
	if s := strings.ToLower(strings.TrimSpace(b.Strategy)); s != "" {
		return s
	}
	if b.UserDataDir != "" {
		return StrategyProfile
	}
	return StrategySession
}

// Validate checks the strategy has its session material configured.
func (b BrowserConfig) Validate() error {
	switch b.ResolvedStrategy() {
	case StrategyProfile:
		if b.UserDataDir == "" {
			return fmt.Errorf("%w: CHROME_USER_DATA_DIR not set for the profile strategy", ErrInvalid)
		}
	case StrategySession:
		if b.SessionFile == "" {
			return fmt.Errorf("%w: browser.session_file not set for the session strategy", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: invalid browser strategy %q (valid: %s, %s)", ErrInvalid, b.Strategy, StrategyProfile, StrategySession)
	}
	return nil
}
