package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"catalogsync/internal/config"
)

// CredentialProvider supplies client options for Google API clients.
type CredentialProvider interface {
	ClientOptions(ctx context.Context) ([]option.ClientOption, error)
}

// ServiceAccountFile authenticates with a service account JSON key.
type ServiceAccountFile struct {
	Path   string
	Scopes []string
}

// ClientOptions implements CredentialProvider.
func (s ServiceAccountFile) ClientOptions(ctx context.Context) ([]option.ClientOption, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("%w: service account key path is empty", ErrCredentials)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}
	scopes := s.Scopes
	if len(scopes) == 0 {
		scopes = []string{drive.DriveReadonlyScope}
	}
	conf, err := google.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCredentials, s.Path, err)
	}
	return []option.ClientOption{option.WithTokenSource(conf.TokenSource(ctx))}, nil
}

// OAuthTokenFile authenticates with a previously issued OAuth2 token.
type OAuthTokenFile struct {
	Path string
}

// ClientOptions implements CredentialProvider.
func (o OAuthTokenFile) ClientOptions(ctx context.Context) ([]option.ClientOption, error) {
	if o.Path == "" {
		return nil, fmt.Errorf("%w: oauth token path is empty", ErrCredentials)
	}
	data, err := os.ReadFile(o.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCredentials, o.Path, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s has no access_token", ErrCredentials, o.Path)
	}
	return []option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(&tok))}, nil
}

// StaticOptions passes fixed client options through. Useful for emulators
// and application default credentials (no options).
type StaticOptions []option.ClientOption

// ClientOptions implements CredentialProvider.
func (s StaticOptions) ClientOptions(context.Context) ([]option.ClientOption, error) {
	return s, nil
}

// CredentialsFor picks the provider matching cfg.
func CredentialsFor(cfg config.SourceConfig) CredentialProvider {
	switch cfg.Kind {
	case config.SourceDrive:
		if cfg.AuthType == config.AuthOAuth {
			return OAuthTokenFile{Path: cfg.OAuthTokenJSON}
		}
		return ServiceAccountFile{Path: cfg.ServiceAccountJSON}
	case config.SourceGCS:
		if cfg.ServiceAccountJSON != "" {
			return ServiceAccountFile{
				Path:   cfg.ServiceAccountJSON,
				Scopes: []string{"https://www.googleapis.com/auth/devstorage.read_only"},
			}
		}
	}
	return StaticOptions(nil)
}
