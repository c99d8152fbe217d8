package config

import (
	"fmt"
	"strings"
)

// Source kinds.
const (
	SourceDrive = "drive"
	SourceGCS   = "gcs"
	SourceS3    = "s3"
	SourceLocal = "local"
)

// Google auth types.
const (
	AuthServiceAccount = "service_account"
	AuthOAuth          = "oauth"
)

// ValidSourceKinds lists all supported folder backends.
var ValidSourceKinds = []string{SourceDrive, SourceGCS, SourceS3, SourceLocal}

// SourceConfig configures the remote folder holding the spreadsheet.
type SourceConfig struct {
	Kind string `yaml:"kind"` // drive, gcs, s3, local

	// Google Drive
	FolderID           string `yaml:"folder_id"`
	AuthType           string `yaml:"auth_type"`            // service_account, oauth
	ServiceAccountJSON string `yaml:"service_account_json"` // path to key file
	OAuthTokenJSON     string `yaml:"oauth_token_json"`     // path to saved token

	// GCS / S3
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // MinIO, LocalStack

	// Local directory
	LocalDir string `yaml:"local_dir"`
}

// Validate checks that the configured backend has what it needs.
func (s SourceConfig) Validate() error {
	switch strings.ToLower(s.Kind) {
	case SourceDrive:
		if s.FolderID == "" {
			return fmt.Errorf("%w: GDRIVE_FOLDER_ID not set", ErrInvalid)
		}
		switch s.AuthType {
		case AuthServiceAccount, "":
			if s.ServiceAccountJSON == "" {
				return fmt.Errorf("%w: GOOGLE_SERVICE_ACCOUNT_JSON not set (e.g. ./sa.json)", ErrInvalid)
			}
		case AuthOAuth:
			if s.OAuthTokenJSON == "" {
				return fmt.Errorf("%w: GOOGLE_OAUTH_TOKEN_JSON not set", ErrInvalid)
			}
		default:
			return fmt.Errorf("%w: invalid auth type %q (valid: %s, %s)", ErrInvalid, s.AuthType, AuthServiceAccount, AuthOAuth)
		}
	case SourceGCS, SourceS3:
		if s.Bucket == "" {
			return fmt.Errorf("%w: source.bucket not set for %s", ErrInvalid, s.Kind)
		}
	case SourceLocal:
		if s.LocalDir == "" {
			return fmt.Errorf("%w: source.local_dir not set", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: invalid source kind %q (valid: %v)", ErrInvalid, s.Kind, ValidSourceKinds)
	}
	return nil
}
