package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound signals a tenant key with no stored configuration. Callers
// must configure before a runtime can be built for the key.
var ErrNotFound = errors.New("tenant config not found")

type RemoteKind string

const (
	KindFTP   RemoteKind = "ftp"
	KindDrive RemoteKind = "drive"
)

// TenantConfig is one tenant's remote-source configuration. Runtimes hold
// an immutable snapshot; edits require a registry rebuild to take effect.
type TenantConfig struct {
	Key  string
	Kind RemoteKind

	FTPHost   string
	FTPUser   string
	FTPPass   string
	FTPSecure bool
	FTPBase   string

	DriveFolderID string
	DriveToken    string
}

// Store is the persisted configuration backend. Encryption at rest is the
// deployment's concern, not modeled here.
type Store interface {
	Get(ctx context.Context, key string) (TenantConfig, error)
	Set(ctx context.Context, cfg TenantConfig) error
}

var keyRe = regexp.MustCompile(`^[a-f0-9]{16}$`)

// ValidKey reports whether s is a well-formed tenant key.
func ValidKey(s string) bool { return keyRe.MatchString(s) }

// NewKey generates a fresh 16-char lowercase hex tenant key.
func NewKey() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate tenant key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
