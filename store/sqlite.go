package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	key             TEXT PRIMARY KEY,
	remote_kind     TEXT NOT NULL,
	ftp_host        TEXT NOT NULL DEFAULT '',
	ftp_user        TEXT NOT NULL DEFAULT '',
	ftp_pass        TEXT NOT NULL DEFAULT '',
	ftp_secure      INTEGER NOT NULL DEFAULT 0,
	ftp_base        TEXT NOT NULL DEFAULT '',
	drive_folder_id TEXT NOT NULL DEFAULT '',
	drive_token     TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);`

// SQLiteStore persists tenant configurations in a local sqlite database,
// one row per tenant key.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Get(ctx context.Context, key string) (TenantConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, remote_kind, ftp_host, ftp_user, ftp_pass, ftp_secure,
		       ftp_base, drive_folder_id, drive_token
		FROM tenants WHERE key = ?`, key)

	var cfg TenantConfig
	var kind string
	var secure int
	err := row.Scan(&cfg.Key, &kind, &cfg.FTPHost, &cfg.FTPUser, &cfg.FTPPass,
		&secure, &cfg.FTPBase, &cfg.DriveFolderID, &cfg.DriveToken)
	if errors.Is(err, sql.ErrNoRows) {
		return TenantConfig{}, ErrNotFound
	}
	if err != nil {
		return TenantConfig{}, fmt.Errorf("get tenant %s: %w", key, err)
	}
	cfg.Kind = RemoteKind(kind)
	cfg.FTPSecure = secure != 0
	return cfg, nil
}

func (s *SQLiteStore) Set(ctx context.Context, cfg TenantConfig) error {
	now := time.Now().UTC().Format(time.RFC3339)
	secure := 0
	if cfg.FTPSecure {
		secure = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (key, remote_kind, ftp_host, ftp_user, ftp_pass,
		                     ftp_secure, ftp_base, drive_folder_id, drive_token,
		                     created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			remote_kind = excluded.remote_kind,
			ftp_host = excluded.ftp_host,
			ftp_user = excluded.ftp_user,
			ftp_pass = excluded.ftp_pass,
			ftp_secure = excluded.ftp_secure,
			ftp_base = excluded.ftp_base,
			drive_folder_id = excluded.drive_folder_id,
			drive_token = excluded.drive_token,
			updated_at = excluded.updated_at`,
		cfg.Key, string(cfg.Kind), cfg.FTPHost, cfg.FTPUser, cfg.FTPPass,
		secure, cfg.FTPBase, cfg.DriveFolderID, cfg.DriveToken, now, now)
	if err != nil {
		return fmt.Errorf("set tenant %s: %w", cfg.Key, err)
	}
	return nil
}
