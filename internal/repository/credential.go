package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/coneflip/overlay-server-go/internal/database"
	"github.com/coneflip/overlay-server-go/internal/model"
	"github.com/coneflip/overlay-server-go/internal/util"
)

// CredentialRepository stores the single durable credential record. Load
// returns nil when nothing has been saved yet.
type CredentialRepository interface {
	Load(ctx context.Context) (*model.CredentialRecord, error)
	Save(ctx context.Context, record model.CredentialRecord) error
}

// fileCredentialRepo keeps the record as JSON on local disk, sealed with
// AES-GCM when an encryption key is configured.
type fileCredentialRepo struct {
	path          string
	encryptionKey string
}

func NewFileCredentialRepository(path, encryptionKey string) CredentialRepository {
	return &fileCredentialRepo{path: path, encryptionKey: encryptionKey}
}

func (r *fileCredentialRepo) Load(_ context.Context) (*model.CredentialRecord, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	data := raw
	if r.encryptionKey != "" {
		data, err = util.Decrypt(r.encryptionKey, strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("decrypt credential file: %w", err)
		}
	}

	var record model.CredentialRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse credential file: %w", err)
	}
	return &record, nil
}

// Save writes to a temp file and renames it over the target so a crash
// never leaves a half-written record.
func (r *fileCredentialRepo) Save(_ context.Context, record model.CredentialRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	if r.encryptionKey != "" {
		sealed, err := util.Encrypt(r.encryptionKey, data)
		if err != nil {
			return fmt.Errorf("encrypt credential: %w", err)
		}
		data = []byte(sealed)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".credential-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod credential: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

type pgCredentialRepo struct {
	db database.DBTX
}

// NewPostgresCredentialRepository keeps the record in a single-row table so
// several instances behind a load balancer share one credential.
func NewPostgresCredentialRepository(db database.DBTX) CredentialRepository {
	return &pgCredentialRepo{db: db}
}

func (r *pgCredentialRepo) Load(ctx context.Context) (*model.CredentialRecord, error) {
	var record model.CredentialRecord
	err := r.db.GetContext(ctx, &record, `
		SELECT token, created_at, version FROM access_credential WHERE id = 1
	`)
	return HandleNotFound(&record, err)
}

func (r *pgCredentialRepo) Save(ctx context.Context, record model.CredentialRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_credential (id, token, created_at, version)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token,
			created_at = EXCLUDED.created_at,
			version = EXCLUDED.version
	`, record.Token, record.CreatedAt, record.Version)
	return err
}
