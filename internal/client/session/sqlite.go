package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/masaclient/internal/client/migrations"
	"github.com/dmitrijs2005/masaclient/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/dmitrijs2005/masaclient/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// RunMigrations brings the session database schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// OpenDatabase opens (creating if needed) the SQLite file at dsn and runs
// migrations.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	return db, nil
}

// SQLiteStore persists the credential as JSON in the metadata table under
// common.SessionStorageKey. The email of the last saved credential is kept
// under common.LastEmailKey and survives Clear.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context) (*Credential, error) {
	rec, err := metadata.NewSQLiteRepository(s.db).Get(ctx, common.SessionStorageKey)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoSession
	}

	var c Credential
	if err := json.Unmarshal(rec.Value, &c); err != nil {
		return nil, fmt.Errorf("decode stored session: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) Save(ctx context.Context, c Credential) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.SessionStorageKey, b); err != nil {
			return err
		}
		if c.Email == "" {
			return nil
		}
		return repo.Set(ctx, common.LastEmailKey, []byte(c.Email))
	})
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return metadata.NewSQLiteRepository(s.db).Delete(ctx, common.SessionStorageKey)
}

// LastEmail returns the email of the most recently saved credential, or "".
func (s *SQLiteStore) LastEmail(ctx context.Context) (string, error) {
	rec, err := metadata.NewSQLiteRepository(s.db).Get(ctx, common.LastEmailKey)
	if err != nil || rec == nil {
		return "", err
	}
	return string(rec.Value), nil
}
