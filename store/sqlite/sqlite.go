/*
Package sqlite provides a SQLite-backed contract Repository.

PURPOSE:
  Persists each contract aggregate as a single JSON document. The engine
  treats storage as a key-value store of whole aggregates, so the schema is
  deliberately a document table: the JSON column is authoritative and a few
  extracted columns (owner, parcel, registration date) exist only to serve
  lookups without decoding every document.

ATOMIC REPLACE:
  Replace is a single upsert of the whole row. There is no per-field
  UPDATE anywhere; partial writes cannot tear a schedule.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - multiple readers don't block
  - single writer at a time
  - better crash recovery

USAGE:
  store, err := sqlite.New("./data/cobranza.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - contract/repository.go: interface definition
  - store/memory: in-memory implementation for tests
  - store/redis: document-store implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/solterra/cobranza/contract"
)

// Store implements contract.Repository on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		manzana TEXT NOT NULL,
		lote TEXT NOT NULL,
		fecha_registro TEXT NOT NULL,
		data_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_owner
		ON contracts(owner_id);

	-- Listing is newest-first by registration date.
	CREATE INDEX IF NOT EXISTS idx_contracts_owner_registro
		ON contracts(owner_id, fecha_registro DESC);

	CREATE INDEX IF NOT EXISTS idx_contracts_parcel
		ON contracts(manzana, lote);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPOSITORY IMPLEMENTATION
// =============================================================================

func (s *Store) Get(ctx context.Context, id string) (*contract.Contract, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT data_json FROM contracts WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contract.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return decode(raw)
}

func (s *Store) Replace(ctx context.Context, c *contract.Contract) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode contract: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contracts (id, owner_id, manzana, lote, fecha_registro, data_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			manzana = excluded.manzana,
			lote = excluded.lote,
			fecha_registro = excluded.fecha_registro,
			data_json = excluded.data_json,
			updated_at = excluded.updated_at`,
		c.ID, c.OwnerID, c.Manzana, c.Lote, c.FechaRegistro.ISO(),
		string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("replace contract: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, ownerID string) ([]*contract.Contract, error) {
	query := `SELECT data_json FROM contracts ORDER BY fecha_registro DESC, id`
	args := []any{}
	if ownerID != "" {
		query = `SELECT data_json FROM contracts WHERE owner_id = ? ORDER BY fecha_registro DESC, id`
		args = append(args, ownerID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []*contract.Contract
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		c, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return contract.ErrNotFound
	}
	return nil
}

func decode(raw string) (*contract.Contract, error) {
	var c contract.Contract
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("decode contract: %w", err)
	}
	return &c, nil
}
