package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
	"ibsnap/internal/infrastructure/storage"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS cache_entries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  kind TEXT NOT NULL,
  sub_key TEXT NOT NULL DEFAULT '',
  payload TEXT NOT NULL,
  updated_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_kind_key ON cache_entries(kind, sub_key, id);

CREATE TABLE IF NOT EXISTS watchlist (
  symbol TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at_ms INTEGER NOT NULL
);
`)
	return err
}

// Write deletes all but the newest Retain()-1 entries of the key and
// inserts the new one in a single transaction.
func (r *Repo) Write(ctx context.Context, e model.CacheEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM cache_entries
		WHERE kind = ? AND sub_key = ? AND id NOT IN (
			SELECT id FROM cache_entries WHERE kind = ? AND sub_key = ? ORDER BY id DESC LIMIT ?
		)`, string(e.Kind), e.SubKey, string(e.Kind), e.SubKey, e.Kind.Retain()-1); err != nil {
		return fmt.Errorf("prune %s: %w", e.Kind, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_entries(kind, sub_key, payload, updated_at_ms) VALUES(?, ?, ?, ?)`,
		string(e.Kind), e.SubKey, string(e.Payload), storage.ToMillis(e.UpdatedAt)); err != nil {
		return fmt.Errorf("insert %s: %w", e.Kind, err)
	}
	return tx.Commit()
}

func (r *Repo) Read(ctx context.Context, kind model.CacheKind, subKey string) (model.CacheEntry, bool, error) {
	list, err := r.History(ctx, kind, subKey, 1)
	if err != nil || len(list) == 0 {
		return model.CacheEntry{}, false, err
	}
	return list[0], true, nil
}

func (r *Repo) History(ctx context.Context, kind model.CacheKind, subKey string, limit int) ([]model.CacheEntry, error) {
	if limit <= 0 {
		limit = kind.Retain()
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload, updated_at_ms FROM cache_entries
		WHERE kind = ? AND sub_key = ? ORDER BY id DESC LIMIT ?`, string(kind), subKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CacheEntry
	for rows.Next() {
		var payload string
		var ms int64
		if err := rows.Scan(&payload, &ms); err != nil {
			return nil, err
		}
		out = append(out, model.CacheEntry{
			Kind:      kind,
			SubKey:    subKey,
			Payload:   []byte(payload),
			UpdatedAt: storage.FromMillis(ms),
		})
	}
	return out, rows.Err()
}

func (r *Repo) ListWatchlist(ctx context.Context) ([]model.WatchlistEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, name FROM watchlist ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WatchlistEntry
	for rows.Next() {
		var e model.WatchlistEntry
		if err := rows.Scan(&e.Symbol, &e.Name); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) AddSymbol(ctx context.Context, symbol, name string) error {
	symbol = storage.NormalizeSymbol(symbol)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO watchlist(symbol, name, created_at_ms) VALUES(?, ?, ?)
		ON CONFLICT(symbol) DO NOTHING`, symbol, name, storage.ToMillis(time.Now()))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return port.ErrDuplicateSymbol
	}
	return nil
}

func (r *Repo) RemoveSymbols(ctx context.Context, symbols ...string) (int, error) {
	symbols = storage.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return 0, nil
	}
	args := make([]any, len(symbols))
	for i, s := range symbols {
		args[i] = s
	}
	in := storage.Placeholders(len(symbols), func(int) string { return "?" })

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM watchlist WHERE symbol IN (`+in+`)`, args...)
	if err != nil {
		return 0, err
	}
	removed, _ := res.RowsAffected()

	quoteArgs := append([]any{string(model.KindQuote)}, args...)
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE kind = ? AND sub_key IN (`+in+`)`, quoteArgs...); err != nil {
		return 0, err
	}
	return int(removed), tx.Commit()
}

var _ port.Repository = (*Repo)(nil)
