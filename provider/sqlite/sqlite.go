// Package sqlite implements a durable Provider on modernc.org/sqlite
// (pure Go, no cgo). Pages survive restarts, which pairs well with
// PersistSize and the dedup clock recorded in entry frames: a fresh process
// serves cached pages without refetching anything still inside the window.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
    cache_key  TEXT PRIMARY KEY,
    payload    BLOB NOT NULL,
    expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires ON cache_entries(expires_at) WHERE expires_at > 0;
`

type Provider struct {
	db *sql.DB

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

type Config struct {
	// Path is the database file. ":memory:" works for tests.
	Path string
	// VacuumInterval enables a background sweep of expired rows.
	// 0 disables the sweep; expired rows are then pruned lazily on Get.
	VacuumInterval time.Duration
}

func Open(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sqlite provider: path is required")
	}

	cleanPath := cfg.Path
	if cleanPath != ":memory:" {
		cleanPath = filepath.Clean(cleanPath)
	}
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	p := &Provider{db: db}
	if cfg.VacuumInterval > 0 {
		p.ticker = time.NewTicker(cfg.VacuumInterval)
		p.stopCh = make(chan struct{})
		p.wg.Add(1)
		go p.vacuumLoop()
	}
	return p, nil
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM cache_entries WHERE cache_key = ?`, key)

	var payload []byte
	var expiresAt int64
	if err := row.Scan(&payload, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}
	if expiresAt > 0 && expiresAt <= time.Now().UnixNano() {
		_, _ = p.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key = ?`, key)
		return nil, false, nil
	}
	return payload, true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO cache_entries (cache_key, payload, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   payload = excluded.payload,
		   expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return false, fmt.Errorf("put cache entry: %w", err)
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.once.Do(func() {
		if p.stopCh != nil {
			close(p.stopCh)
			p.wg.Wait()
			p.ticker.Stop()
		}
	})
	return p.db.Close()
}

// PurgeExpired removes all rows whose TTL has passed and reports how many
// were deleted.
func (p *Provider) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at > 0 AND expires_at <= ?`, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (p *Provider) vacuumLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ticker.C:
			_, _ = p.PurgeExpired(context.Background())
		case <-p.stopCh:
			return
		}
	}
}
