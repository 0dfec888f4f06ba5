// Package indexdb keeps a queryable SQLite index of territory deltas: the
// full history plus the newest value of every sub-state.
package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"skyclaim.ai/internal/persistence"
	"skyclaim.ai/internal/territory"
)

// ErrQueueFull is returned by Save when the writer has fallen behind and the
// delta was dropped.
var ErrQueueFull = errors.New("indexdb: queue full, delta dropped")

var errClosed = errors.New("indexdb: closed")

const (
	defaultQueue  = 65536
	commitEvery   = 2000
	commitMaxWait = 2 * time.Second
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu guards sends on ch against the close in Close.
	mu     sync.RWMutex
	closed bool

	dropped   atomic.Uint64
	written   atomic.Uint64
	writeFail atomic.Uint64
}

type req struct {
	rec  persistence.Record
	sync chan struct{}
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	Written       uint64
	Dropped       uint64
	WriteFailed   uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, defaultQueue)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
		`CREATE TABLE IF NOT EXISTS deltas (
			territory_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			at TEXT NOT NULL,
			payload TEXT,
			PRIMARY KEY (territory_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_deltas_kind ON deltas(territory_id, kind, seq);`,
		`CREATE TABLE IF NOT EXISTS latest (
			territory_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			seq INTEGER NOT NULL,
			at TEXT NOT NULL,
			payload TEXT,
			PRIMARY KEY (territory_id, kind)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Save queues the delta for the writer goroutine. It never blocks: when the
// queue is full the delta is dropped and ErrQueueFull returned.
func (s *SQLiteIndex) Save(ctx context.Context, id uuid.UUID, d territory.Delta) error {
	if s == nil {
		return errClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := persistence.NewRecord(id, d)
	if err != nil {
		return fmt.Errorf("indexdb: encode %s delta: %w", d.Kind, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	select {
	case s.ch <- req{rec: rec}:
		return nil
	default:
		s.dropped.Add(1)
		return ErrQueueFull
	}
}

// Sync waits until every delta queued before the call is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil {
		return errClosed
	}
	done := make(chan struct{})
	if err := s.send(ctx, req{sync: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) send(ctx context.Context, r req) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	select {
	case s.ch <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		Written:       s.written.Load(),
		Dropped:       s.dropped.Load(),
		WriteFailed:   s.writeFail.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertDelta, _ := s.db.Prepare(`INSERT OR REPLACE INTO deltas(territory_id,seq,kind,at,payload) VALUES(?,?,?,?,?)`)
	upsertLatest, _ := s.db.Prepare(`INSERT INTO latest(territory_id,kind,seq,at,payload) VALUES(?,?,?,?,?)
		ON CONFLICT(territory_id,kind) DO UPDATE SET seq=excluded.seq, at=excluded.at, payload=excluded.payload
		WHERE excluded.seq > latest.seq`)
	defer func() {
		if insertDelta != nil {
			_ = insertDelta.Close()
		}
		if upsertLatest != nil {
			_ = upsertLatest.Close()
		}
	}()

	var (
		tx         *sql.Tx
		opCount    int
		lastCommit = time.Now()
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeFail.Add(uint64(opCount))
		} else {
			s.written.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.writeFail.Add(uint64(opCount) + 1)
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.sync != nil {
			commit()
			close(r.sync)
			continue
		}
		begin()
		if tx == nil {
			s.writeFail.Add(1)
			continue
		}
		if insertDelta == nil || upsertLatest == nil {
			rollback()
			continue
		}
		rec := r.rec
		id := rec.TerritoryID.String()
		at := rec.At.Format(time.RFC3339Nano)
		payload := nullable(rec.Payload)
		if _, err := tx.Stmt(insertDelta).Exec(id, int64(rec.Seq), string(rec.Kind), at, payload); err != nil {
			rollback()
			continue
		}
		if _, err := tx.Stmt(upsertLatest).Exec(id, string(rec.Kind), int64(rec.Seq), at, payload); err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
