// Package journal 持久化每一条发出的运动指令与服务端回执，便于事后回放排查
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	direction  TEXT NOT NULL DEFAULT '',
	speed      INTEGER NOT NULL DEFAULT 0,
	success    INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session);
`

// Kind 记录类型
type Kind string

const (
	KindCommand  Kind = "command"
	KindFeedback Kind = "feedback"
)

// Entry 一条记录
type Entry struct {
	ID        int64     `json:"id"`
	Session   string    `json:"session"`
	Kind      Kind      `json:"kind"`
	Direction string    `json:"direction"`
	Speed     int       `json:"speed"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Journal 异步写入：Record 只入队，由单独协程落盘
type Journal struct {
	db  *sql.DB
	log *zap.SugaredLogger

	mu      sync.RWMutex
	closed  bool
	queue   chan Entry
	done    chan struct{}
	dropped atomic.Int64
}

// Open 打开（必要时创建）数据库并启动写协程
func Open(path string, log *zap.SugaredLogger) (*Journal, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	j := &Journal{
		db:    db,
		log:   log,
		queue: make(chan Entry, 512),
		done:  make(chan struct{}),
	}
	go j.loop()
	return j, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaV1); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_meta`).Scan(&n); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if n == 0 {
		if _, err := db.Exec(`INSERT INTO schema_meta(version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
		return nil
	}
	var v int
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_meta`).Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v > schemaVersion {
		return fmt.Errorf("journal schema v%d is newer than supported v%d", v, schemaVersion)
	}
	return nil
}

// Record 非阻塞入队；队列满或已关闭时返回 false
func (j *Journal) Record(e Entry) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return false
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	select {
	case j.queue <- e:
		return true
	default:
		j.dropped.Add(1)
		return false
	}
}

// Dropped 因队列满丢弃的记录数
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

func (j *Journal) loop() {
	defer close(j.done)
	for e := range j.queue {
		if err := j.insert(context.Background(), e); err != nil {
			j.log.Errorf("journal insert: %v", err)
		}
	}
}

func (j *Journal) insert(ctx context.Context, e Entry) error {
	success := 0
	if e.Success {
		success = 1
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO entries(session, kind, direction, speed, success, error, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Session, string(e.Kind), e.Direction, e.Speed, success, e.Error, e.At.UTC().Format(time.RFC3339Nano))
	return err
}

// Recent 最新的 limit 条记录，新的在前
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, session, kind, direction, speed, success, error, at FROM entries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			kind    string
			success int
			at      string
		)
		if err := rows.Scan(&e.ID, &e.Session, &kind, &e.Direction, &e.Speed, &success, &e.Error, &at); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		e.Kind = Kind(kind)
		e.Success = success != 0
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse time %q: %w", at, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close 写完队列中剩余记录后关闭数据库
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	<-j.done
	return j.db.Close()
}
