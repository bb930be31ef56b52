package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultMaxOpenConns bounds the connection pool; WAL mode allows multiple
// concurrent readers alongside a single writer.
const DefaultMaxOpenConns = 4

const schemaSQL = `
CREATE TABLE IF NOT EXISTS containers (
	container_id TEXT PRIMARY KEY,
	image        TEXT NOT NULL,
	status       TEXT NOT NULL,
	session_id   TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_containers_status ON containers(status);

CREATE TABLE IF NOT EXISTS sessions (
	id                    TEXT PRIMARY KEY,
	container_id          TEXT NOT NULL DEFAULT '',
	status                TEXT NOT NULL,
	queue_position        INTEGER NOT NULL DEFAULT 0,
	timeout_seconds       INTEGER NOT NULL DEFAULT 0,
	is_executing_command  INTEGER NOT NULL DEFAULT 0,
	command_count         INTEGER NOT NULL DEFAULT 0,
	created_at            DATETIME NOT NULL,
	last_activity_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
`

// dsnWithPragmas appends WAL/busy-timeout/perf pragmas applied per-connection
// by the sqlite driver, matching the concurrency profile of a pool daemon
// juggling API requests, background replenish, and the reaper at once.
func dsnWithPragmas(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(15000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=cache_size(-64000)" +
		"&_pragma=temp_store(MEMORY)"
}

func isBusyLock(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "database is locked") || strings.Contains(s, "SQLITE_BUSY")
}

func retryOnBusy(fn func() error) error {
	const maxAttempts = 4
	backoff := 25 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isBusyLock(lastErr) {
			return lastErr
		}
		if attempt < maxAttempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return lastErr
}

// DB opens a sqlite database at dbPath and runs migrations. The returned
// handle is shared by SQLContainerRepo and SQLSessionRepo.
func DB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsnWithPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxOpenConns)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// SQLContainerRepo is a sqlite-backed ContainerRepo for operators who want
// container history to survive a daemon restart.
type SQLContainerRepo struct {
	db *sql.DB
}

// NewSQLContainerRepo wraps an open database handle.
func NewSQLContainerRepo(db *sql.DB) *SQLContainerRepo {
	return &SQLContainerRepo{db: db}
}

func (r *SQLContainerRepo) Create(rec ContainerRecord) error {
	return retryOnBusy(func() error {
		_, err := r.db.Exec(
			`INSERT INTO containers (container_id, image, status, session_id, created_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(container_id) DO UPDATE SET image=excluded.image, status=excluded.status,
				session_id=excluded.session_id, created_at=excluded.created_at`,
			rec.ContainerID, rec.Image, rec.Status, rec.SessionID, rec.CreatedAt.UTC(),
		)
		return err
	})
}

func (r *SQLContainerRepo) Get(containerID string) (ContainerRecord, error) {
	row := r.db.QueryRow(
		`SELECT container_id, image, status, session_id, created_at FROM containers WHERE container_id = ?`,
		containerID,
	)
	return scanContainer(row)
}

func (r *SQLContainerRepo) Update(rec ContainerRecord) error {
	return retryOnBusy(func() error {
		res, err := r.db.Exec(
			`UPDATE containers SET image=?, status=?, session_id=?, created_at=? WHERE container_id=?`,
			rec.Image, rec.Status, rec.SessionID, rec.CreatedAt.UTC(), rec.ContainerID,
		)
		if err != nil {
			return err
		}
		return checkRowsAffected(res, ErrNotFound)
	})
}

func (r *SQLContainerRepo) Delete(containerID string) error {
	return retryOnBusy(func() error {
		_, err := r.db.Exec(`DELETE FROM containers WHERE container_id = ?`, containerID)
		return err
	})
}

func (r *SQLContainerRepo) List() ([]ContainerRecord, error) {
	rows, err := r.db.Query(`SELECT container_id, image, status, session_id, created_at FROM containers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContainers(rows)
}

func (r *SQLContainerRepo) ListByStatus(status string) ([]ContainerRecord, error) {
	rows, err := r.db.Query(`SELECT container_id, image, status, session_id, created_at FROM containers WHERE status = ? ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContainers(rows)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanContainer(row scannable) (ContainerRecord, error) {
	var rec ContainerRecord
	var sessionID string
	if err := row.Scan(&rec.ContainerID, &rec.Image, &rec.Status, &sessionID, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return ContainerRecord{}, ErrNotFound
		}
		return ContainerRecord{}, err
	}
	rec.SessionID = sessionID
	return rec, nil
}

func scanContainers(rows *sql.Rows) ([]ContainerRecord, error) {
	var out []ContainerRecord
	for rows.Next() {
		rec, err := scanContainer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func checkRowsAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// SQLSessionRepo is a sqlite-backed SessionRepo.
type SQLSessionRepo struct {
	db *sql.DB
}

// NewSQLSessionRepo wraps an open database handle.
func NewSQLSessionRepo(db *sql.DB) *SQLSessionRepo {
	return &SQLSessionRepo{db: db}
}

func (r *SQLSessionRepo) Create(rec SessionRecord) error {
	return retryOnBusy(func() error {
		_, err := r.db.Exec(
			`INSERT INTO sessions (id, container_id, status, queue_position, timeout_seconds,
				is_executing_command, command_count, created_at, last_activity_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET container_id=excluded.container_id, status=excluded.status,
				queue_position=excluded.queue_position, timeout_seconds=excluded.timeout_seconds,
				is_executing_command=excluded.is_executing_command, command_count=excluded.command_count,
				last_activity_at=excluded.last_activity_at`,
			rec.ID, rec.ContainerID, rec.Status, rec.QueuePosition, rec.TimeoutSeconds,
			boolToInt(rec.IsExecutingCommand), rec.CommandCount, rec.CreatedAt.UTC(), rec.LastActivityAt.UTC(),
		)
		return err
	})
}

func (r *SQLSessionRepo) Get(sessionID string) (SessionRecord, error) {
	row := r.db.QueryRow(
		`SELECT id, container_id, status, queue_position, timeout_seconds, is_executing_command,
			command_count, created_at, last_activity_at FROM sessions WHERE id = ?`, sessionID,
	)
	return scanSession(row)
}

func (r *SQLSessionRepo) Update(rec SessionRecord) error {
	return retryOnBusy(func() error {
		res, err := r.db.Exec(
			`UPDATE sessions SET container_id=?, status=?, queue_position=?, timeout_seconds=?,
				is_executing_command=?, command_count=?, last_activity_at=? WHERE id=?`,
			rec.ContainerID, rec.Status, rec.QueuePosition, rec.TimeoutSeconds,
			boolToInt(rec.IsExecutingCommand), rec.CommandCount, rec.LastActivityAt.UTC(), rec.ID,
		)
		if err != nil {
			return err
		}
		return checkRowsAffected(res, ErrNotFound)
	})
}

func (r *SQLSessionRepo) Delete(sessionID string) error {
	return retryOnBusy(func() error {
		_, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
		return err
	})
}

func (r *SQLSessionRepo) List() ([]SessionRecord, error) {
	rows, err := r.db.Query(`SELECT id, container_id, status, queue_position, timeout_seconds, is_executing_command,
		command_count, created_at, last_activity_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *SQLSessionRepo) ListByStatus(status string) ([]SessionRecord, error) {
	rows, err := r.db.Query(`SELECT id, container_id, status, queue_position, timeout_seconds, is_executing_command,
		command_count, created_at, last_activity_at FROM sessions WHERE status = ? ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *SQLSessionRepo) GetByContainerID(containerID string) (SessionRecord, error) {
	row := r.db.QueryRow(
		`SELECT id, container_id, status, queue_position, timeout_seconds, is_executing_command,
			command_count, created_at, last_activity_at FROM sessions WHERE container_id = ? LIMIT 1`, containerID,
	)
	return scanSession(row)
}

func scanSession(row scannable) (SessionRecord, error) {
	var rec SessionRecord
	var executing int
	if err := row.Scan(&rec.ID, &rec.ContainerID, &rec.Status, &rec.QueuePosition, &rec.TimeoutSeconds,
		&executing, &rec.CommandCount, &rec.CreatedAt, &rec.LastActivityAt); err != nil {
		if err == sql.ErrNoRows {
			return SessionRecord{}, ErrNotFound
		}
		return SessionRecord{}, err
	}
	rec.IsExecutingCommand = executing != 0
	return rec, nil
}

func scanSessions(rows *sql.Rows) ([]SessionRecord, error) {
	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
