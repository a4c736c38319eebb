package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	clierr "solflow/internal/errors"
	"solflow/internal/intent"
)

// Record is one completed or failed execution as written to the
// history log. The engine never reads history; it exists for the
// operator.
type Record struct {
	ID           string      `json:"id"`
	Owner        string      `json:"owner"`
	Kind         intent.Kind `json:"kind"`
	Summary      string      `json:"summary"`
	Status       string      `json:"status"`
	Signature    string      `json:"signature,omitempty"`
	InBaseUnits  uint64      `json:"in_base_units"`
	OutBaseUnits uint64      `json:"out_base_units,omitempty"`
	FeeLamports  uint64      `json:"fee_lamports,omitempty"`
	DestTxHash   string      `json:"dest_tx_hash,omitempty"`
	ErrorCode    clierr.Code `json:"error_code,omitempty"`
	ErrorText    string      `json:"error_text,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

const (
	StatusSettled = "settled"
	StatusFailed  = "failed"
)

// History is a sqlite-backed execution log guarded by a file lock so
// concurrent processes do not interleave writes.
type History struct {
	db   *sql.DB
	lock *flock.Flock
}

func OpenHistory(path, lockPath string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_executions_owner_created ON executions(owner, created_at DESC);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init history schema: %w", err)
		}
	}
	return &History{db: db, lock: flock.New(lockPath)}, nil
}

func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

func (h *History) Save(rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("save execution: missing id")
	}
	locked, err := h.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock history: timeout acquiring lock")
	}
	defer func() { _ = h.lock.Unlock() }()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal execution: %w", err)
	}
	_, err = h.db.Exec(`
		INSERT INTO executions (id, owner, kind, status, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			payload=excluded.payload
	`, rec.ID, rec.Owner, string(rec.Kind), rec.Status, rec.CreatedAt.Unix(), payload)
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}
	return nil
}

// List returns the owner's most recent executions, newest first. An
// empty owner lists across owners.
func (h *History) List(owner string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if strings.TrimSpace(owner) == "" {
		rows, err = h.db.Query("SELECT payload FROM executions ORDER BY created_at DESC LIMIT ?", limit)
	} else {
		rows, err = h.db.Query("SELECT payload FROM executions WHERE owner = ? ORDER BY created_at DESC LIMIT ?", owner, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode execution row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution rows: %w", err)
	}
	return records, nil
}

func (h *History) Get(id string) (Record, error) {
	var payload []byte
	err := h.db.QueryRow("SELECT payload FROM executions WHERE id = ?", id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("execution not found: %s", id)
		}
		return Record{}, fmt.Errorf("read execution: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("decode execution payload: %w", err)
	}
	return rec, nil
}
