package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"fpa-bridge/internal/bridge"
)

// SQLite stores every record as a row; payload holds the JSON view.
type SQLite struct {
	mu   sync.Mutex
	db   *sql.DB
	stmt *sql.Stmt
}

func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; the driver serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			header            TEXT NOT NULL,
			version           INTEGER NOT NULL,
			gps_week          INTEGER,
			gps_tow           DOUBLE,
			received_utc      TEXT NOT NULL,
			payload           TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS records_header_idx ON records(header, id);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}

	stmt, err := db.Prepare(`INSERT INTO records (header, version, gps_week, gps_tow, received_utc, payload) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db, stmt: stmt}, nil
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) Write(env bridge.Envelope) error {
	payload, err := json.Marshal(env.Data)
	if err != nil {
		return err
	}
	var week, tow any
	if env.GPSWeek != nil && env.GPSTow != nil {
		week, tow = *env.GPSWeek, *env.GPSTow
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stmt == nil {
		return fmt.Errorf("sqlite sink is closed")
	}
	_, err = s.stmt.Exec(env.Header, env.Version, week, tow, env.ReceivedUTC, string(payload))
	return err
}

// StoredRecord is one row of the records table.
type StoredRecord struct {
	ID          int64
	Header      string
	Version     int
	GPSWeek     sql.NullInt64
	GPSTow      sql.NullFloat64
	ReceivedUTC string
	Payload     string
}

// Recent returns up to limit rows, newest first. An empty header matches all.
func (s *SQLite) Recent(header string, limit int) ([]StoredRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT id, header, version, gps_week, gps_tow, received_utc, payload FROM records`
	args := []any{}
	if header != "" {
		q += ` WHERE header = ?`
		args = append(args, header)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		var r StoredRecord
		if err := rows.Scan(&r.ID, &r.Header, &r.Version, &r.GPSWeek, &r.GPSTow, &r.ReceivedUTC, &r.Payload); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stmt == nil {
		return nil
	}
	_ = s.stmt.Close()
	s.stmt = nil
	return s.db.Close()
}
