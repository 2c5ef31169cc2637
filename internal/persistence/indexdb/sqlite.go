package indexdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"inboxwars.io/internal/game"
)

// SQLiteIndex is a secondary read-model over resolved rounds and final
// scores. It never feeds back into resolution; losing it costs dashboards,
// not correctness.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqRound reqKind = iota + 1
	reqInvestigation
	reqFinal
	reqFlush
)

type req struct {
	kind reqKind

	roomID string
	round  int
	digest string

	resolution *game.Resolution
	entry      *game.InvestigationEntry
	final      *game.FinalScores

	done chan struct{}
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			room_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			digest TEXT NOT NULL,
			resolution_json TEXT NOT NULL,
			PRIMARY KEY (room_id, round)
		);`,
		`CREATE TABLE IF NOT EXISTS team_rounds (
			room_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			esp_id TEXT NOT NULL,
			total_volume INTEGER NOT NULL,
			aggregate_rate REAL NOT NULL,
			base_revenue INTEGER NOT NULL,
			actual_revenue INTEGER NOT NULL,
			PRIMARY KEY (room_id, round, esp_id)
		);`,
		`CREATE TABLE IF NOT EXISTS investigations (
			room_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			target_esp TEXT NOT NULL,
			triggered INTEGER NOT NULL,
			violation_found INTEGER NOT NULL,
			suspended_client TEXT,
			message TEXT,
			PRIMARY KEY (room_id, round)
		);`,
		`CREATE TABLE IF NOT EXISTS finals (
			room_id TEXT NOT NULL,
			esp_id TEXT NOT NULL,
			qualified INTEGER NOT NULL,
			total_score REAL NOT NULL,
			rank INTEGER NOT NULL,
			total_revenue INTEGER NOT NULL,
			scores_json TEXT NOT NULL,
			PRIMARY KEY (room_id, esp_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_team_rounds_esp ON team_rounds(room_id, esp_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// IndexRound enqueues a resolved round. Non-blocking: if the writer is
// backed up the entry is dropped (the round log is the durable record).
func (s *SQLiteIndex) IndexRound(roomID string, res *game.Resolution, digest string) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqRound, roomID: roomID, round: res.Round, digest: digest, resolution: res}:
	default:
	}
}

func (s *SQLiteIndex) IndexInvestigation(roomID string, entry *game.InvestigationEntry) {
	if s.closed.Load() || entry == nil {
		return
	}
	select {
	case s.ch <- req{kind: reqInvestigation, roomID: roomID, round: entry.Round, entry: entry}:
	default:
	}
}

func (s *SQLiteIndex) IndexFinal(roomID string, final *game.FinalScores) {
	if s.closed.Load() || final == nil {
		return
	}
	select {
	case s.ch <- req{kind: reqFinal, roomID: roomID, final: final}:
	default:
	}
}

func (s *SQLiteIndex) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
	})
	s.wg.Wait()
	return s.db.Close()
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqRound:
			s.writeRound(r)
		case reqInvestigation:
			s.writeInvestigation(r)
		case reqFinal:
			s.writeFinal(r)
		case reqFlush:
			close(r.done)
		}
	}
}

func (s *SQLiteIndex) writeRound(r req) {
	raw, err := json.Marshal(r.resolution)
	if err != nil {
		return
	}
	_, _ = s.db.Exec(
		`INSERT OR REPLACE INTO rounds (room_id, round, digest, resolution_json) VALUES (?,?,?,?)`,
		r.roomID, r.round, r.digest, string(raw),
	)
	for espID, tr := range r.resolution.Teams {
		if tr == nil {
			continue
		}
		_, _ = s.db.Exec(
			`INSERT OR REPLACE INTO team_rounds
			 (room_id, round, esp_id, total_volume, aggregate_rate, base_revenue, actual_revenue)
			 VALUES (?,?,?,?,?,?,?)`,
			r.roomID, r.round, espID, tr.TotalVolume, tr.AggregateDeliveryRate, tr.BaseRevenue, tr.ActualRevenue,
		)
	}
}

func (s *SQLiteIndex) writeInvestigation(r req) {
	_, _ = s.db.Exec(
		`INSERT OR REPLACE INTO investigations
		 (room_id, round, target_esp, triggered, violation_found, suspended_client, message)
		 VALUES (?,?,?,?,?,?,?)`,
		r.roomID, r.round, r.entry.TargetESP, boolInt(r.entry.Triggered), boolInt(r.entry.ViolationFound),
		r.entry.SuspendedClient, r.entry.Message,
	)
}

func (s *SQLiteIndex) writeFinal(r req) {
	for _, ts := range r.final.Teams {
		raw, err := json.Marshal(ts)
		if err != nil {
			continue
		}
		_, _ = s.db.Exec(
			`INSERT OR REPLACE INTO finals
			 (room_id, esp_id, qualified, total_score, rank, total_revenue, scores_json)
			 VALUES (?,?,?,?,?,?,?)`,
			r.roomID, ts.ESPID, boolInt(ts.Qualified), ts.TotalScore, ts.Rank, ts.TotalRevenue, string(raw),
		)
	}
}

// TeamRevenue sums indexed revenue for one ESP (dashboard query).
func (s *SQLiteIndex) TeamRevenue(roomID, espID string) (int, error) {
	row := s.db.QueryRow(
		`SELECT COALESCE(SUM(actual_revenue), 0) FROM team_rounds WHERE room_id = ? AND esp_id = ?`,
		roomID, espID,
	)
	var total int
	err := row.Scan(&total)
	return total, err
}

// RoundDigest returns the stored digest for a room round ("" when absent).
func (s *SQLiteIndex) RoundDigest(roomID string, round int) (string, error) {
	row := s.db.QueryRow(`SELECT digest FROM rounds WHERE room_id = ? AND round = ?`, roomID, round)
	var d string
	if err := row.Scan(&d); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return d, nil
}

// Flush blocks until every write enqueued before the call has landed.
func (s *SQLiteIndex) Flush() {
	if s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqFlush, done: done}
	<-done
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
