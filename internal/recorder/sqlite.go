package recorder

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
	_ "modernc.org/sqlite"

	"BunkerWars/internal/model"
)

// SQLiteRecorder persists settlement history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRecorder(db, dbPath)
}

func newRecorder(db *sql.DB, dbPath string) (*SQLiteRecorder, error) {
	// WAL lets dashboards read while settlement writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id       TEXT NOT NULL UNIQUE,
			timestamp      INTEGER NOT NULL,
			round          INTEGER NOT NULL,
			requested      TEXT,
			withdrawn      TEXT,
			spoiled        TEXT,
			remainder      TEXT,
			vault_after    TEXT,
			destroyed      INTEGER,
			tour_ended     INTEGER,
			digest         TEXT,
			payload        BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_round ON rounds(round)`,

		`CREATE TABLE IF NOT EXISTS bunker_results (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id     TEXT NOT NULL,
			round        INTEGER NOT NULL,
			bunker_id    INTEGER NOT NULL,
			attack       TEXT,
			defense      TEXT,
			damage       TEXT,
			share        TEXT,
			spoiled      TEXT,
			burned       TEXT,
			index_before TEXT,
			index_after  TEXT,
			value_after  TEXT,
			destroyed    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bunker_results_round ON bunker_results(round, bunker_id)`,

		`CREATE TABLE IF NOT EXISTS maintenance_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			kind      TEXT,
			bunker_id INTEGER,
			processed INTEGER,
			remaining INTEGER,
			done      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_ts ON maintenance_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS halt_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			round     INTEGER,
			reason    TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// roundPayload is the full settlement kept as a compressed blob for replay.
type roundPayload struct {
	Result *model.RoundResult  `json:"result"`
	Report *model.CombatReport `json:"report,omitempty"`
}

func (r *SQLiteRecorder) RecordRound(evt *RoundEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := evt.Result
	payload, err := compressJSON(roundPayload{Result: res, Report: evt.Report})
	if err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	eventID := uuid.NewString()
	_, err = tx.Exec(`INSERT INTO rounds
		(event_id, timestamp, round, requested, withdrawn, spoiled, remainder,
		 vault_after, destroyed, tour_ended, digest, payload)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		eventID, time.Now().Unix(), res.Round,
		res.Requested.Dec(), res.Withdrawn.Dec(), res.Spoiled.Dec(), res.Remainder.Dec(),
		evt.Vault, len(res.Destroyed), res.TourEnded, evt.Digest, payload,
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}

	for i, b := range res.Bunkers {
		attack, defense := "", ""
		if evt.Report != nil {
			attack, defense = evt.Report.Attack[i].Dec(), evt.Report.Defense[i].Dec()
		}
		_, err = tx.Exec(`INSERT INTO bunker_results
			(event_id, round, bunker_id, attack, defense, damage, share, spoiled, burned,
			 index_before, index_after, value_after, destroyed)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			eventID, res.Round, b.BunkerID, attack, defense,
			b.Damage.Dec(), b.Share.Dec(), b.Spoiled.Dec(), b.Burned.Dec(),
			b.IndexBefore.Dec(), b.IndexAfter.Dec(), b.ValueAfter.Dec(), b.Destroyed,
		)
		if err != nil {
			return fmt.Errorf("insert bunker %d: %w", b.BunkerID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordMaintenance(evt *MaintenanceEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO maintenance_events
		(timestamp, kind, bunker_id, processed, remaining, done)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Kind, evt.BunkerID, evt.Processed, evt.Remaining, evt.Done,
	)
	return err
}

func (r *SQLiteRecorder) RecordHalt(evt *HaltEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO halt_events (timestamp, round, reason) VALUES (?,?,?)`,
		time.Now().Unix(), evt.Round, evt.Reason,
	)
	return err
}

// LoadRound returns the settlement stored for a round, if any.
func (r *SQLiteRecorder) LoadRound(round uint64) (*model.RoundResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var blob []byte
	err := r.db.QueryRow(`SELECT payload FROM rounds WHERE round = ? ORDER BY id DESC LIMIT 1`, round).Scan(&blob)
	if err != nil {
		return nil, fmt.Errorf("query round %d: %w", round, err)
	}
	var p roundPayload
	if err := decompressJSON(blob, &p); err != nil {
		return nil, err
	}
	return p.Result, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func compressJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressJSON(blob []byte, v any) error {
	data, err := io.ReadAll(lz4.NewReader(bytes.NewReader(blob)))
	if err != nil {
		return fmt.Errorf("decompress payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
