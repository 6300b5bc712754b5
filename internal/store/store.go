// Package store provides SQLite persistence for completed checks.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/psokolov/verdex/internal/model"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
//
// Checks are append-only: a check and its claims and evidence are written
// once, after the pipeline finishes, and never updated in place.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checks (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		content TEXT NOT NULL,
		source_url TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		transparency REAL DEFAULT 0,
		safety_risk REAL DEFAULT 0,
		error TEXT,
		stage_timings TEXT
	);

	CREATE TABLE IF NOT EXISTS claims (
		check_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		verdict TEXT NOT NULL,
		score INTEGER DEFAULT 0,
		rationale TEXT,
		is_verifiable INTEGER DEFAULT 1,
		is_time_sensitive INTEGER DEFAULT 0,
		time_reference TEXT,
		context_group_id TEXT,
		uncertainty TEXT,
		decision_trail TEXT,
		PRIMARY KEY (check_id, idx),
		FOREIGN KEY (check_id) REFERENCES checks(id)
	);

	CREATE TABLE IF NOT EXISTS evidence (
		check_id TEXT NOT NULL,
		claim_idx INTEGER NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		domain TEXT,
		snippet TEXT,
		published_at DATETIME,
		similarity REAL DEFAULT 0,
		credibility REAL DEFAULT 0,
		final_score REAL DEFAULT 0,
		content_hash TEXT,
		is_syndicated INTEGER DEFAULT 0,
		canonical_url TEXT,
		ownership_cluster TEXT,
		PRIMARY KEY (check_id, claim_idx, position),
		FOREIGN KEY (check_id) REFERENCES checks(id)
	);

	CREATE INDEX IF NOT EXISTS idx_checks_created ON checks(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_evidence_claim ON evidence(check_id, claim_idx);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveCheck writes a completed check with its claims and evidence in one
// transaction. Saving a check twice is an error; checks are append-only.
func (s *Store) SaveCheck(check *model.Check) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	timings, err := json.Marshal(timingsToMillis(check.StageTimings))
	if err != nil {
		return fmt.Errorf("marshal stage timings: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO checks (id, status, content, source_url, created_at, updated_at,
			transparency, safety_risk, error, stage_timings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, check.ID, string(check.Status), check.Content, check.SourceURL,
		check.CreatedAt, check.UpdatedAt, check.Transparency,
		check.SafetyRisk, check.Error, string(timings))
	if err != nil {
		return fmt.Errorf("insert check: %w", err)
	}

	claimStmt, err := tx.Prepare(`
		INSERT INTO claims (check_id, idx, text, type, verdict, score, rationale,
			is_verifiable, is_time_sensitive, time_reference, context_group_id,
			uncertainty, decision_trail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare claim insert: %w", err)
	}
	defer claimStmt.Close()

	for _, claim := range check.Claims {
		uncertainty, err := marshalOrEmpty(claim.Uncertainty)
		if err != nil {
			return fmt.Errorf("marshal uncertainty for claim %d: %w", claim.Index, err)
		}
		trail, err := marshalOrEmpty(claim.DecisionTrail)
		if err != nil {
			return fmt.Errorf("marshal trail for claim %d: %w", claim.Index, err)
		}

		_, err = claimStmt.Exec(check.ID, claim.Index, claim.Text, string(claim.Type),
			string(claim.Verdict), claim.Score, claim.Rationale,
			boolToInt(claim.IsVerifiable), boolToInt(claim.IsTimeSensitive),
			string(claim.TimeReference), claim.ContextGroupID, uncertainty, trail)
		if err != nil {
			return fmt.Errorf("insert claim %d: %w", claim.Index, err)
		}
	}

	evidenceStmt, err := tx.Prepare(`
		INSERT INTO evidence (check_id, claim_idx, position, url, domain, snippet,
			published_at, similarity, credibility, final_score, content_hash,
			is_syndicated, canonical_url, ownership_cluster)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare evidence insert: %w", err)
	}
	defer evidenceStmt.Close()

	for claimIdx, items := range check.Evidence {
		for pos, item := range items {
			_, err = evidenceStmt.Exec(check.ID, claimIdx, pos, item.URL, item.Domain,
				item.Snippet, nullableTime(item.Published), item.Similarity,
				item.Credibility, item.FinalScore, item.ContentHash,
				boolToInt(item.IsSyndicated), item.CanonicalURL, item.OwnershipCluster)
			if err != nil {
				return fmt.Errorf("insert evidence for claim %d: %w", claimIdx, err)
			}
		}
	}

	return tx.Commit()
}

// GetCheck loads one check with its claims and evidence.
// Returns sql.ErrNoRows wrapped when the check does not exist.
func (s *Store) GetCheck(id string) (*model.Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	check := &model.Check{ID: id, Evidence: make(map[int][]model.Evidence)}

	var status, timings string
	err := s.db.QueryRow(`
		SELECT status, content, source_url, created_at, updated_at,
			transparency, safety_risk, error, stage_timings
		FROM checks WHERE id = ?
	`, id).Scan(&status, &check.Content, &check.SourceURL, &check.CreatedAt,
		&check.UpdatedAt, &check.Transparency, &check.SafetyRisk, &check.Error, &timings)
	if err != nil {
		return nil, fmt.Errorf("load check %s: %w", id, err)
	}
	check.Status = model.CheckStatus(status)
	if timings != "" {
		var millis map[string]int64
		if err := json.Unmarshal([]byte(timings), &millis); err == nil {
			check.StageTimings = timingsFromMillis(millis)
		}
	}

	if err := s.loadClaims(check); err != nil {
		return nil, err
	}
	if err := s.loadEvidence(check); err != nil {
		return nil, err
	}

	return check, nil
}

// CheckSummary is one row of the check listing
type CheckSummary struct {
	ID        string
	Status    model.CheckStatus
	CreatedAt time.Time
	Claims    int
}

// ListChecks returns recent checks, newest first
func (s *Store) ListChecks(limit int) ([]CheckSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT c.id, c.status, c.created_at, COUNT(cl.idx)
		FROM checks c
		LEFT JOIN claims cl ON cl.check_id = c.id
		GROUP BY c.id
		ORDER BY c.created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	var out []CheckSummary
	for rows.Next() {
		var cs CheckSummary
		var status string
		if err := rows.Scan(&cs.ID, &status, &cs.CreatedAt, &cs.Claims); err != nil {
			return nil, fmt.Errorf("scan check row: %w", err)
		}
		cs.Status = model.CheckStatus(status)
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *Store) loadClaims(check *model.Check) error {
	rows, err := s.db.Query(`
		SELECT idx, text, type, verdict, score, rationale, is_verifiable,
			is_time_sensitive, time_reference, context_group_id, uncertainty, decision_trail
		FROM claims WHERE check_id = ? ORDER BY idx
	`, check.ID)
	if err != nil {
		return fmt.Errorf("load claims: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var claim model.Claim
		var claimType, verdict, timeRef, uncertainty, trail string
		var verifiable, timeSensitive int
		err := rows.Scan(&claim.Index, &claim.Text, &claimType, &verdict, &claim.Score,
			&claim.Rationale, &verifiable, &timeSensitive, &timeRef,
			&claim.ContextGroupID, &uncertainty, &trail)
		if err != nil {
			return fmt.Errorf("scan claim row: %w", err)
		}
		claim.Type = model.ClaimType(claimType)
		claim.Verdict = model.Verdict(verdict)
		claim.TimeReference = model.TimeReference(timeRef)
		claim.IsVerifiable = verifiable != 0
		claim.IsTimeSensitive = timeSensitive != 0
		if uncertainty != "" {
			var u model.UncertaintyExplanation
			if err := json.Unmarshal([]byte(uncertainty), &u); err == nil {
				claim.Uncertainty = &u
			}
		}
		if trail != "" {
			_ = json.Unmarshal([]byte(trail), &claim.DecisionTrail)
		}
		check.Claims = append(check.Claims, claim)
	}
	return rows.Err()
}

func (s *Store) loadEvidence(check *model.Check) error {
	rows, err := s.db.Query(`
		SELECT claim_idx, url, domain, snippet, published_at, similarity,
			credibility, final_score, content_hash, is_syndicated, canonical_url,
			ownership_cluster
		FROM evidence WHERE check_id = ? ORDER BY claim_idx, position
	`, check.ID)
	if err != nil {
		return fmt.Errorf("load evidence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var claimIdx, syndicated int
		var item model.Evidence
		var published sql.NullTime
		err := rows.Scan(&claimIdx, &item.URL, &item.Domain, &item.Snippet,
			&published, &item.Similarity, &item.Credibility, &item.FinalScore,
			&item.ContentHash, &syndicated, &item.CanonicalURL, &item.OwnershipCluster)
		if err != nil {
			return fmt.Errorf("scan evidence row: %w", err)
		}
		if published.Valid {
			item.Published = &published.Time
		}
		item.IsSyndicated = syndicated != 0
		check.Evidence[claimIdx] = append(check.Evidence[claimIdx], item)
	}
	return rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// marshalOrEmpty marshals v to JSON, returning "" for nil pointers and
// empty slices so the column stays readable.
func marshalOrEmpty(v any) (string, error) {
	switch val := v.(type) {
	case *model.UncertaintyExplanation:
		if val == nil {
			return "", nil
		}
	case []model.DecisionStep:
		if len(val) == 0 {
			return "", nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func timingsToMillis(timings map[string]time.Duration) map[string]int64 {
	out := make(map[string]int64, len(timings))
	for stage, d := range timings {
		out[stage] = d.Milliseconds()
	}
	return out
}

func timingsFromMillis(millis map[string]int64) map[string]time.Duration {
	out := make(map[string]time.Duration, len(millis))
	for stage, ms := range millis {
		out[stage] = time.Duration(ms) * time.Millisecond
	}
	return out
}
