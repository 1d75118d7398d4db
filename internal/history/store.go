// Package history persists query results for the analytics dashboard.
// It is the persistence collaborator of the core pipeline: results flow
// in, aggregates flow out to the HTTP layer only.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"cs-support/internal/config"
	"cs-support/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS queries (
	id                 TEXT PRIMARY KEY,
	question           TEXT NOT NULL,
	reformulated_query TEXT NOT NULL,
	detected_intent    TEXT NOT NULL DEFAULT 'OTHER',
	answer             TEXT NOT NULL,
	confidence_score   INTEGER NOT NULL,
	source_document    TEXT NOT NULL,
	response_time_ms   INTEGER NOT NULL DEFAULT 0,
	created_at         TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS document_usage (
	document_name TEXT PRIMARY KEY,
	usage_count   INTEGER NOT NULL DEFAULT 0,
	last_used     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queries_created_at ON queries(created_at);
CREATE INDEX IF NOT EXISTS idx_queries_confidence ON queries(confidence_score);
`

// Record is one stored query with its outcome.
type Record struct {
	ID                string    `json:"id"`
	Question          string    `json:"question"`
	ReformulatedQuery string    `json:"reformulated_query"`
	DetectedIntent    string    `json:"detected_intent"`
	Answer            string    `json:"answer"`
	ConfidenceScore   int       `json:"confidence_score"`
	ConfidenceLevel   string    `json:"confidence_level"`
	SourceDocument    string    `json:"source_document"`
	ResponseTimeMs    int64     `json:"response_time_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

// DocumentUsage is a per-document usage counter.
type DocumentUsage struct {
	Name       string    `json:"name"`
	UsageCount int       `json:"usage_count"`
	LastUsed   time.Time `json:"last_used"`
}

// Stats are the aggregates backing the manager dashboard.
type Stats struct {
	TotalQueries           int                    `json:"total_queries"`
	AvgConfidence          float64                `json:"avg_confidence"`
	AvgResponseTimeMs      float64                `json:"avg_response_time_ms"`
	ConfidenceDistribution ConfidenceDistribution `json:"confidence_distribution"`
	IntentDistribution     map[string]int         `json:"intent_distribution"`
	QueriesPerDay          map[string]int         `json:"queries_per_day"`
	TopDocuments           []DocumentUsage        `json:"top_documents"`
	LowConfidenceCount     int                    `json:"low_confidence_count"`
}

// ConfidenceDistribution counts queries per confidence band.
type ConfidenceDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Store is the SQLite-backed history store.
type Store struct {
	db         *sql.DB
	confidence config.ConfidenceConfig
}

// NewStore opens (creating if needed) the history database at path.
func NewStore(path string, confidence config.ConfidenceConfig) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying history schema: %w", err)
	}
	return &Store{db: db, confidence: confidence}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// SaveResult stores one pipeline result and bumps the usage counter of
// its source document.
func (s *Store) SaveResult(ctx context.Context, result domain.PipelineResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO queries (id, question, reformulated_query, detected_intent, answer,
			confidence_score, source_document, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.OriginalQuestion, result.ReformulatedQuery, result.DetectedIntent,
		result.Answer, result.ConfidenceScore, result.SourceDocument,
		result.Timings.TotalMs, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting query: %w", err)
	}

	if result.SourceDocument != domain.NoSourceDocument {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO document_usage (document_name, usage_count, last_used)
			VALUES (?, 1, ?)
			ON CONFLICT(document_name)
			DO UPDATE SET usage_count = usage_count + 1, last_used = excluded.last_used`,
			result.SourceDocument, result.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("updating document usage: %w", err)
		}
	}
	return tx.Commit()
}

// Queries returns stored queries newest first. maxConfidence < 0 disables
// the confidence filter.
func (s *Store) Queries(ctx context.Context, limit, offset, maxConfidence int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, question, reformulated_query, detected_intent, answer,
			confidence_score, source_document, response_time_ms, created_at
		FROM queries`
	args := []any{}
	if maxConfidence >= 0 {
		query += ` WHERE confidence_score <= ?`
		args = append(args, maxConfidence)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Question, &r.ReformulatedQuery, &r.DetectedIntent,
			&r.Answer, &r.ConfidenceScore, &r.SourceDocument, &r.ResponseTimeMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ConfidenceLevel = s.confidence.Level(r.ConfidenceScore)
		records = append(records, r)
	}
	return records, rows.Err()
}

// LowConfidenceQueries returns the most recent queries below the
// configured low threshold.
func (s *Store) LowConfidenceQueries(ctx context.Context, limit int) ([]Record, error) {
	return s.Queries(ctx, limit, 0, s.confidence.LowThreshold-1)
}

// Stats computes the dashboard aggregates.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		IntentDistribution: make(map[string]int),
		QueriesPerDay:      make(map[string]int),
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(confidence_score), 0),
			COALESCE(AVG(response_time_ms), 0)
		FROM queries`)
	if err := row.Scan(&stats.TotalQueries, &stats.AvgConfidence, &stats.AvgResponseTimeMs); err != nil {
		return stats, err
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN confidence_score >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN confidence_score >= ? AND confidence_score < ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN confidence_score < ? THEN 1 ELSE 0 END), 0)
		FROM queries`,
		s.confidence.HighThreshold,
		s.confidence.LowThreshold, s.confidence.HighThreshold,
		s.confidence.LowThreshold,
	)
	if err := row.Scan(&stats.ConfidenceDistribution.High,
		&stats.ConfidenceDistribution.Medium,
		&stats.ConfidenceDistribution.Low); err != nil {
		return stats, err
	}
	stats.LowConfidenceCount = stats.ConfidenceDistribution.Low

	rows, err := s.db.QueryContext(ctx, `
		SELECT detected_intent, COUNT(*) FROM queries GROUP BY detected_intent`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var intent string
		var count int
		if err := rows.Scan(&intent, &count); err != nil {
			return stats, err
		}
		stats.IntentDistribution[intent] = count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	since := time.Now().UTC().AddDate(0, 0, -7)
	dayRows, err := s.db.QueryContext(ctx, `
		SELECT date(created_at), COUNT(*) FROM queries
		WHERE created_at >= ? GROUP BY date(created_at)`, since)
	if err != nil {
		return stats, err
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var day string
		var count int
		if err := dayRows.Scan(&day, &count); err != nil {
			return stats, err
		}
		stats.QueriesPerDay[day] = count
	}
	if err := dayRows.Err(); err != nil {
		return stats, err
	}

	docRows, err := s.db.QueryContext(ctx, `
		SELECT document_name, usage_count, last_used FROM document_usage
		ORDER BY usage_count DESC LIMIT 5`)
	if err != nil {
		return stats, err
	}
	defer docRows.Close()
	for docRows.Next() {
		var d DocumentUsage
		if err := docRows.Scan(&d.Name, &d.UsageCount, &d.LastUsed); err != nil {
			return stats, err
		}
		stats.TopDocuments = append(stats.TopDocuments, d)
	}
	return stats, docRows.Err()
}
