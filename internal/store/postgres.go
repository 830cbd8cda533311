package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/scoring"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS geo_assessments (
	id             UUID PRIMARY KEY,
	batch_id       UUID,
	analysis_type  TEXT NOT NULL,
	lat            DOUBLE PRECISION NOT NULL,
	lon            DOUBLE PRECISION NOT NULL,
	address        TEXT,
	overall_score  INTEGER NOT NULL,
	tier           TEXT NOT NULL,
	fallback_count INTEGER NOT NULL DEFAULT 0,
	body           JSONB NOT NULL,
	analyzed_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS geo_assessments_batch_idx ON geo_assessments (batch_id);
CREATE INDEX IF NOT EXISTS geo_assessments_tier_idx ON geo_assessments (tier);
CREATE INDEX IF NOT EXISTS geo_assessments_analyzed_idx ON geo_assessments (analyzed_at DESC);

CREATE TABLE IF NOT EXISTS geo_batches (
	id            UUID PRIMARY KEY,
	analysis_type TEXT NOT NULL,
	total         INTEGER NOT NULL,
	high_count    INTEGER NOT NULL,
	medium_count  INTEGER NOT NULL,
	low_count     INTEGER NOT NULL,
	error_count   INTEGER NOT NULL,
	items         JSONB NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ NOT NULL
);`

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) SaveAssessment(ctx context.Context, a *scoring.Assessment) error {
	return insertAssessment(ctx, s.pool, a)
}

func insertAssessment(ctx context.Context, q execer, a *scoring.Assessment) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	var batchID any
	if a.BatchID != "" {
		batchID = a.BatchID
	}
	_, err = q.Exec(ctx, `
		INSERT INTO geo_assessments (id, batch_id, analysis_type, lat, lon, address,
			overall_score, tier, fallback_count, body, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body`,
		a.ID, batchID, string(a.AnalysisType), a.Location.Lat, a.Location.Lon, a.Address,
		a.OverallScore, string(a.Tier), len(a.Provenance.Fallbacks), body, a.Provenance.AnalyzedAt,
	)
	return err
}

func (s *PostgresStore) GetAssessment(ctx context.Context, id string) (*scoring.Assessment, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM geo_assessments WHERE id = $1`, id).Scan(&body)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a := &scoring.Assessment{}
	if err := json.Unmarshal(body, a); err != nil {
		return nil, fmt.Errorf("decode assessment %s: %w", id, err)
	}
	return a, nil
}

func (s *PostgresStore) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]*scoring.Assessment, error) {
	query := `SELECT body FROM geo_assessments WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.BatchID != "" {
		n++
		query += fmt.Sprintf(" AND batch_id = $%d", n)
		args = append(args, filter.BatchID)
	}
	if filter.Tier != "" {
		n++
		query += fmt.Sprintf(" AND tier = $%d", n)
		args = append(args, string(filter.Tier))
	}
	if filter.AnalysisType != "" {
		n++
		query += fmt.Sprintf(" AND analysis_type = $%d", n)
		args = append(args, string(filter.AnalysisType))
	}

	query += " ORDER BY analyzed_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*scoring.Assessment{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		a := &scoring.Assessment{}
		if err := json.Unmarshal(body, a); err != nil {
			return nil, fmt.Errorf("decode assessment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveBatch writes the summary and all item assessments in one transaction.
func (s *PostgresStore) SaveBatch(ctx context.Context, summary *scoring.BatchSummary) error {
	rec := BatchRecordFrom(summary)
	itemsJSON, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("marshal batch items: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, item := range summary.Items {
		if item.Assessment == nil {
			continue
		}
		if err := insertAssessment(ctx, tx, item.Assessment); err != nil {
			return fmt.Errorf("save batch assessment %s: %w", item.Assessment.ID, err)
		}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO geo_batches (id, analysis_type, total, high_count, medium_count, low_count,
			error_count, items, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, string(rec.AnalysisType), rec.Total, rec.HighRiskCount, rec.MediumRiskCount, rec.LowRiskCount,
		rec.ErrorCount, itemsJSON, rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save batch: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetBatch(ctx context.Context, id string) (*BatchRecord, error) {
	b := &BatchRecord{}
	var itemsJSON []byte
	var analysisType string
	err := s.pool.QueryRow(ctx, `
		SELECT id, analysis_type, total, high_count, medium_count, low_count,
			error_count, items, started_at, completed_at
		FROM geo_batches WHERE id = $1`, id,
	).Scan(&b.ID, &analysisType, &b.Total, &b.HighRiskCount, &b.MediumRiskCount, &b.LowRiskCount,
		&b.ErrorCount, &itemsJSON, &b.StartedAt, &b.CompletedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.AnalysisType = catalog.AnalysisType(analysisType)
	if itemsJSON != nil {
		if err := json.Unmarshal(itemsJSON, &b.Items); err != nil {
			return nil, fmt.Errorf("decode batch %s items: %w", id, err)
		}
	}
	return b, nil
}

func (s *PostgresStore) GetStats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN tier = 'high' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN tier = 'medium' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN tier = 'low' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN fallback_count > 0 THEN 1 ELSE 0 END), 0)
		FROM geo_assessments`,
	).Scan(&st.TotalAssessments, &st.HighRisk, &st.MediumRisk, &st.LowRisk, &st.WithFallbacks)
	if err != nil {
		return nil, err
	}
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(error_count), 0) FROM geo_batches`,
	).Scan(&st.TotalBatches, &st.BatchItemErrors)
	return st, err
}
