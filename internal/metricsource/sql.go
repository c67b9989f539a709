package metricsource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/ahrav/go-adhere/internal/domain"
)

// SQLConfig holds database connection settings for SQLSource.
type SQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// DefaultSQLConfig returns pool settings suited to a read-mostly batch job.
func DefaultSQLConfig() SQLConfig {
	return SQLConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    10 * time.Second,
	}
}

// OpenPostgres opens and pings a PostgreSQL pool.
func OpenPostgres(ctx context.Context, cfg SQLConfig) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// SQLSource reads metrics from the daily_metrics and categorical_entries
// tables:
//
//	daily_metrics(patient_id text, metric text, day int, value double precision null)
//	categorical_entries(patient_id text, metric text, day int, category text, quantity double precision)
type SQLSource struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSQLSource wraps an open pool. A zero timeout uses the default.
func NewSQLSource(db *sqlx.DB, timeout time.Duration) *SQLSource {
	if timeout <= 0 {
		timeout = DefaultSQLConfig().QueryTimeout
	}
	return &SQLSource{db: db, timeout: timeout}
}

type metricRow struct {
	Day   int             `db:"day"`
	Value sql.NullFloat64 `db:"value"`
}

type entryRow struct {
	Day      int     `db:"day"`
	Category string  `db:"category"`
	Quantity float64 `db:"quantity"`
}

// Patients implements Source.
func (s *SQLSource) Patients(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT patient_id FROM daily_metrics
		UNION
		SELECT patient_id FROM categorical_entries
		ORDER BY patient_id`

	var ids []string
	if err := s.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return ids, nil
}

// Series implements Source. Rows outside the window are ignored and days with
// no row are missing.
func (s *SQLSource) Series(ctx context.Context, patientID, metric string, startDay, days int) (domain.MetricSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT day, value FROM daily_metrics
		WHERE patient_id = $1 AND metric = $2 AND day >= $3 AND day < $4
		ORDER BY day`

	var rows []metricRow
	if err := s.db.SelectContext(ctx, &rows, query, patientID, metric, startDay, startDay+days); err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	if len(rows) == 0 {
		if err := s.requireMetric(ctx, "daily_metrics", patientID, metric); err != nil {
			return nil, err
		}
	}

	out := domain.EmptySeries(startDay, days)
	for _, r := range rows {
		i := r.Day - startDay
		if i < 0 || i >= days || !r.Value.Valid {
			continue
		}
		v := r.Value.Float64
		out[i].Value = &v
	}
	return out, nil
}

// Entries implements Source.
func (s *SQLSource) Entries(ctx context.Context, patientID, metric string, startDay, days int) ([]domain.CategoricalEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT day, category, quantity FROM categorical_entries
		WHERE patient_id = $1 AND metric = $2 AND day >= $3 AND day < $4
		ORDER BY day, category`

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, query, patientID, metric, startDay, startDay+days); err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	if len(rows) == 0 {
		if err := s.requireMetric(ctx, "categorical_entries", patientID, metric); err != nil {
			return nil, err
		}
	}

	out := make([]domain.CategoricalEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.CategoricalEntry{Day: r.Day, Category: r.Category, Quantity: r.Quantity})
	}
	return out, nil
}

// Horizon implements Source.
func (s *SQLSource) Horizon(ctx context.Context, patientID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT COALESCE(MAX(day) + 1, 0) FROM (
			SELECT day FROM daily_metrics WHERE patient_id = $1
			UNION ALL
			SELECT day FROM categorical_entries WHERE patient_id = $1
		) AS days`

	var horizon int
	if err := s.db.GetContext(ctx, &horizon, query, patientID); err != nil {
		return 0, fmt.Errorf("failed to query horizon: %w", err)
	}
	if horizon == 0 {
		return 0, fmt.Errorf("%s: %w", patientID, ErrUnknownPatient)
	}
	return horizon, nil
}

// requireMetric distinguishes an empty window from a metric the patient never
// recorded. table is one of two constants, never caller input.
func (s *SQLSource) requireMetric(ctx context.Context, table, patientID, metric string) error {
	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE patient_id = $1 AND metric = $2)`

	var exists bool
	if err := s.db.GetContext(ctx, &exists, query, patientID, metric); err != nil {
		return fmt.Errorf("failed to check metric: %w", err)
	}
	if !exists {
		return fmt.Errorf("%s/%s: %w", patientID, metric, ErrNoData)
	}
	return nil
}
