package storage

import (
	"context"
	"fmt"
	"regexp"

	"clusterlabel/internal/labeling"
	"clusterlabel/internal/models"

	"github.com/jackc/pgx/v5"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresStore reads and labels the asset table in Postgres. The label
// columns must already exist.
type PostgresStore struct {
	db    *DB
	table string
}

func NewPostgresStore(db *DB, table string) (*PostgresStore, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{db: db, table: table}, nil
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

const rowColumns = `asset_id::text, COALESCE(filename,''), COALESCE(firstpagetxt,''), cluster_id, cluster_label, label_status, labels_used`

func (s *PostgresStore) Rows(ctx context.Context) ([]models.Row, error) {
	return s.query(ctx, "list rows", fmt.Sprintf(`
SELECT %s
FROM %s
WHERE cluster_id IS NOT NULL
ORDER BY cluster_id, asset_id`, rowColumns, s.table))
}

func (s *PostgresStore) ClusterRows(ctx context.Context, clusterID int64) ([]models.Row, error) {
	rows, err := s.query(ctx, "list cluster rows", fmt.Sprintf(`
SELECT %s
FROM %s
WHERE cluster_id = $1
ORDER BY asset_id`, rowColumns, s.table), clusterID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("cluster %d: %w", clusterID, ErrClusterNotFound)
	}
	return rows, nil
}

func (s *PostgresStore) UnlabeledRows(ctx context.Context, limit int) ([]models.Row, error) {
	if limit <= 0 {
		return s.query(ctx, "list unlabeled rows", fmt.Sprintf(`
SELECT %s
FROM %s
WHERE cluster_id IN (
  SELECT cluster_id FROM %s
  WHERE cluster_id IS NOT NULL
  GROUP BY cluster_id
  HAVING COUNT(cluster_label) = 0
)
ORDER BY cluster_id, asset_id`, rowColumns, s.table, s.table))
	}
	return s.query(ctx, "list unlabeled rows", fmt.Sprintf(`
SELECT %s
FROM %s
WHERE cluster_id IN (
  SELECT cluster_id FROM %s
  WHERE cluster_id IS NOT NULL
  GROUP BY cluster_id
  HAVING COUNT(cluster_label) = 0
  ORDER BY cluster_id
  LIMIT $1
)
ORDER BY cluster_id, asset_id`, rowColumns, s.table, s.table), limit)
}

func (s *PostgresStore) SaveDecision(ctx context.Context, clusterID int64, d labeling.Decision) error {
	labelsUsed, err := models.EncodeLabelsUsed(d.Labels)
	if err != nil {
		return err
	}
	tag, err := s.db.Pool.Exec(ctx, fmt.Sprintf(`
UPDATE %s
SET cluster_label = $1,
    label_status = $2,
    labels_used = $3
WHERE cluster_id = $4`, s.table),
		d.ClusterLabel, string(d.Status), labelsUsed, clusterID)
	if err != nil {
		return fmt.Errorf("update cluster label: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cluster %d: %w", clusterID, ErrClusterNotFound)
	}
	return nil
}

func (s *PostgresStore) ResetLabels(ctx context.Context, limit int) (int, error) {
	labeled := fmt.Sprintf(`
SELECT DISTINCT cluster_id FROM %s
WHERE cluster_id IS NOT NULL AND cluster_label IS NOT NULL`, s.table)
	args := []any{}
	if limit > 0 {
		labeled += "\nORDER BY cluster_id\nLIMIT $1"
		args = append(args, limit)
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, labeled, args...)
	if err != nil {
		return 0, fmt.Errorf("list labeled clusters: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("scan labeled clusters: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
UPDATE %s
SET cluster_label = NULL,
    label_status = NULL,
    labels_used = NULL
WHERE cluster_id = ANY($1)`, s.table), ids); err != nil {
		return 0, fmt.Errorf("reset labels: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit reset: %w", err)
	}
	return len(ids), nil
}

func (s *PostgresStore) query(ctx context.Context, what, sql string, args ...any) ([]models.Row, error) {
	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	out := make([]models.Row, 0)
	for rows.Next() {
		var r models.Row
		if err := rows.Scan(&r.AssetID, &r.Filename, &r.FirstPageText, &r.ClusterID, &r.ClusterLabel, &r.LabelStatus, &r.LabelsUsed); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) String() string {
	return "postgres:" + s.table
}
