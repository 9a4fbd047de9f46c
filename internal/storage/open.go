package storage

import (
	"context"
	"fmt"
	"strings"

	"clusterlabel/internal/config"

	"go.uber.org/zap"
)

// Open returns the store for source ("csv" or "db"). An empty source uses the
// configured default.
func Open(ctx context.Context, cfg config.Config, source string, logger *zap.Logger) (Store, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = cfg.DataSource
	}
	switch source {
	case config.SourceCSV:
		opts := []CSVOption{WithLogger(logger)}
		if cfg.PDFRoot != "" {
			opts = append(opts, WithPDFRoot(cfg.PDFRoot))
		}
		return NewCSVStore(cfg.CSVPath, opts...), nil
	case config.SourceDB:
		db, err := NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		s, err := NewPostgresStore(db, cfg.TableName)
		if err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
}
