package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"clusterlabel/internal/extract"
	"clusterlabel/internal/labeling"
	"clusterlabel/internal/models"
	"clusterlabel/internal/util"

	"go.uber.org/zap"
)

// CSVStore keeps the asset table in a single CSV file. Every write rewrites
// the whole file atomically; columns it does not know are carried along.
type CSVStore struct {
	path    string
	pdfRoot string
	logger  *zap.Logger

	mu        sync.Mutex
	firstPage func(path string) (string, error)
	pageCache map[string]string
}

type CSVOption func(*CSVStore)

// WithPDFRoot fills empty firstpagetxt cells from <root>/<filename> on read.
func WithPDFRoot(root string) CSVOption {
	return func(s *CSVStore) { s.pdfRoot = root }
}

func WithLogger(logger *zap.Logger) CSVOption {
	return func(s *CSVStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewCSVStore(path string, opts ...CSVOption) *CSVStore {
	s := &CSVStore{
		path:      path,
		logger:    zap.NewNop(),
		firstPage: extract.FirstPage,
		pageCache: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CSVStore) Path() string { return s.path }

func (s *CSVStore) Close() {}

func (s *CSVStore) String() string { return "csv:" + s.path }

func (s *CSVStore) Rows(ctx context.Context) ([]models.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	return s.rows(ctx, t), nil
}

func (s *CSVStore) ClusterRows(ctx context.Context, clusterID int64) ([]models.Row, error) {
	all, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Row, 0)
	for _, r := range all {
		if r.ClusterID == clusterID {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("cluster %d: %w", clusterID, ErrClusterNotFound)
	}
	return out, nil
}

func (s *CSVStore) UnlabeledRows(ctx context.Context, limit int) ([]models.Row, error) {
	all, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}
	return firstClusters(all, limit, func(labeled bool) bool { return !labeled }), nil
}

func (s *CSVStore) SaveDecision(ctx context.Context, clusterID int64, d labeling.Decision) error {
	labelsUsed, err := models.EncodeLabelsUsed(d.Labels)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.load()
	if err != nil {
		return err
	}
	hit := 0
	for _, rec := range t.records {
		id, ok := t.clusterID(rec)
		if !ok || id != clusterID {
			continue
		}
		t.set(rec, models.ColClusterLabel, d.ClusterLabel)
		t.set(rec, models.ColLabelStatus, string(d.Status))
		t.set(rec, models.ColLabelsUsed, labelsUsed)
		hit++
	}
	if hit == 0 {
		return fmt.Errorf("cluster %d: %w", clusterID, ErrClusterNotFound)
	}
	if err := s.write(t); err != nil {
		return err
	}
	s.logger.Debug("decision written", zap.Int64("cluster_id", clusterID), zap.Int("rows", hit), zap.String("path", s.path))
	return nil
}

func (s *CSVStore) ResetLabels(ctx context.Context, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.load()
	if err != nil {
		return 0, err
	}
	targets := firstClusters(t.parse(), limit, func(labeled bool) bool { return labeled })
	if len(targets) == 0 {
		return 0, nil
	}
	reset := make(map[int64]bool, len(targets))
	for _, r := range targets {
		reset[r.ClusterID] = true
	}
	for _, rec := range t.records {
		if id, ok := t.clusterID(rec); ok && reset[id] {
			for _, col := range models.LabelColumns {
				t.set(rec, col, "")
			}
		}
	}
	if err := s.write(t); err != nil {
		return 0, err
	}
	return len(reset), nil
}

// rows parses the table and backfills missing first-page text. Backfilled
// text lives in memory only.
func (s *CSVStore) rows(ctx context.Context, t *table) []models.Row {
	rows := t.parse()
	if s.pdfRoot == "" {
		return rows
	}
	for i := range rows {
		if strings.TrimSpace(rows[i].FirstPageText) != "" || rows[i].Filename == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		rows[i].FirstPageText = s.backfill(rows[i].Filename)
	}
	return rows
}

func (s *CSVStore) backfill(filename string) string {
	if text, ok := s.pageCache[filename]; ok {
		return text
	}
	path, err := util.SafeJoin(s.pdfRoot, filename)
	if err != nil {
		return ""
	}
	text, err := s.firstPage(path)
	if err != nil {
		s.logger.Debug("first page backfill failed", zap.String("filename", filename), zap.Error(err))
		text = ""
	}
	s.pageCache[filename] = text
	return text
}

func (s *CSVStore) load() (*table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return readTable(f)
}

func (s *CSVStore) write(t *table) error {
	return util.WriteFileAtomic(s.path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(t.header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		if err := cw.WriteAll(t.records); err != nil {
			return fmt.Errorf("write csv rows: %w", err)
		}
		return nil
	})
}

type table struct {
	header  []string
	index   map[string]int
	records [][]string
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read csv header: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := &table{index: make(map[string]int)}
	for i, h := range header {
		t.header = append(t.header, h)
		t.index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := t.index[models.ColClusterID]; !ok {
		return nil, fmt.Errorf("csv has no %s column", models.ColClusterID)
	}
	for _, col := range models.LabelColumns {
		if _, ok := t.index[col]; !ok {
			t.index[col] = len(t.header)
			t.header = append(t.header, col)
		}
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	for i, rec := range records {
		for len(rec) < len(t.header) {
			rec = append(rec, "")
		}
		records[i] = rec
	}
	t.records = records
	return t, nil
}

func (t *table) get(rec []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func (t *table) set(rec []string, col, value string) {
	rec[t.index[col]] = value
}

func (t *table) clusterID(rec []string) (int64, bool) {
	return parseClusterID(t.get(rec, models.ColClusterID))
}

func (t *table) parse() []models.Row {
	out := make([]models.Row, 0, len(t.records))
	for _, rec := range t.records {
		id, ok := t.clusterID(rec)
		if !ok {
			continue
		}
		out = append(out, models.Row{
			AssetID:       t.get(rec, models.ColAssetID),
			Filename:      t.get(rec, models.ColFilename),
			FirstPageText: t.get(rec, models.ColFirstPage),
			ClusterID:     id,
			ClusterLabel:  nullable(t.get(rec, models.ColClusterLabel)),
			LabelStatus:   nullable(t.get(rec, models.ColLabelStatus)),
			LabelsUsed:    nullable(t.get(rec, models.ColLabelsUsed)),
		})
	}
	return out
}

// parseClusterID accepts integers and integral floats ("12.0"), which is how
// spreadsheet exports write ids in a column that has gaps.
func parseClusterID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
