package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"clusterlabel/internal/models"
	"clusterlabel/internal/util"
)

var exportHeader = []string{
	models.ColAssetID, models.ColFilename, models.ColFirstPage, models.ColClusterID,
	models.ColClusterLabel, models.ColLabelStatus, models.ColLabelsUsed,
}

// WriteRowsCSV exports rows in the column layout of the CSV store.
func WriteRowsCSV(path string, rows []models.Row) error {
	return util.WriteFileAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(exportHeader); err != nil {
			return fmt.Errorf("write export header: %w", err)
		}
		for _, r := range rows {
			rec := []string{
				r.AssetID, r.Filename, r.FirstPageText, strconv.FormatInt(r.ClusterID, 10),
				deref(r.ClusterLabel), deref(r.LabelStatus), deref(r.LabelsUsed),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write export row: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
