// Package catalogio moves the game catalog in and out of flat files: CSV for
// spreadsheets and bulk edits, and the JSON mirror format the mirror source
// reads.
package catalogio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"romvault/pkg/models"
)

var csvHeader = []string{"id", "name", "system", "category", "url", "thumbnail", "source"}

func WriteCSV(w io.Writer, docs []models.GameDoc) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, d := range docs {
		if err := cw.Write([]string{d.ID, d.Name, d.System, d.Category, d.URL, d.Thumbnail, d.Source}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads games by header name, so column order and extra columns do
// not matter. The id column is ignored: imports match by name and system.
// Rows without a name or system are skipped and counted.
func ReadCSV(r io.Reader) (games []models.Game, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	for _, col := range []string{"name", "system"} {
		if _, ok := header[col]; !ok {
			return nil, 0, fmt.Errorf("missing %q column", col)
		}
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("line %d: %w", line, err)
		}

		g := models.Game{
			Name:      valueAt(header, row, "name"),
			System:    strings.ToLower(valueAt(header, row, "system")),
			Category:  valueAt(header, row, "category"),
			URL:       valueAt(header, row, "url"),
			Thumbnail: valueAt(header, row, "thumbnail"),
			Source:    valueAt(header, row, "source"),
		}
		if g.Name == "" || g.System == "" {
			skipped++
			continue
		}
		games = append(games, g)
	}
	return games, skipped, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
