package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	RunMetadata
	Series map[string][]float64 `json:"series"`
}

// ExportJSON writes a saved run's metadata and full time series to path.
func (s *Store) ExportJSON(path, runID string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.exportJSON(file, runID)
}

// ExportJSONStdout dumps a saved run to stdout for piping.
func (s *Store) ExportJSONStdout(runID string) error {
	return s.exportJSON(os.Stdout, runID)
}

func (s *Store) exportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	series, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{RunMetadata: *meta, Series: series})
}
