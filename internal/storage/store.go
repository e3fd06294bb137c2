// Package storage persists completed simulation runs: metadata as JSON,
// the tick time series as CSV.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ole-kvern/buoysim/internal/engine"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Dt            float64   `json:"dt"`
	Duration      float64   `json:"duration"`
	Floaters      int       `json:"floaters"`
	GeneratorMode string    `json:"generator_mode"`
	MeanPower     float64   `json:"mean_power"`
	StdDevPower   float64   `json:"stddev_power"`
	PeakPower     float64   `json:"peak_power"`
	SkippedTicks  uint64    `json:"skipped_ticks"`
	Conflicts     uint64    `json:"scheduling_conflicts"`
}

var csvHeader = []string{
	"time", "theta_chain", "omega_chain", "omega_gen",
	"net_force", "chain_torque", "load_torque", "output_power",
	"tank_pressure", "clutch_engaged",
}

// Save writes one run directory named by the engine's run ID. The snapshot
// slice must be in tick order; the last snapshot supplies the summary
// metadata.
func (s *Store) Save(mode string, snaps []engine.Snapshot) (string, error) {
	if len(snaps) == 0 {
		return "", os.ErrInvalid
	}
	last := snaps[len(snaps)-1]
	runID := last.RunID
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:            runID,
		Timestamp:     time.Now(),
		Dt:            last.Dt,
		Duration:      last.Time,
		Floaters:      len(last.Floaters),
		GeneratorMode: mode,
		MeanPower:     last.Stats.MeanPower,
		StdDevPower:   last.Stats.StdDevPower,
		PeakPower:     last.Stats.PeakPower,
		SkippedTicks:  last.Diag.SkippedTicks,
		Conflicts:     last.Diag.SchedulingConflicts,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "timeseries.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for i := range snaps {
		if err := w.Write(snapshotRow(&snaps[i])); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func snapshotRow(snap *engine.Snapshot) []string {
	clutch := "0"
	if snap.ClutchEngaged {
		clutch = "1"
	}
	return []string{
		strconv.FormatFloat(snap.Time, 'f', 6, 64),
		strconv.FormatFloat(snap.ThetaChain, 'f', 6, 64),
		strconv.FormatFloat(snap.OmegaChain, 'f', 6, 64),
		strconv.FormatFloat(snap.OmegaGen, 'f', 6, 64),
		strconv.FormatFloat(snap.NetForce, 'f', 6, 64),
		strconv.FormatFloat(snap.ChainTorque, 'f', 6, 64),
		strconv.FormatFloat(snap.LoadTorque, 'f', 6, 64),
		strconv.FormatFloat(snap.OutputPower, 'f', 6, 64),
		strconv.FormatFloat(snap.TankPressure, 'f', 6, 64),
		clutch,
	}
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries reads the time series back as column-major float slices keyed
// by the CSV header name. The clutch column comes back as 0/1.
func (s *Store) LoadSeries(runID string) (map[string][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "timeseries.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return map[string][]float64{}, nil
	}

	header := records[0]
	series := make(map[string][]float64, len(header))
	for _, name := range header {
		series[name] = make([]float64, 0, len(records)-1)
	}
	for _, record := range records[1:] {
		for j, cell := range record {
			if j >= len(header) {
				break
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue
			}
			series[header[j]] = append(series[header[j]], v)
		}
	}
	return series, nil
}
