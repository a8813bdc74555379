// Package storage keeps one directory per run with its metadata, telemetry
// and final particle positions.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/san-kum/stipple/internal/config"
	"github.com/san-kum/stipple/internal/driver"
	"github.com/san-kum/stipple/internal/metrics"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	metadataFile  = "metadata.json"
	telemetryFile = "telemetry.csv"
	positionsFile = "positions.csv"
	configFile    = "config.yaml"
)

var ErrRunNotFound = errors.New("storage: run not found")

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
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	NumDots   int                `json:"num_dots"`
	Backend   string             `json:"backend"`
	Input     string             `json:"input"`
	Frames    int                `json:"frames"`
	Samples   int                `json:"samples"`
	Steps     int                `json:"steps"`
	ElapsedMS int64              `json:"elapsed_ms"`
	Metrics   map[string]float64 `json:"metrics"`
}

// PositionRecord is one row of positions.csv.
type PositionRecord struct {
	Index int     `csv:"index"`
	X     float64 `csv:"x"`
	Y     float64 `csv:"y"`
}

// Run is an open run directory. It is a driver.Sink that keeps the latest
// sampled positions until Finish writes them out.
type Run struct {
	ID  string
	Dir string

	last []r2.Vec
}

// Create makes a new run directory named after prefix and the current time.
func (s *Store) Create(prefix string) (*Run, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%s_%s", prefix, time.Now().Format("20060102-150405"))
	id := base
	for n := 1; ; n++ {
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return &Run{ID: id, Dir: dir}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func (r *Run) Sample(ctx context.Context, s driver.Sample) error {
	r.last = s.Positions
	return nil
}

// SaveConfig stores the configuration the run used.
func (r *Run) SaveConfig(cfg *config.Config) error {
	return config.Save(filepath.Join(r.Dir, configFile), cfg)
}

// Finish writes metadata, telemetry and the last sampled positions.
func (r *Run) Finish(meta RunMetadata, records []metrics.Record) error {
	meta.ID = r.ID
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	if err := writeJSON(filepath.Join(r.Dir, metadataFile), meta); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(r.Dir, telemetryFile), records); err != nil {
		return err
	}

	rows := make([]PositionRecord, len(r.last))
	for i, p := range r.last {
		rows[i] = PositionRecord{Index: i, X: p.X, Y: p.Y}
	}
	return writeCSV(filepath.Join(r.Dir, positionsFile), rows)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSV[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		rows = []T{}
	}
	if err := gocsv.Marshal(&rows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns every readable run, oldest first.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadTelemetry(runID string) ([]metrics.Record, error) {
	var records []metrics.Record
	if err := readCSV(filepath.Join(s.baseDir, runID, telemetryFile), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) LoadPositions(runID string) ([]r2.Vec, error) {
	var rows []PositionRecord
	if err := readCSV(filepath.Join(s.baseDir, runID, positionsFile), &rows); err != nil {
		return nil, err
	}
	out := make([]r2.Vec, len(rows))
	for i, row := range rows {
		out[i] = r2.Vec{X: row.X, Y: row.Y}
	}
	return out, nil
}

func readCSV(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, path)
		}
		return err
	}
	defer f.Close()

	if err := gocsv.UnmarshalFile(f, out); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return err
	}
	return nil
}
