// Package storage persists runs: per-run metadata plus compressed
// particle snapshots.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/san-kum/sphlab/internal/carray"
	"github.com/san-kum/sphlab/internal/particles"
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
	ID        string             `json:"id"`
	Scenario  string             `json:"scenario"`
	Kernel    string             `json:"kernel"`
	Backend   string             `json:"backend"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Steps     int                `json:"steps"`
	Particles int                `json:"particles"`
	Metrics   map[string]float64 `json:"metrics"`
}

// CreateRun allocates a run directory and writes the initial metadata.
// The returned id embeds the scenario name and a timestamp.
func (s *Store) CreateRun(meta RunMetadata) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Scenario, time.Now().Unix())
	if err := os.MkdirAll(filepath.Join(s.baseDir, runID), 0755); err != nil {
		return "", err
	}
	meta.ID = runID
	meta.Timestamp = time.Now()
	if err := s.SaveMetadata(runID, meta); err != nil {
		return "", err
	}
	return runID, nil
}

// SaveMetadata overwrites the run's metadata, e.g. to record final
// metrics and the completed step count.
func (s *Store) SaveMetadata(runID string, meta RunMetadata) error {
	meta.ID = runID
	f, err := os.Create(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// WriteSnapshot writes every particle property as one gzip-compressed
// csv, one row per particle, named by step number.
func (s *Store) WriteSnapshot(runID string, step int, fluid *particles.ParticleArray) error {
	path := filepath.Join(s.baseDir, runID, fmt.Sprintf("snap_%06d.csv.gz", step))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	w := csv.NewWriter(gz)

	props := fluid.Properties()
	if err := w.Write(props); err != nil {
		return err
	}

	cols := make([]carray.Column, len(props))
	for j, name := range props {
		col, err := fluid.Get(name)
		if err != nil {
			return err
		}
		cols[j] = col
	}

	row := make([]string, len(props))
	for i := 0; i < fluid.Len(); i++ {
		for j := range cols {
			v, err := cols[j].ValueAt(i)
			if err != nil {
				return err
			}
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return gz.Close()
}

// Snapshots returns the run's snapshot step numbers in ascending order.
func (s *Store) Snapshots(runID string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, runID))
	if err != nil {
		return nil, err
	}
	steps := make([]int, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "snap_") || !strings.HasSuffix(name, ".csv.gz") {
			continue
		}
		step, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "snap_"), ".csv.gz"))
		if err != nil {
			continue
		}
		steps = append(steps, step)
	}
	sort.Ints(steps)
	return steps, nil
}

// LoadSnapshot reads one snapshot back as a property header plus one
// row of values per particle.
func (s *Store) LoadSnapshot(runID string, step int) ([]string, [][]float64, error) {
	path := filepath.Join(s.baseDir, runID, fmt.Sprintf("snap_%06d.csv.gz", step))
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, nil, err
	}
	defer gz.Close()

	records, err := csv.NewReader(gz).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("storage: snapshot %d of %s is empty", step, runID)
	}

	header := records[0]
	rows := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, err
			}
			row[j] = val
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// List returns the metadata of every stored run.
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
