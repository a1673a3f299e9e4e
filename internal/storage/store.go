// Package storage keeps recorded runs on disk, one directory per run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/RazorBest/Pendulum-Sandbox/internal/metrics"
	"github.com/RazorBest/Pendulum-Sandbox/internal/scene"
)

const (
	metadataFile = "metadata.json"
	energyFile   = "energy.csv"
	statesFile   = "states.csv"
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
	Preset    string             `json:"preset"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Ticks     int                `json:"ticks"`
	Friction  float64            `json:"friction"`
	Pendulums int                `json:"pendulums"`
	Bobs      int                `json:"bobs"`
	MaxDrift  float64            `json:"max_drift"`
	Faults    []int              `json:"faults,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// StateRow is the state of one bob at one tick.
type StateRow struct {
	Tick     int
	Pendulum int
	Bob      int
	Angle    float64
	Velocity float64
}

// StateRows flattens scene snapshots taken at tick.
func StateRows(tick int, snaps []scene.ChainSnapshot) []StateRow {
	var rows []StateRow
	for _, c := range snaps {
		for _, b := range c.Bobs {
			rows = append(rows, StateRow{
				Tick:     tick,
				Pendulum: c.ID,
				Bob:      b.ID,
				Angle:    b.Angle,
				Velocity: b.AngularVelocity,
			})
		}
	}
	return rows
}

// Trace is everything recorded during a run.
type Trace struct {
	Energy []metrics.Sample
	States []StateRow
}

// Save writes a new run directory and returns its id. meta.ID and
// meta.Timestamp are filled in.
func (s *Store) Save(meta RunMetadata, trace Trace) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	meta.Timestamp = time.Now()
	name := meta.Preset
	if name == "" {
		name = "run"
	}
	base := fmt.Sprintf("%s_%d", name, meta.Timestamp.Unix())

	runID := base
	runDir := filepath.Join(s.baseDir, runID)
	for i := 1; ; i++ {
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
		runDir = filepath.Join(s.baseDir, runID)
	}
	meta.ID = runID

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeEnergy(filepath.Join(runDir, energyFile), trace.Energy); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, statesFile), trace.States); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func writeEnergy(path string, samples []metrics.Sample) error {
	rows := make([][]string, len(samples))
	for i, s := range samples {
		rows[i] = []string{
			strconv.Itoa(s.Tick),
			formatFloat(s.Kinetic),
			formatFloat(s.Potential),
			formatFloat(s.Total()),
		}
	}
	return writeCSV(path, []string{"tick", "kinetic", "potential", "total"}, rows)
}

func writeStates(path string, states []StateRow) error {
	rows := make([][]string, len(states))
	for i, s := range states {
		rows[i] = []string{
			strconv.Itoa(s.Tick),
			strconv.Itoa(s.Pendulum),
			strconv.Itoa(s.Bob),
			formatFloat(s.Angle),
			formatFloat(s.Velocity),
		}
	}
	return writeCSV(path, []string{"tick", "pendulum", "bob", "angle", "velocity"}, rows)
}

// List returns the metadata of every readable run, oldest first.
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

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

// LoadEnergy reads the energy samples of a run. Malformed rows are skipped.
func (s *Store) LoadEnergy(runID string) ([]metrics.Sample, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, energyFile))
	if err != nil {
		return nil, err
	}

	samples := make([]metrics.Sample, 0, len(records))
	for _, rec := range records {
		if len(rec) < 3 {
			continue
		}
		tick, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		k, err1 := strconv.ParseFloat(rec[1], 64)
		p, err2 := strconv.ParseFloat(rec[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		samples = append(samples, metrics.Sample{Tick: tick, Kinetic: k, Potential: p})
	}
	return samples, nil
}

// LoadStates reads the bob states of a run. Malformed rows are skipped.
func (s *Store) LoadStates(runID string) ([]StateRow, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}

	rows := make([]StateRow, 0, len(records))
	for _, rec := range records {
		if len(rec) < 5 {
			continue
		}
		var ints [3]int
		ok := true
		for i := range ints {
			v, err := strconv.Atoi(rec[i])
			if err != nil {
				ok = false
				break
			}
			ints[i] = v
		}
		angle, err1 := strconv.ParseFloat(rec[3], 64)
		vel, err2 := strconv.ParseFloat(rec[4], 64)
		if !ok || err1 != nil || err2 != nil {
			continue
		}
		rows = append(rows, StateRow{
			Tick:     ints[0],
			Pendulum: ints[1],
			Bob:      ints[2],
			Angle:    angle,
			Velocity: vel,
		})
	}
	return rows, nil
}
