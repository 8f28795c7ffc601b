package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	signalsFile  = "signals.csv"
)

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return errors.Wrap(os.MkdirAll(s.baseDir, 0755), "storage: create base directory")
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Project   string             `json:"project"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	T         float64            `json:"T"`
	T0        float64            `json:"t0"`
	Steps     int                `json:"steps"`
	Signals   []string           `json:"signals"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Save writes the metadata and the flattened log of a run and returns its
// ID.
func (s *Store) Save(project string, cfg sim.Config, log *sim.Log, metrics map[string]float64) (string, error) {
	id := uuid.NewString()
	runDir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", errors.Wrap(err, "storage: create run directory")
	}

	meta := RunMetadata{
		ID:        id,
		Project:   project,
		Timestamp: time.Now().UTC(),
		Dt:        cfg.Dt,
		T:         cfg.T,
		T0:        cfg.T0,
		Steps:     log.Len(),
		Signals:   log.SignalKeys(),
		Metrics:   metrics,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "storage: encode metadata")
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), data, 0644); err != nil {
		return "", errors.Wrap(err, "storage: write metadata")
	}

	f, err := os.Create(filepath.Join(runDir, signalsFile))
	if err != nil {
		return "", errors.Wrap(err, "storage: create signals file")
	}
	defer f.Close()
	if err := Flatten(log).WriteCSV(f); err != nil {
		return "", err
	}
	return id, nil
}

// List returns the stored runs, newest first. Unreadable entries are
// skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, errors.Wrap(err, "storage: list runs")
	}

	runs := make([]RunMetadata, 0, len(entries))
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
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, errors.Wrapf(err, "storage: load run %s", runID)
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "storage: decode run %s", runID)
	}
	return &meta, nil
}

func (s *Store) LoadSignals(runID string) (*Table, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, signalsFile))
	if err != nil {
		return nil, errors.Wrapf(err, "storage: load signals of %s", runID)
	}
	defer f.Close()
	return ReadCSV(f)
}
