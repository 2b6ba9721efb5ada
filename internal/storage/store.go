package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/containment/internal/engine"
	"github.com/san-kum/containment/internal/geom"
	"github.com/san-kum/containment/internal/metrics"
	"github.com/san-kum/containment/internal/trial"
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

func (s *Store) Dir() string { return s.baseDir }

type TrialMetadata struct {
	ID        string    `json:"id"`
	Kind      string    `json:"trial_type"`
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Seed      int64     `json:"seed"`
	Duration  float64   `json:"duration_seconds"`

	Names        map[string]string `json:"names"`
	ActiveFrames []int             `json:"active_frames"`
	Success      bool              `json:"success"`
	EarlyStop    bool              `json:"early_stop"`
	Frames       int               `json:"frames"`
	Forces       int               `json:"forces"`

	Metrics   map[string]float64 `json:"metrics"`
	Videos    []string           `json:"videos,omitempty"`
	FramesDir string             `json:"frames_dir,omitempty"`
}

// Metadata converts a finished trial into its stored form.
func Metadata(rep *trial.TrialReport) TrialMetadata {
	meta := TrialMetadata{
		ID:        fmt.Sprintf("%s_%d_%03d", rep.Setup.Kind, rep.Started.Unix(), rep.Index),
		Kind:      string(rep.Setup.Kind),
		Index:     rep.Index,
		Timestamp: rep.Started,
		Seed:      rep.Seed,
		Duration:  rep.Duration.Seconds(),
		Names:     rep.Setup.Names,
		Metrics:   rep.Metrics,
		Videos:    rep.Videos,
		FramesDir: rep.FramesDir,
	}
	if rep.Result != nil {
		meta.ActiveFrames = rep.Result.Active()
		meta.Success = rep.Result.Success
		meta.EarlyStop = rep.Result.EarlyStop
		meta.Frames = rep.Result.Frames
		meta.Forces = rep.Result.Forces
	}
	return meta
}

var sampleHeader = []string{
	"frame",
	"container_x", "container_y", "container_z",
	"container_rx", "container_ry", "container_rz",
	"object_x", "object_y", "object_z",
	"object_sleeping",
}

// Save writes metadata.json and samples.csv into a new trial directory.
func (s *Store) Save(rep *trial.TrialReport) (string, error) {
	meta := Metadata(rep)
	trialDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(trialDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(trialDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(trialDir, "samples.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(sampleHeader); err != nil {
		return "", err
	}
	for _, snap := range rep.Samples {
		row := []string{strconv.Itoa(snap.Frame)}
		for _, v := range []geom.Vec3{snap.Container.Position, snap.Container.Rotation, snap.Object.Position} {
			for _, c := range v.Array() {
				row = append(row, strconv.FormatFloat(c, 'f', 6, 64))
			}
		}
		row = append(row, strconv.FormatBool(snap.ObjectSleeping))
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns every stored trial, oldest first.
func (s *Store) List() ([]TrialMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []TrialMetadata{}, nil
		}
		return nil, err
	}

	trials := make([]TrialMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		trials = append(trials, *meta)
	}

	sort.SliceStable(trials, func(i, j int) bool {
		if !trials[i].Timestamp.Equal(trials[j].Timestamp) {
			return trials[i].Timestamp.Before(trials[j].Timestamp)
		}
		return trials[i].Index < trials[j].Index
	})
	return trials, nil
}

func (s *Store) Load(id string) (*TrialMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta TrialMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadSamples reads samples.csv back. Rows that fail to parse are skipped.
func (s *Store) LoadSamples(id string) ([]metrics.Snapshot, error) {
	file, err := os.Open(filepath.Join(s.baseDir, id, "samples.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []metrics.Snapshot{}, nil
	}

	samples := make([]metrics.Snapshot, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != len(sampleHeader) {
			continue
		}
		snap, ok := parseRow(record)
		if !ok {
			continue
		}
		samples = append(samples, snap)
	}
	return samples, nil
}

func parseRow(record []string) (metrics.Snapshot, bool) {
	frame, err := strconv.Atoi(record[0])
	if err != nil {
		return metrics.Snapshot{}, false
	}

	vals := make([]float64, 9)
	for i := range vals {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return metrics.Snapshot{}, false
		}
		vals[i] = v
	}
	sleeping, _ := strconv.ParseBool(record[10])

	return metrics.Snapshot{
		Frame: frame,
		Container: engine.Sample{
			Position:     geom.V(vals[0], vals[1], vals[2]),
			Rotation:     geom.V(vals[3], vals[4], vals[5]),
			HasTransform: true,
		},
		Object: engine.Sample{
			Position:     geom.V(vals[6], vals[7], vals[8]),
			HasTransform: true,
		},
		ObjectSleeping: sleeping,
	}, true
}
