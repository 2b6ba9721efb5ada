package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/containment/internal/catalog"
	"github.com/san-kum/containment/internal/engine"
	"github.com/san-kum/containment/internal/geom"
	"github.com/san-kum/containment/internal/metrics"
	"github.com/san-kum/containment/internal/trial"
)

func testReport(kind trial.Kind, index int, active []int) *trial.TrialReport {
	return &trial.TrialReport{
		Index:    index,
		Seed:     42,
		Started:  time.Date(2024, 3, 1, 12, 0, index, 0, time.UTC),
		Duration: 1500 * time.Millisecond,
		Setup: &trial.Setup{
			Kind:  kind,
			Pair:  catalog.Pair{},
			Names: map[string]string{"object": "golf", "container": "serving_bowl"},
		},
		Result:  &trial.Result{Kind: kind, ActiveFrames: active, Success: true, Frames: 2},
		Metrics: map[string]float64{"travel": 0.25},
		Samples: []metrics.Snapshot{
			{
				Frame:     0,
				Container: engine.Sample{Position: geom.V(1, 0.2, 1), Rotation: geom.V(5, 0, -3), HasTransform: true},
				Object:    engine.Sample{Position: geom.V(1, 0.8, 1), HasTransform: true},
			},
			{
				Frame:          1,
				Container:      engine.Sample{Position: geom.V(1, 0.2, 1), HasTransform: true},
				Object:         engine.Sample{Position: geom.V(1, 0.3, 1.25), HasTransform: true},
				ObjectSleeping: true,
			},
		},
		Videos: []string{"videos/trial_0_img.mp4"},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	id, err := st.Save(testReport(trial.Transition, 0, []int{21}))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty trial id")
	}

	meta, err := st.Load(id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Kind != "transition" || meta.Seed != 42 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if len(meta.ActiveFrames) != 1 || meta.ActiveFrames[0] != 21 {
		t.Errorf("expected active frames [21], got %v", meta.ActiveFrames)
	}
	if meta.Names["container"] != "serving_bowl" {
		t.Errorf("names not stored: %v", meta.Names)
	}
	if meta.Metrics["travel"] != 0.25 {
		t.Errorf("expected travel 0.25, got %f", meta.Metrics["travel"])
	}

	samples, err := st.LoadSamples(id)
	if err != nil {
		t.Fatalf("load samples failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Container.Rotation != geom.V(5, 0, -3) {
		t.Errorf("rotation round trip: %v", samples[0].Container.Rotation)
	}
	if samples[1].Object.Position != geom.V(1, 0.3, 1.25) || !samples[1].ObjectSleeping {
		t.Errorf("object sample round trip: %+v", samples[1])
	}
}

func TestStoreSentinel(t *testing.T) {
	st := New(t.TempDir())
	id, err := st.Save(testReport(trial.Object, 0, nil))
	if err != nil {
		t.Fatal(err)
	}
	meta, err := st.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(meta.ActiveFrames) != 1 || meta.ActiveFrames[0] != trial.NoActiveFrames {
		t.Errorf("expected sentinel, got %v", meta.ActiveFrames)
	}
}

func TestStoreList(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	trials, err := st.List()
	if err != nil || len(trials) != 0 {
		t.Fatalf("expected empty list for missing dir, got %v, %v", trials, err)
	}

	for i := 2; i >= 0; i-- {
		if _, err := st.Save(testReport(trial.Agent, i, []int{0, 1})); err != nil {
			t.Fatal(err)
		}
	}
	trials, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 3 {
		t.Fatalf("expected 3 trials, got %d", len(trials))
	}
	for i, m := range trials {
		if m.Index != i {
			t.Errorf("trial %d has index %d", i, m.Index)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	rep := testReport(trial.Object, 0, nil)
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Metadata(rep), rep.Samples); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.Steps != 2 || len(data.Samples[0]) != len(data.Columns) {
		t.Errorf("unexpected export %+v", data)
	}
}

func TestIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "db", "trials.sqlite"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	failed := Metadata(testReport(trial.Agent, 1, []int{0, 1, 2}))
	failed.Success = false
	for _, m := range []TrialMetadata{
		Metadata(testReport(trial.Object, 0, nil)),
		failed,
		Metadata(testReport(trial.Agent, 2, []int{4})),
	} {
		if err := idx.Insert(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	all, err := idx.List(ctx, Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 trials, got %d", len(all))
	}

	agents, err := idx.List(ctx, Query{Kind: "agent", SuccessOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(agents) != 1 || agents[0].Index != 2 || agents[0].ActiveFrames[0] != 4 {
		t.Errorf("unexpected filtered trials %+v", agents)
	}
	if agents[0].Names["object"] != "golf" {
		t.Errorf("names not restored: %v", agents[0].Names)
	}

	limited, err := idx.List(ctx, Query{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit ignored, got %d", len(limited))
	}

	// re-indexing replaces the row
	if err := idx.Insert(ctx, all[0]); err != nil {
		t.Fatal(err)
	}
	if again, _ := idx.List(ctx, Query{}); len(again) != 3 {
		t.Errorf("expected 3 trials after reinsert, got %d", len(again))
	}
}
