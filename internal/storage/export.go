package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/containment/internal/metrics"
)

type ExportData struct {
	Trial   TrialMetadata      `json:"trial"`
	Steps   int                `json:"steps"`
	Frames  []int              `json:"frames"`
	Samples [][]float64        `json:"samples"`
	Columns []string           `json:"columns"`
	Metrics map[string]float64 `json:"metrics"`
}

func exportData(meta TrialMetadata, samples []metrics.Snapshot) ExportData {
	data := ExportData{
		Trial:   meta,
		Steps:   len(samples),
		Frames:  make([]int, len(samples)),
		Samples: make([][]float64, len(samples)),
		Columns: sampleHeader[1:10],
		Metrics: meta.Metrics,
	}

	for i, s := range samples {
		data.Frames[i] = s.Frame
		row := make([]float64, 0, 9)
		for _, v := range [][3]float64{s.Container.Position.Array(), s.Container.Rotation.Array(), s.Object.Position.Array()} {
			row = append(row, v[:]...)
		}
		data.Samples[i] = row
	}
	return data
}

func ExportJSON(path string, meta TrialMetadata, samples []metrics.Snapshot) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, meta, samples)
}

func WriteJSON(w io.Writer, meta TrialMetadata, samples []metrics.Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportData(meta, samples))
}
