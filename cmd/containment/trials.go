package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/containment/internal/config"
	"github.com/san-kum/containment/internal/storage"
	"github.com/san-kum/containment/internal/trial"
)

func trialsStore() *storage.Store {
	return storage.New(filepath.Join(dataDir, "trials"))
}

// queryTrials reads the sqlite index, falling back to scanning the trial
// directories when no index was written yet.
func queryTrials(ctx context.Context) ([]storage.TrialMetadata, error) {
	path := filepath.Join(dataDir, "trials.sqlite")
	if _, err := os.Stat(path); err == nil {
		idx, err := storage.OpenIndex(path)
		if err != nil {
			return nil, err
		}
		defer idx.Close()
		return idx.List(ctx, storage.Query{Kind: listType, SuccessOnly: listSuccess, Limit: listLimit})
	}

	all, err := trialsStore().List()
	if err != nil {
		return nil, err
	}
	var out []storage.TrialMetadata
	for _, m := range all {
		if listType != "" && m.Kind != listType {
			continue
		}
		if listSuccess && !m.Success {
			continue
		}
		out = append(out, m)
		if listLimit > 0 && len(out) == listLimit {
			break
		}
	}
	return out, nil
}

func listTrials(cmd *cobra.Command, args []string) error {
	if listType != "" {
		if _, err := trial.ParseKind(listType); err != nil {
			return err
		}
	}
	trials, err := queryTrials(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(trials) == 0 {
		fmt.Fprintln(out, "no trials found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTIME\tOBJECT\tCONTAINER\tSUCCESS\tACTIVE")
	for _, t := range trials {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%v\n",
			t.ID,
			t.Kind,
			t.Timestamp.Format("2006-01-02 15:04:05"),
			t.Names["object"],
			t.Names["container"],
			t.Success,
			t.ActiveFrames,
		)
	}
	return w.Flush()
}

func showTrial(cmd *cobra.Command, args []string) error {
	st := trialsStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	if showJSON || showOut != "" {
		samples, err := st.LoadSamples(meta.ID)
		if err != nil {
			return err
		}
		if showOut != "" {
			if err := storage.ExportJSON(showOut, *meta, samples); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", meta.ID, showOut)
			return nil
		}
		return storage.WriteJSON(cmd.OutOrStdout(), *meta, samples)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "id\t%s\n", meta.ID)
	fmt.Fprintf(w, "type\t%s\n", meta.Kind)
	fmt.Fprintf(w, "time\t%s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "seed\t%d\n", meta.Seed)
	for _, role := range []string{"object", "container", "target"} {
		if name, ok := meta.Names[role]; ok {
			fmt.Fprintf(w, "%s\t%s\n", role, name)
		}
	}
	fmt.Fprintf(w, "frames\t%d\n", meta.Frames)
	fmt.Fprintf(w, "active frames\t%v\n", meta.ActiveFrames)
	fmt.Fprintf(w, "success\t%t\n", meta.Success)
	fmt.Fprintf(w, "early stop\t%t\n", meta.EarlyStop)
	fmt.Fprintf(w, "forces\t%d\n", meta.Forces)
	names := make([]string, 0, len(meta.Metrics))
	for name := range meta.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.4f\n", name, meta.Metrics[name])
	}
	for _, v := range meta.Videos {
		fmt.Fprintf(w, "video\t%s\n", v)
	}
	if meta.FramesDir != "" {
		fmt.Fprintf(w, "frames dir\t%s\n", meta.FramesDir)
	}
	return w.Flush()
}

func plotTrial(cmd *cobra.Command, args []string) error {
	st := trialsStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(meta.ID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	tilt := make([]float64, len(samples))
	height := make([]float64, len(samples))
	for i, s := range samples {
		tilt[i] = math.Max(math.Abs(s.Container.Rotation.X), math.Abs(s.Container.Rotation.Z))
		height[i] = s.Object.Position.Y
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "trial: %s\n", meta.ID)
	fmt.Fprintf(out, "type: %s\n", meta.Kind)
	fmt.Fprintf(out, "samples: %d\n\n", len(samples))

	for _, series := range []struct {
		data    []float64
		caption string
	}{
		{tilt, "container tilt (deg)"},
		{height, "object height"},
	} {
		graph := asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.caption),
		)
		fmt.Fprintln(out, graph)
		fmt.Fprintln(out)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := config.ListPresets(args[0])
	if names == nil {
		return fmt.Errorf("no presets for trial type %q", args[0])
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tNUM\tFRAMES\tSETTLE\tPATIENCE")
	for _, name := range names {
		p := config.GetPreset(args[0], name)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d-%d\t%d-%d\n",
			name,
			p.Trial.Num,
			p.Trial.TotFrames,
			p.Tuning.Settle.Min, p.Tuning.Settle.Max,
			p.Tuning.Patience.Min, p.Tuning.Patience.Max,
		)
	}
	return w.Flush()
}

func showCatalog(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		if err := config.Merge(configFile, cfg); err != nil {
			return err
		}
	}
	lib, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POOL\tMODEL\tLIBRARY\tEXTENTS")
	for _, pool := range []struct {
		name  string
		names []string
	}{
		{"containers", lib.Pools.Containers},
		{"contained", lib.Pools.Contained},
		{"targets", lib.Pools.Targets},
		{"balancers", lib.Pools.Balancers},
	} {
		for _, name := range pool.names {
			rec, err := lib.Record(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", pool.name, rec.Name, rec.Library, rec.Extents)
		}
	}
	return w.Flush()
}
