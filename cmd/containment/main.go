package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/containment/internal/config"
	"github.com/san-kum/containment/internal/logging"
)

var (
	dataDir  string
	logLevel string

	configFile       string
	preset           string
	trialType        string
	num              int
	totFrames        int
	framerate        int
	room             string
	passMasks        string
	png              bool
	addObjectToScene bool
	saveFrames       bool
	saveMP4          bool
	seed             int64
	engineURL        string
	eulerOrder       string
	validate         bool
	frameLog         bool
	useTUI           bool

	listType    string
	listSuccess bool
	listLimit   int

	showJSON bool
	showOut  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, logging.Message(err.Error(), logging.Error, logging.NoProgress))
		os.Exit(1)
	}
}

// newRootCmd registers every command and binds the flags to their defaults.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "containment",
		Short:         "containment trials against a remote physics engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a batch of trials",
		Args:  cobra.NoArgs,
		RunE:  runTrials,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration for the trial type")
	runCmd.Flags().StringVarP(&trialType, "trial_type", "t", "object", "trial type (object, transition, agent)")
	runCmd.Flags().IntVarP(&num, "num", "n", config.DefaultNum, "number of trials")
	runCmd.Flags().IntVar(&totFrames, "tot_frames", config.DefaultTotFrames, "frames per trial")
	runCmd.Flags().IntVar(&framerate, "framerate", config.DefaultFramerate, "target framerate and video framerate")
	runCmd.Flags().StringVar(&room, "room", "empty", "scene name, or empty")
	runCmd.Flags().StringVar(&passMasks, "pass_masks", config.DefaultPassMasks, "comma separated image passes")
	runCmd.Flags().BoolVar(&png, "png", true, "encode images as png instead of jpg")
	runCmd.Flags().BoolVar(&addObjectToScene, "add_object_to_scene", true, "add a balancer under the containers")
	runCmd.Flags().BoolVar(&saveFrames, "save_frames", true, "keep captured frames")
	runCmd.Flags().BoolVar(&saveMP4, "save_mp4", false, "encode one video per pass with ffmpeg")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed, 0 for time based")
	runCmd.Flags().StringVar(&engineURL, "engine", config.DefaultEngineURL, "engine websocket url")
	runCmd.Flags().StringVar(&eulerOrder, "euler-order", "xyz", "euler order used to decode rotations")
	runCmd.Flags().BoolVar(&validate, "validate", false, "validate every command batch against the schema")
	runCmd.Flags().BoolVar(&frameLog, "frame-log", false, "record every exchange to a compressed frame log")
	runCmd.Flags().BoolVar(&useTUI, "tui", false, "show live progress")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored trials",
		Args:  cobra.NoArgs,
		RunE:  listTrials,
	}
	listCmd.Flags().StringVar(&listType, "type", "", "only list one trial type")
	listCmd.Flags().BoolVar(&listSuccess, "success", false, "only list successful trials")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of trials")

	showCmd := &cobra.Command{
		Use:   "show [trial_id]",
		Short: "show trial metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  showTrial,
	}
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print metadata and samples as json")
	showCmd.Flags().StringVarP(&showOut, "out", "o", "", "write the json export to a file")

	plotCmd := &cobra.Command{
		Use:   "plot [trial_id]",
		Short: "plot container tilt and object height",
		Args:  cobra.ExactArgs(1),
		RunE:  plotTrial,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [trial_type]",
		Short: "list presets",
		Args:  cobra.ExactArgs(1),
		RunE:  listPresets,
	}

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "show the model pools",
		Args:  cobra.NoArgs,
		RunE:  showCatalog,
	}
	catalogCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, presetsCmd, catalogCmd)
	return rootCmd
}
