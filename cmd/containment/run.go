package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/containment/internal/catalog"
	"github.com/san-kum/containment/internal/config"
	"github.com/san-kum/containment/internal/engine"
	"github.com/san-kum/containment/internal/framelog"
	"github.com/san-kum/containment/internal/geom"
	"github.com/san-kum/containment/internal/logging"
	"github.com/san-kum/containment/internal/packaging"
	"github.com/san-kum/containment/internal/storage"
	"github.com/san-kum/containment/internal/trial"
	"github.com/san-kum/containment/internal/tui"
)

// resolveConfig layers the preset, the config file and the flags set on the
// command line, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(trialType, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(trialType))
		}
		copied := *p
		cfg = &copied
	}

	if configFile != "" {
		if err := config.Merge(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if flags.Changed("trial_type") {
		cfg.Trial.Type = trialType
	}
	if flags.Changed("num") {
		cfg.Trial.Num = num
	}
	if flags.Changed("tot_frames") {
		cfg.Trial.TotFrames = totFrames
	}
	if flags.Changed("framerate") {
		cfg.Trial.Framerate = framerate
	}
	if flags.Changed("room") {
		cfg.Trial.Room = room
	}
	if flags.Changed("pass_masks") {
		cfg.Trial.PassMasks = config.ParsePassMasks(passMasks)
	}
	if flags.Changed("png") {
		cfg.Trial.PNG = png
	}
	if flags.Changed("add_object_to_scene") {
		cfg.Trial.AddObjectToScene = addObjectToScene
	}
	if flags.Changed("save_frames") {
		cfg.Trial.SaveFrames = saveFrames
	}
	if flags.Changed("save_mp4") {
		cfg.Trial.SaveMP4 = saveMP4
	}
	if flags.Changed("seed") {
		cfg.Trial.Seed = seed
	}
	if flags.Changed("euler-order") {
		cfg.Trial.EulerOrder = eulerOrder
	}
	if flags.Changed("engine") {
		cfg.Engine.URL = engineURL
	}
	if flags.Changed("validate") {
		cfg.Engine.ValidateCommands = validate
	}
	if flags.Changed("frame-log") {
		cfg.Engine.FrameLog = frameLog
	}
	if flags.Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}

	if cfg.Trial.Seed == 0 {
		cfg.Trial.Seed = time.Now().UnixNano()
	}
	return cfg, cfg.Validate()
}

func loadCatalog(cfg *config.Config) (*catalog.YAMLLibrary, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.Catalog.Path)
}

func runTrials(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	masks, added := config.NormalizePassMasks(cfg.Trial.PassMasks)
	cfg.Trial.PassMasks = masks
	if added {
		fmt.Println(logging.Message("pass masks must include "+config.ImagePass+", adding it", logging.Warning, logging.NoProgress))
	}

	kind, err := cfg.Kind()
	if err != nil {
		return err
	}
	order, err := geom.ParseEulerOrder(cfg.Trial.EulerOrder)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	lib, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	// The tui owns the terminal, so logs go to a file.
	logOut := os.Stderr
	if useTUI {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(cfg.DataDir, "containment.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	log := logging.New(cfg.LogLevel, logOut)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client, err := dialEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer client.Close()

	capture, err := packaging.NewCapture(cfg.ImagesDir(), cfg.Trial.PNG)
	if err != nil {
		return err
	}
	mws := []engine.Middleware{capture.Middleware()}
	if cfg.Engine.FrameLog {
		path := cfg.FrameLogPath(time.Now())
		w, err := framelog.Create(path)
		if err != nil {
			return fmt.Errorf("frame log: %w", err)
		}
		defer w.Close()
		mws = append(mws, framelog.Recorder(w))
		log.Info().Str("path", path).Msg("recording frames")
	}
	comm := engine.Chain(client, mws...)

	runner, err := trial.NewRunner(comm, lib, lib.Pools, engine.NewParser(order), opts)
	if err != nil {
		return err
	}
	runner.SetLogger(log)

	st := storage.New(cfg.TrialsDir())
	if err := st.Init(); err != nil {
		return err
	}
	idx, err := storage.OpenIndex(cfg.IndexPath())
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	runner.AddSink(&packaging.Sink{
		Capture: capture,
		Assembler: &packaging.Assembler{
			ImageFolder: capture.Dir(),
			PassMasks:   cfg.Trial.PassMasks,
			Framerate:   cfg.Trial.Framerate,
			PNG:         cfg.Trial.PNG,
			SaveFrames:  cfg.Trial.SaveFrames,
			SaveMP4:     cfg.Trial.SaveMP4,
			Log:         log,
		},
		VideoDir: cfg.VideosDir(),
	})
	runner.AddSink(trial.SinkFunc(func(ctx context.Context, rep *trial.TrialReport) error {
		id, err := st.Save(rep)
		if err != nil {
			return fmt.Errorf("save trial: %w", err)
		}
		log.Debug().Str("id", id).Msg("trial stored")
		return idx.Insert(ctx, storage.Metadata(rep))
	}))

	log.Info().
		Str("type", string(kind)).
		Int("num", cfg.Trial.Num).
		Int("tot_frames", cfg.Trial.TotFrames).
		Int64("seed", cfg.Trial.Seed).
		Msg("starting batch")

	work := func(ctx context.Context, progress trial.Progress) error {
		runner.OnProgress(progress)
		_, runErr := runner.Run(ctx)
		closeErr := runner.Close(context.WithoutCancel(ctx))
		return errors.Join(runErr, closeErr)
	}

	if useTUI {
		return tui.Run(ctx, kind, cfg.Trial.Num, work)
	}
	return work(ctx, func(done, total int, rep *trial.TrialReport) {
		text := fmt.Sprintf("trial %d/%d %s active frames %v", done, total, kind, rep.Result.Active())
		fmt.Println(logging.Message(text, logging.Success, logging.Slots(done, total)))
	})
}

func dialEngine(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*engine.WSClient, error) {
	opts := []engine.Option{
		engine.WithTimeout(cfg.Engine.Timeout),
		engine.WithLogger(log),
	}
	if cfg.Engine.ValidateCommands {
		v, err := engine.NewValidator()
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithValidation(v))
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Engine.Timeout)
	defer cancel()
	client, err := engine.Dial(dialCtx, cfg.Engine.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to engine at %s: %w", cfg.Engine.URL, err)
	}
	log.Info().Str("url", cfg.Engine.URL).Msg("connected")
	return client, nil
}
