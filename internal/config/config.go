package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/containment/internal/geom"
	"github.com/san-kum/containment/internal/trial"
)

const (
	DefaultEngineURL = "ws://localhost:1071"
	DefaultTimeout   = 30 * time.Second
	DefaultNum       = 1
	DefaultTotFrames = 200
	DefaultFramerate = 30
	DefaultPassMasks = "_img,_mask"
	DefaultDataDir   = "data"

	// ImagePass is always rendered and added when missing.
	ImagePass = "_img"
)

type Config struct {
	Engine   EngineConfig  `yaml:"engine"`
	Trial    TrialConfig   `yaml:"trial"`
	Tuning   trial.Tuning  `yaml:"tuning"`
	Catalog  CatalogConfig `yaml:"catalog"`
	DataDir  string        `yaml:"data_dir"`
	LogLevel string        `yaml:"log_level"`
}

type EngineConfig struct {
	URL              string        `yaml:"url"`
	Timeout          time.Duration `yaml:"timeout"`
	ValidateCommands bool          `yaml:"validate_commands"`
	FrameLog         bool          `yaml:"frame_log"`
}

type TrialConfig struct {
	Type             string   `yaml:"type"`
	Num              int      `yaml:"num"`
	TotFrames        int      `yaml:"tot_frames"`
	Framerate        int      `yaml:"framerate"`
	Room             string   `yaml:"room"`
	PassMasks        []string `yaml:"pass_masks"`
	PNG              bool     `yaml:"png"`
	AddObjectToScene bool     `yaml:"add_object_to_scene"`
	SaveFrames       bool     `yaml:"save_frames"`
	SaveMP4          bool     `yaml:"save_mp4"`
	Seed             int64    `yaml:"seed"`
	EulerOrder       string   `yaml:"euler_order"`
	ScreenWidth      int      `yaml:"screen_width"`
	ScreenHeight     int      `yaml:"screen_height"`
}

type CatalogConfig struct {
	// Path overrides the embedded model catalog when set.
	Path string `yaml:"path"`
}

func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			URL:     DefaultEngineURL,
			Timeout: DefaultTimeout,
		},
		Trial: TrialConfig{
			Type:             string(trial.Object),
			Num:              DefaultNum,
			TotFrames:        DefaultTotFrames,
			Framerate:        DefaultFramerate,
			Room:             trial.RoomEmpty,
			PassMasks:        ParsePassMasks(DefaultPassMasks),
			PNG:              true,
			AddObjectToScene: true,
			SaveFrames:       true,
			EulerOrder:       "xyz",
		},
		Tuning:   trial.DefaultTuning(),
		DataDir:  DefaultDataDir,
		LogLevel: "info",
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := Merge(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge overlays the yaml file at path onto cfg. Keys absent from the file
// keep their current values.
func Merge(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ParsePassMasks splits a comma separated list, dropping blanks.
func ParsePassMasks(s string) []string {
	var masks []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			masks = append(masks, m)
		}
	}
	return masks
}

// NormalizePassMasks prefixes masks with "_", drops duplicates and appends
// the image pass when it is missing. added reports the latter.
func NormalizePassMasks(masks []string) (out []string, added bool) {
	seen := map[string]bool{}
	for _, m := range masks {
		if !strings.HasPrefix(m, "_") {
			m = "_" + m
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	if !seen[ImagePass] {
		out = append(out, ImagePass)
		added = true
	}
	return out, added
}

func (c *Config) Kind() (trial.Kind, error) { return trial.ParseKind(c.Trial.Type) }

func (c *Config) Validate() error {
	if _, err := c.Kind(); err != nil {
		return err
	}
	if _, err := geom.ParseEulerOrder(c.Trial.EulerOrder); err != nil {
		return err
	}
	switch {
	case c.Trial.Num < 1:
		return fmt.Errorf("num must be positive, got %d", c.Trial.Num)
	case c.Trial.TotFrames < 1:
		return fmt.Errorf("tot_frames must be positive, got %d", c.Trial.TotFrames)
	case c.Trial.Framerate < 1:
		return fmt.Errorf("framerate must be positive, got %d", c.Trial.Framerate)
	case c.Engine.URL == "":
		return fmt.Errorf("engine url is required")
	case c.Engine.Timeout <= 0:
		return fmt.Errorf("engine timeout must be positive")
	}
	return c.Tuning.Validate()
}

// Options converts the trial section for the runner. Pass masks must have
// been normalised.
func (c *Config) Options() (trial.Options, error) {
	kind, err := c.Kind()
	if err != nil {
		return trial.Options{}, err
	}
	return trial.Options{
		Kind:             kind,
		Num:              c.Trial.Num,
		TotFrames:        c.Trial.TotFrames,
		Framerate:        c.Trial.Framerate,
		Room:             c.Trial.Room,
		PassMasks:        c.Trial.PassMasks,
		PNG:              c.Trial.PNG,
		ScreenWidth:      c.Trial.ScreenWidth,
		ScreenHeight:     c.Trial.ScreenHeight,
		AddObjectToScene: c.Trial.AddObjectToScene,
		Seed:             c.Trial.Seed,
		Tuning:           c.Tuning,
	}, nil
}

func (c *Config) TrialsDir() string { return filepath.Join(c.DataDir, "trials") }
func (c *Config) ImagesDir() string { return filepath.Join(c.DataDir, "images_temp") }
func (c *Config) IndexPath() string { return filepath.Join(c.DataDir, "trials.sqlite") }

// VideosDir holds the videos of one trial type. Frames are kept in the
// parallel "frames" tree.
func (c *Config) VideosDir() string {
	return filepath.Join(c.DataDir, "videos", "containment", c.Trial.Type)
}

func (c *Config) FrameLogPath(started time.Time) string {
	return filepath.Join(c.DataDir, "framelogs", fmt.Sprintf("containment-%s.jsonl.zst", started.UTC().Format("20060102-150405")))
}
