package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/containment/internal/geom"
)

const (
	LibraryCore = "models_core.json"
	LibraryFlex = "models_flex.json"
)

var ErrUnknownModel = errors.New("catalog: unknown model")

//go:embed models.yaml
var defaultModels []byte

// Record is the subset of an asset catalog entry the trials consume.
type Record struct {
	Name    string    `yaml:"name" json:"name"`
	Library string    `yaml:"library" json:"library"`
	Extents geom.Vec3 `yaml:"extents" json:"extents"`
	Center  geom.Vec3 `yaml:"center" json:"center"`
}

// BoundsExtents returns the width (x), height (y) and depth (z) of the bounds.
func (r Record) BoundsExtents() geom.Vec3 { return r.Extents }

// UnitScale is the uniform scale that makes the largest side one unit long.
func (r Record) UnitScale() float64 {
	m := r.Extents.Max()
	if m <= 0 {
		return 1
	}
	return 1 / m
}

// Library is a name-keyed model lookup.
type Library interface {
	Record(name string) (Record, error)
}

type Pools struct {
	Containers []string `yaml:"containers"`
	Contained  []string `yaml:"contained"`
	Targets    []string `yaml:"targets"`
	Balancers  []string `yaml:"balancers"`
}

type file struct {
	Pools  Pools    `yaml:"pools"`
	Models []Record `yaml:"models"`
}

// YAMLLibrary is a Library backed by a yaml model list.
type YAMLLibrary struct {
	Pools   Pools
	records map[string]Record
}

// Default returns the library embedded in the binary.
func Default() (*YAMLLibrary, error) {
	return Parse(defaultModels)
}

func Load(path string) (*YAMLLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*YAMLLibrary, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	lib := &YAMLLibrary{
		Pools:   f.Pools,
		records: make(map[string]Record, len(f.Models)),
	}
	for _, r := range f.Models {
		if r.Library == "" {
			r.Library = LibraryCore
		}
		lib.records[r.Name] = r
	}

	for _, pool := range [][]string{f.Pools.Containers, f.Pools.Contained, f.Pools.Targets, f.Pools.Balancers} {
		for _, name := range pool {
			if _, ok := lib.records[name]; !ok {
				return nil, fmt.Errorf("pool references %q: %w", name, ErrUnknownModel)
			}
		}
	}
	return lib, nil
}

func (l *YAMLLibrary) Record(name string) (Record, error) {
	r, ok := l.records[name]
	if !ok {
		return Record{}, fmt.Errorf("%q: %w", name, ErrUnknownModel)
	}
	return r, nil
}

// Names lists every model, optionally filtered by library.
func (l *YAMLLibrary) Names(library string) []string {
	names := make([]string, 0, len(l.records))
	for name, r := range l.records {
		if library == "" || r.Library == library {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
