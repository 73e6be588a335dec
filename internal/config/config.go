// Package config loads the tags configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pbaille/tags/internal/cloud"
	"github.com/pbaille/tags/internal/store"
	"github.com/pbaille/tags/internal/tagging"
)

// Config is the content of the configuration file. Unset values fall back to
// Default().
type Config struct {
	DB      DB      `yaml:"db"`
	Tagging Tagging `yaml:"tagging"`
	Cloud   Cloud   `yaml:"cloud"`
}

type DB struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type Tagging struct {
	Separator              string `yaml:"separator"`
	SubjectType            string `yaml:"subject_type"`
	Partition              string `yaml:"partition"`
	Mode                   string `yaml:"mode"`
	CacheOccurrence        *bool  `yaml:"cache_occurrence"`
	ScopedCounter          bool   `yaml:"scoped_counter"`
	TaggedCounter          bool   `yaml:"tagged_counter"`
	AutomaticTagging       *bool  `yaml:"automatic_tagging"`
	DeleteTagsOnEmptyField bool   `yaml:"delete_tags_on_empty_field"`
}

type Cloud struct {
	MinSize int    `yaml:"min_size"`
	MaxSize int    `yaml:"max_size"`
	Shuffle *bool  `yaml:"shuffle"`
	URL     string `yaml:"url"`
	Named   string `yaml:"named"`
	Before  string `yaml:"before"`
	After   string `yaml:"after"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tags", "config.yaml")
}

func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tags", "tags.db")
}

func boolPtr(v bool) *bool { return &v }

// Default returns the configuration used without a file.
func Default() Config {
	return Config{
		DB: DB{
			Driver: store.DefaultDriver,
			Path:   DefaultDBPath(),
		},
		Tagging: Tagging{
			Separator:        tagging.DefaultSeparator,
			SubjectType:      "default",
			Mode:             string(tagging.ModeReplace),
			CacheOccurrence:  boolPtr(true),
			AutomaticTagging: boolPtr(true),
		},
		// sizes are left unset so each cloud rendering applies its own scale
		Cloud: Cloud{
			Shuffle: boolPtr(true),
			URL:     "/search",
			Named:   "by",
		},
	}
}

// Load reads the file at path. A missing file is not an error, the defaults
// are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.merge(file)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

func apply(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func (c *Config) merge(f Config) {
	apply(&c.DB.Driver, f.DB.Driver)
	apply(&c.DB.Path, f.DB.Path)

	// the separator may be a space, so it is not trimmed
	if f.Tagging.Separator != "" {
		c.Tagging.Separator = f.Tagging.Separator
	}

	apply(&c.Tagging.SubjectType, f.Tagging.SubjectType)
	apply(&c.Tagging.Partition, f.Tagging.Partition)
	apply(&c.Tagging.Mode, f.Tagging.Mode)
	if f.Tagging.CacheOccurrence != nil {
		c.Tagging.CacheOccurrence = f.Tagging.CacheOccurrence
	}
	if f.Tagging.AutomaticTagging != nil {
		c.Tagging.AutomaticTagging = f.Tagging.AutomaticTagging
	}
	c.Tagging.ScopedCounter = f.Tagging.ScopedCounter
	c.Tagging.TaggedCounter = f.Tagging.TaggedCounter
	c.Tagging.DeleteTagsOnEmptyField = f.Tagging.DeleteTagsOnEmptyField

	if f.Cloud.MinSize != 0 || f.Cloud.MaxSize != 0 {
		c.Cloud.MinSize, c.Cloud.MaxSize = f.Cloud.MinSize, f.Cloud.MaxSize
	}
	if f.Cloud.Shuffle != nil {
		c.Cloud.Shuffle = f.Cloud.Shuffle
	}
	apply(&c.Cloud.URL, f.Cloud.URL)
	apply(&c.Cloud.Named, f.Cloud.Named)
	c.Cloud.Before = f.Cloud.Before
	c.Cloud.After = f.Cloud.After
}

// Validate checks the values that have a closed set of choices.
func (c Config) Validate() error {
	switch tagging.Mode(c.Tagging.Mode) {
	case tagging.ModeReplace, tagging.ModeAppend:
	default:
		return fmt.Errorf("%w: unknown mode %q", tagging.ErrValidation, c.Tagging.Mode)
	}

	switch c.DB.Driver {
	case store.DriverCgo, store.DriverPure:
	default:
		return fmt.Errorf("%w: unknown driver %q", tagging.ErrValidation, c.DB.Driver)
	}

	if c.Cloud.MaxSize < c.Cloud.MinSize {
		return fmt.Errorf("%w: cloud max_size %d is below min_size %d", tagging.ErrValidation, c.Cloud.MaxSize, c.Cloud.MinSize)
	}

	return nil
}

// TaggingOptions returns the options of the Tagger.
func (c Config) TaggingOptions() tagging.Options {
	return tagging.Options{
		Separator:              c.Tagging.Separator,
		SubjectType:            c.Tagging.SubjectType,
		Mode:                   tagging.Mode(c.Tagging.Mode),
		CacheOccurrence:        c.Tagging.CacheOccurrence != nil && *c.Tagging.CacheOccurrence,
		ScopedCounter:          c.Tagging.ScopedCounter,
		TaggedCounter:          c.Tagging.TaggedCounter,
		AutomaticTagging:       c.Tagging.AutomaticTagging != nil && *c.Tagging.AutomaticTagging,
		DeleteTagsOnEmptyField: c.Tagging.DeleteTagsOnEmptyField,
	}
}

// StoreConfig returns the database settings.
func (c Config) StoreConfig() store.Config {
	return store.Config{Driver: c.DB.Driver, Path: c.DB.Path}
}

// Weights returns the size range of the plain weight listing. Without
// configured sizes it is the cloud package default.
func (c Config) Weights() (minSize, maxSize int) {
	if c.Cloud.MinSize == 0 && c.Cloud.MaxSize == 0 {
		return cloud.DefaultMinWeight, cloud.DefaultMaxWeight
	}

	return c.Cloud.MinSize, c.Cloud.MaxSize
}

// DisplayOptions returns the options of the HTML cloud. Unset sizes are
// resolved by cloud.Display.
func (c Config) DisplayOptions() cloud.DisplayOptions {
	return cloud.DisplayOptions{
		Shuffle: c.Cloud.Shuffle != nil && *c.Cloud.Shuffle,
		Before:  c.Cloud.Before,
		After:   c.Cloud.After,
		MinSize: c.Cloud.MinSize,
		MaxSize: c.Cloud.MaxSize,
		URL:     c.Cloud.URL,
		Named:   c.Cloud.Named,
	}
}
