// Package config loads knowmap settings from an optional TOML file.
//
// Values start from [Default] and are overlaid by the file; command-line
// flags are applied on top by the caller. A typical file:
//
//	[graph]
//	depth = 2
//	bottom_to_top = true
//	wrap_width = 12
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
//	[source]
//	kind = "content"
//	content_url = "https://content.example.org/api"
//
//	[server]
//	addr = ":8080"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/knowmap/pkg/cache"
	errs "github.com/matzehuels/knowmap/pkg/errors"
	"github.com/matzehuels/knowmap/pkg/kgraph/subgraph"
	"github.com/matzehuels/knowmap/pkg/render/dot"
)

// Source kinds.
const (
	SourceFile    = "file"
	SourceContent = "content"
	SourceMongo   = "mongo"
)

// Config is the full configuration.
type Config struct {
	Graph  Graph  `toml:"graph"`
	Cache  Cache  `toml:"cache"`
	Source Source `toml:"source"`
	Server Server `toml:"server"`
}

// Graph holds the extraction and serialization defaults.
type Graph struct {
	Depth       int  `toml:"depth" validate:"gte=0"`
	BottomToTop bool `toml:"bottom_to_top"`
	WrapWidth   int  `toml:"wrap_width" validate:"gte=0"`
}

// Cache selects the artifact cache backend.
type Cache struct {
	Backend       string        `toml:"backend" validate:"oneof=file redis memory none"`
	Dir           string        `toml:"dir"`
	RedisAddr     string        `toml:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB       int           `toml:"redis_db" validate:"gte=0"`
	MemoryEntries int           `toml:"memory_entries" validate:"gte=0"`
	TTL           time.Duration `toml:"ttl" validate:"gte=0"`
}

// Source selects where graph documents come from.
type Source struct {
	Kind            string `toml:"kind" validate:"oneof=file content mongo"`
	Path            string `toml:"path"`
	ContentURL      string `toml:"content_url" validate:"required_if=Kind content"`
	MongoURI        string `toml:"mongo_uri" validate:"required_if=Kind mongo"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Graph: Graph{
			Depth:       subgraph.DefaultDepth,
			BottomToTop: true,
			WrapWidth:   dot.DefaultWrapWidth,
		},
		Cache: Cache{
			Backend: cache.BackendFile,
			TTL:     cache.TTLArtifact,
		},
		Source: Source{Kind: SourceFile},
		Server: Server{Addr: ":8080"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/knowmap/config.toml, falling back to
// the platform user config directory.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		d, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = d
	}
	return filepath.Join(base, "knowmap", "config.toml"), nil
}

// Load reads the file at path over [Default] and validates the result.
// An empty path loads [DefaultPath] when that file exists and the defaults
// otherwise. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, cfg)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		return Default(), nil
	default:
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "load %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errs.New(errs.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		if c.Source.ContentURL != "" {
			if uerr := errs.ValidateURL(c.Source.ContentURL); uerr != nil {
				return errs.Wrap(errs.ErrCodeInvalidConfig, uerr, "source.content_url")
			}
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "validate config")
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fieldMessage(fe)
	}
	return errs.New(errs.ErrCodeInvalidConfig, "%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// CacheOptions converts the cache section for [cache.Open].
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:       c.Cache.Backend,
		Dir:           c.Cache.Dir,
		RedisAddr:     c.Cache.RedisAddr,
		RedisDB:       c.Cache.RedisDB,
		MemoryEntries: c.Cache.MemoryEntries,
	}
}
