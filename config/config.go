// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package config holds the process-wide settings of the pini tools:
// where jobs live, which master to read, and how to cache.  Settings
// come from an optional YAML file, overridden by PINI_* environment
// variables, overridden in turn by command-line flags.
package config

import (
	"io/ioutil"
	"reflect"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-pini/backend"
	"github.com/diffeo/go-pini/cache"
	"github.com/diffeo/go-pini/pipe"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// CurPathVar is the environment variable naming the current scene.
const CurPathVar = "PINI_CUR_PATH"

// Settings are the process-wide settings.
type Settings struct {
	// JobsRoot is the directory containing every job.
	JobsRoot string `mapstructure:"jobs_root" yaml:"jobs_root"`

	// ConfigPath overrides where each job keeps its config.
	ConfigPath string `mapstructure:"config_path" yaml:"config_path,omitempty"`

	// Master is "disk" or "tracker".
	Master string `mapstructure:"master" yaml:"master"`

	// TrackerURL is the tracker's base URL, used when Master is
	// "tracker".
	TrackerURL string `mapstructure:"tracker_url" yaml:"tracker_url,omitempty"`

	// Snapshots is where tracker window snapshots are kept:
	// "memory", "files:DIR" or "postgres:URL".
	Snapshots string `mapstructure:"snapshots" yaml:"snapshots,omitempty"`

	// PathMap is "src>>>dest;src2>>>dest2".
	PathMap string `mapstructure:"path_map" yaml:"path_map,omitempty"`

	// CurPath fixes the current scene.  If empty, it is read from
	// PINI_CUR_PATH whenever it is needed.
	CurPath string `mapstructure:"cur_path" yaml:"cur_path,omitempty"`

	// CacheMaxAge is the age after which cache files are ignored;
	// zero keeps them forever.
	CacheMaxAge time.Duration `mapstructure:"cache_max_age" yaml:"cache_max_age,omitempty"`

	// LogLevel is a logrus level name.
	LogLevel string `mapstructure:"log_level" yaml:"log_level,omitempty"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Master:    "disk",
		Snapshots: "memory",
		LogLevel:  "info",
	}
}

// envVars maps environment variables to settings keys.
var envVars = map[string]string{
	"PINI_JOBS_ROOT":     "jobs_root",
	"PINI_PIPE_CFG_PATH": "config_path",
	"PINI_PIPE_MASTER":   "master",
	"PINI_TRACKER_URL":   "tracker_url",
	"PINI_SNAPSHOTS":     "snapshots",
	"PINI_PATH_MAP":      "path_map",
	"PINI_CACHE_MAX_AGE": "cache_max_age",
	"PINI_LOG_LEVEL":     "log_level",
}

// Load reads settings from a YAML file, if filename is not empty,
// and then from the environment.  getenv is normally os.Getenv.
func Load(filename string, getenv func(string) string) (Settings, error) {
	values := make(map[string]interface{})
	if filename != "" {
		data, err := ioutil.ReadFile(filename)
		if err != nil {
			return Settings{}, err
		}
		if err = yaml.Unmarshal(data, &values); err != nil {
			return Settings{}, errors.Wrapf(err, "reading %v", filename)
		}
	}
	for name, key := range envVars {
		if value := getenv(name); value != "" {
			values[key] = value
		}
	}
	settings, err := Decode(values)
	if filename != "" {
		err = errors.Wrapf(err, "%v", filename)
	}
	return settings, err
}

// Decode merges a map of settings over the defaults.
func Decode(values map[string]interface{}) (Settings, error) {
	settings := Default()
	decoderConfig := mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decodeDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &settings,
	}
	decoder, err := mapstructure.NewDecoder(&decoderConfig)
	if err == nil {
		err = decoder.Decode(values)
	}
	if err != nil {
		return Settings{}, errors.Wrap(err, "decoding settings")
	}
	if err = settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// decodeDurationHook reads a bare number of seconds as a duration.
func decodeDurationHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch value := data.(type) {
	case int:
		return time.Duration(value) * time.Second, nil
	case float64:
		return time.Duration(value * float64(time.Second)), nil
	}
	return data, nil
}

// Validate checks that the settings name real things.
func (s Settings) Validate() error {
	var b backend.Backend
	if err := b.Set(s.Master); err != nil {
		return err
	}
	var snapshots backend.Snapshots
	if err := snapshots.Set(s.Snapshots); err != nil {
		return err
	}
	if _, err := pipe.ParsePathMap(s.PathMap); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(s.LogLevel); err != nil {
		return err
	}
	if s.CacheMaxAge < 0 {
		return errors.Errorf("negative cache max age %v", s.CacheMaxAge)
	}
	return nil
}

// Layout says where jobs live.
func (s Settings) Layout() pipe.Layout {
	return pipe.Layout{JobsRoot: s.JobsRoot, ConfigPath: s.ConfigPath}
}

// Backend returns the store selection flag value.
func (s Settings) Backend() backend.Backend {
	b := backend.Backend{Implementation: s.Master}
	if s.Master == "tracker" {
		b.Address = s.TrackerURL
	}
	return b
}

// Environment returns where the current scene comes from.
func (s Settings) Environment() cache.Environment {
	if s.CurPath != "" {
		return cache.StaticEnvironment(s.CurPath)
	}
	return cache.EnvVar(CurPathVar)
}

// Open connects to the configured master and creates a cache over
// it.
func (s Settings) Open(clk clock.Clock) (*cache.Root, error) {
	if clk == nil {
		clk = clock.New()
	}
	pathMap, err := pipe.ParsePathMap(s.PathMap)
	if err != nil {
		return nil, err
	}
	var snapshots backend.Snapshots
	if err = snapshots.Set(s.Snapshots); err != nil {
		return nil, err
	}
	snapshotStore, err := snapshots.Store(clk)
	if err != nil {
		return nil, err
	}
	b := s.Backend()
	store, err := b.Store(s.Layout(), backend.Options{
		Clock:     clk,
		Snapshots: snapshotStore,
		PathMap:   pathMap,
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"master":    store.Master(),
		"jobs_root": s.JobsRoot,
	}).Debug("opened pipeline")
	return cache.New(store, cache.Options{
		Clock:       clk,
		Environment: s.Environment(),
		MaxAge:      s.CacheMaxAge,
		PathMap:     pathMap,
	}), nil
}

// ConfigureLogging sets the logrus level.
func (s Settings) ConfigureLogging() {
	if level, err := logrus.ParseLevel(s.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
}
