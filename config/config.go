// Package config loads the layered gospectral configuration. Files named
// gospectral.yaml are merged from the executable directory, ~/.gospectral
// and the working directory, later files overriding earlier ones, and
// GOSPECTRAL_* environment variables override them all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/notargets/gospectral/logger"
	"github.com/notargets/gospectral/transform"
	"github.com/spf13/viper"
)

const (
	Name = "gospectral"

	KeyPlannerEffort = "transform.planner_effort"
	KeyLogLevel      = "log.level"
	KeyLogFormat     = "log.format"
)

type Config struct {
	Transform transform.Config
	Log       logger.Config
}

// New returns a viper instance carrying the defaults and the environment
// binding.
func New() (v *viper.Viper) {
	v = viper.New()
	v.SetConfigType("yaml")
	v.SetDefault(KeyPlannerEffort, transform.Estimate.String())
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetEnvPrefix(strings.ToUpper(Name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return
}

// SearchPath lists the configuration directories in merge order.
func SearchPath() (dirs []string) {
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if home, err := homedir.Dir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "."+Name))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	return
}

// Merge merges gospectral.yaml from every directory that has one.
func Merge(v *viper.Viper, dirs ...string) (err error) {
	for _, dir := range dirs {
		file := filepath.Join(dir, Name+".yaml")
		if _, statErr := os.Stat(file); statErr != nil {
			continue
		}
		v.SetConfigFile(file)
		if err = v.MergeInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
	}
	return
}

func Decode(v *viper.Viper) (cfg Config, err error) {
	cfg.Transform = transform.DefaultConfig()
	cfg.Log = logger.DefaultConfig()
	if cfg.Transform.Effort, err = transform.ParseEffort(v.GetString(KeyPlannerEffort)); err != nil {
		return
	}
	if cfg.Log.Level, err = logger.ParseLevel(v.GetString(KeyLogLevel)); err != nil {
		return
	}
	switch f := strings.ToLower(v.GetString(KeyLogFormat)); f {
	case "text", "json":
		cfg.Log.Format = f
	default:
		err = fmt.Errorf("unknown log format %q", f)
	}
	return
}

// Load merges the configuration from dirs, or from SearchPath when none are
// given, and decodes it.
func Load(dirs ...string) (Config, error) {
	if len(dirs) == 0 {
		dirs = SearchPath()
	}
	v := New()
	if err := Merge(v, dirs...); err != nil {
		return Config{}, err
	}
	return Decode(v)
}
