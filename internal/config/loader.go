package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dagucloud/rollbuf/internal/build"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Load creates a ConfigLoader on a fresh viper instance and loads the configuration.
func Load(opts ...ConfigLoaderOption) (*Config, error) {
	cfg, err := NewConfigLoader(viper.New(), opts...).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// ConfigLoader reads and merges configuration from the config file, an
// optional .env file and the environment.
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	configDir  string
	warnings   []string
}

// ConfigLoaderOption defines a functional option for configuring a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile sets an explicit configuration file. It must exist.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// WithConfigDir overrides the directory searched for config.yaml and .env.
func WithConfigDir(dir string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configDir = dir
	}
}

// NewConfigLoader creates a ConfigLoader with the given viper instance and options.
func NewConfigLoader(v *viper.Viper, options ...ConfigLoaderOption) *ConfigLoader {
	loader := &ConfigLoader{v: v}
	for _, opt := range options {
		opt(loader)
	}
	return loader
}

type envBinding struct {
	key string
	env string
}

var envBindings = []envBinding{
	{key: "debug", env: "DEBUG"},
	{key: "log_format", env: "LOG_FORMAT"},
	{key: "log_history", env: "LOG_HISTORY"},
	{key: "buffer.size", env: "BUFFER_SIZE"},
	{key: "buffer.capacity", env: "BUFFER_CAPACITY"},
	{key: "monitoring.retention", env: "MONITORING_RETENTION"},
	{key: "monitoring.interval", env: "MONITORING_INTERVAL"},
	{key: "monitoring.disk_path", env: "MONITORING_DISK_PATH"},
	{key: "monitoring.metrics", env: "MONITORING_METRICS"},
}

// Load reads every source and returns a validated Config.
func (l *ConfigLoader) Load() (*Config, error) {
	configDir := l.configDir
	if configDir == "" {
		configDir = filepath.Join(xdg.ConfigHome, build.Slug)
	}
	if l.configFile != "" {
		configDir = filepath.Dir(l.configFile)
	}

	l.configureViper(configDir)
	l.bindEnvironmentVariables()
	l.setViperDefaultValues()

	dotEnvFile, err := l.loadDotEnv(filepath.Join(configDir, ".env"))
	if err != nil {
		return nil, err
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var def Definition
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.DecodeHookFuncType(trimSpaceHook),
	))
	if err := l.v.Unmarshal(&def, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	cfg.Paths = PathsConfig{
		ConfigDir:      configDir,
		ConfigFileUsed: l.v.ConfigFileUsed(),
		DotEnvFile:     dotEnvFile,
	}
	cfg.Warnings = l.warnings

	return cfg, nil
}

func (l *ConfigLoader) buildConfig(def Definition) (*Config, error) {
	cfg := Config{
		Core: Core{
			Debug:      def.Debug,
			LogFormat:  def.LogFormat,
			LogHistory: max(def.LogHistory, 0),
		},
	}

	switch cfg.Core.LogFormat {
	case "text", "json":
	default:
		l.warnings = append(l.warnings, fmt.Sprintf("Invalid log_format value: %s", cfg.Core.LogFormat))
		cfg.Core.LogFormat = "text"
	}

	if def.Buffer != nil {
		cfg.Buffer = BufferConfig{Size: def.Buffer.Size, Capacity: def.Buffer.Capacity}
	}
	if cfg.Buffer.Capacity < 0 {
		l.warnings = append(l.warnings, fmt.Sprintf("Invalid buffer.capacity value: %d", cfg.Buffer.Capacity))
		cfg.Buffer.Capacity = 0
	}

	l.loadMonitoringConfig(&cfg, def)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *ConfigLoader) loadMonitoringConfig(cfg *Config, def Definition) {
	if def.Monitoring != nil {
		cfg.Monitoring.Retention = l.parseDuration("monitoring.retention", def.Monitoring.Retention)
		cfg.Monitoring.Interval = l.parseDuration("monitoring.interval", def.Monitoring.Interval)
		cfg.Monitoring.DiskPath = def.Monitoring.DiskPath
		cfg.Monitoring.Metrics = lo.Uniq(lo.FilterMap(def.Monitoring.Metrics, func(m string, _ int) (string, bool) {
			m = strings.ToLower(m)
			return m, m != ""
		}))
	}

	if cfg.Monitoring.Retention <= 0 {
		cfg.Monitoring.Retention = time.Hour
	}
	if cfg.Monitoring.Interval <= 0 {
		cfg.Monitoring.Interval = 5 * time.Second
	}
	if cfg.Monitoring.DiskPath == "" {
		cfg.Monitoring.DiskPath = "/"
	}
	if len(cfg.Monitoring.Metrics) == 0 {
		cfg.Monitoring.Metrics = slices.Clone(knownMetrics)
	}
}

func (l *ConfigLoader) parseDuration(fieldName, value string) time.Duration {
	if value == "" {
		return 0
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		l.warnings = append(l.warnings, fmt.Sprintf("Invalid %s value: %s", fieldName, value))
		return 0
	}
	return duration
}

func (l *ConfigLoader) configureViper(configDir string) {
	if l.configFile == "" {
		l.v.AddConfigPath(configDir)
		l.v.SetConfigName("config")
	} else {
		l.v.SetConfigFile(l.configFile)
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix(strings.ToUpper(build.Slug))
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
}

func (l *ConfigLoader) bindEnvironmentVariables() {
	for _, b := range envBindings {
		_ = l.v.BindEnv(b.key, envName(b.env))
	}
}

func (l *ConfigLoader) setViperDefaultValues() {
	l.v.SetDefault("debug", false)
	l.v.SetDefault("log_format", "text")
	l.v.SetDefault("log_history", 50)

	l.v.SetDefault("buffer.size", 10)
	l.v.SetDefault("buffer.capacity", 0)

	l.v.SetDefault("monitoring.retention", "1h")
	l.v.SetDefault("monitoring.interval", "5s")
	l.v.SetDefault("monitoring.disk_path", "/")
	l.v.SetDefault("monitoring.metrics", knownMetrics)
}

// loadDotEnv applies the variables of a .env file that are not already set
// in the process environment. A missing file is not an error.
func (l *ConfigLoader) loadDotEnv(path string) (string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, b := range envBindings {
		name := envName(b.env)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if val, ok := values[name]; ok {
			l.v.Set(b.key, val)
		}
	}
	return path, nil
}

func envName(suffix string) string {
	return strings.ToUpper(build.Slug) + "_" + suffix
}

func trimSpaceHook(from, _ reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	return strings.TrimSpace(data.(string)), nil
}
