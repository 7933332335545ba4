package config

// Definition holds the raw configuration as read from the config file, the
// .env file and the environment.
type Definition struct {
	// Debug toggles debug logging with source locations.
	Debug bool `mapstructure:"debug"`

	// LogFormat is either "text" or "json".
	LogFormat string `mapstructure:"log_format"`

	// LogHistory is the number of recent log records kept in memory.
	LogHistory int `mapstructure:"log_history"`

	Buffer *BufferDef `mapstructure:"buffer"`

	Monitoring *MonitoringDef `mapstructure:"monitoring"`
}

// BufferDef holds the default rolling buffer dimensions.
type BufferDef struct {
	Size     int `mapstructure:"size"`
	Capacity int `mapstructure:"capacity"`
}

// MonitoringDef holds the resource monitor settings. Durations are strings
// in time.ParseDuration format.
type MonitoringDef struct {
	Retention string   `mapstructure:"retention"`
	Interval  string   `mapstructure:"interval"`
	DiskPath  string   `mapstructure:"disk_path"`
	Metrics   []string `mapstructure:"metrics"`
}
