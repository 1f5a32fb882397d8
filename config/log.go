package config

type LogConfig struct {
	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `yaml:"logLevel" json:"logLevel"`

	// LogHandler selects "json" for machine-readable output; anything else uses the colored text handler.
	// Default: default
	LogHandler string `yaml:"logHandler" json:"logHandler"`

	// TraceVerbose keeps span attributes longer than 256 bytes in span logs.
	TraceVerbose bool `yaml:"traceVerbose" json:"traceVerbose"`
}

func NewLogConfig() *LogConfig {
	return &LogConfig{
		LogLevel:   "info",
		LogHandler: "default",
	}
}
