package config

// LoggerConfig controls the process-wide logger. Format is "text" or "json";
// Path is an optional log file, stdout when empty.
type LoggerConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
	Path   string `yaml:"path"`
}
