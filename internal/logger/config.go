package logger

// Supported encodings.
const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

// Default configuration values.
const (
	DefaultLevel    = "info"
	DefaultEncoding = EncodingJSON
)

// Config represents the logger configuration.
type Config struct {
	Level       string   `mapstructure:"level"        yaml:"level"`
	Encoding    string   `mapstructure:"encoding"     yaml:"encoding"`
	Development bool     `mapstructure:"development"  yaml:"development"`
	EnableColor bool     `mapstructure:"enable_color" yaml:"enable_color"`
	OutputPaths []string `mapstructure:"output_paths" yaml:"output_paths"`
}

// SetDefaults applies default values to zero-value fields.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = DefaultLevel
	}
	if c.Encoding != EncodingConsole {
		c.Encoding = DefaultEncoding
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = []string{"stdout"}
	}
}
