package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	pkgconfig "github.com/giuthas/patkit/pkg/config"
)

// Configuration file locations. The global file lives in the user's
// configuration directory; the local file sits inside the data
// directory and overrides the global file per key.
const (
	GlobalConfigDirName = "patkit"
	GlobalConfigName    = "config.yaml"
	LocalConfigName     = "patkit_config.yaml"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Normalisation modes for derived timeseries.
const (
	NormalisationNone   = "none"
	NormalisationPeak   = "peak"
	NormalisationBottom = "bottom"
	NormalisationBoth   = "both"
)

// Config represents the application configuration. General, GUI, and
// processing parameters are distinct namespaces in the merged files.
type Config struct {
	General    GeneralConfig    `yaml:"general"`
	GUI        GUIConfig        `yaml:"gui"`
	Processing ProcessingConfig `yaml:"processing"`
	Server     ServerConfig     `yaml:"server"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.General.Validate(); err != nil {
		return err
	}
	if err := c.GUI.Validate(); err != nil {
		return err
	}
	if err := c.Processing.Validate(); err != nil {
		return err
	}
	return c.Server.Validate()
}

// GeneralConfig holds application-wide parameters.
type GeneralConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// Epsilon is the float comparison tolerance used when aligning
	// timevectors.
	Epsilon float64 `yaml:"epsilon"`
	// MainsFrequency is the power line frequency in Hz, used by audio
	// filtering downstream.
	MainsFrequency float64 `yaml:"mains_frequency"`
}

// Validate validates the general configuration.
func (c *GeneralConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Epsilon, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.MainsFrequency, validation.Required, validation.In(50.0, 60.0)),
	)
}

// GUIConfig holds parameters consumed by the browsing surface.
type GUIConfig struct {
	FontSize        int  `yaml:"font_size"`
	ShowAnnotations bool `yaml:"show_annotations"`
}

// Validate validates the GUI configuration.
func (c *GUIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FontSize, validation.Required, validation.Min(6), validation.Max(72)),
	)
}

// ProcessingConfig holds parameters for derived modalities.
type ProcessingConfig struct {
	Normalisation     string `yaml:"normalisation"`
	Timesteps         []int  `yaml:"timesteps"`
	ReleaseDataMemory bool   `yaml:"release_data_memory"`
}

// Validate validates the processing configuration.
func (c *ProcessingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Normalisation, validation.Required,
			validation.In(NormalisationNone, NormalisationPeak, NormalisationBottom, NormalisationBoth)),
	)
}

// ServerConfig holds the local API server configuration.
type ServerConfig struct {
	Port  int         `yaml:"port"`
	Auth  AuthConfig  `yaml:"auth"`
	Index IndexConfig `yaml:"index"`
}

// Address returns the server listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// IndexConfig holds the recording index database location, relative to
// the data directory unless absolute.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration for the local API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with built-in default values,
// used when neither a global nor a local configuration file exists.
func NewDefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:       slog.LevelInfo,
			Epsilon:        1e-9,
			MainsFrequency: 50,
		},
		GUI: GUIConfig{
			FontSize:        12,
			ShowAnnotations: true,
		},
		Processing: ProcessingConfig{
			Normalisation:     NormalisationNone,
			Timesteps:         []int{1},
			ReleaseDataMemory: true,
		},
		Server: ServerConfig{
			Port: 8080,
			Auth: AuthConfig{
				Mode: AuthModeDisabled,
			},
			Index: IndexConfig{
				Path: ".patkit/index.db",
			},
		},
	}
}

// GlobalConfigPath returns the user-level configuration file path.
func GlobalConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, GlobalConfigDirName, GlobalConfigName), nil
}

// ResolveConfig builds the effective configuration for a data
// directory: built-in defaults, overridden per key by the global file,
// overridden per key by the data directory's local file. Either file
// may be absent; globalPath may be empty to skip the global scope.
func ResolveConfig(globalPath, dataDir string) (*Config, error) {
	cfg := NewDefaultConfig()

	paths := make([]string, 0, 2)
	if globalPath != "" {
		paths = append(paths, globalPath)
	}
	if dataDir != "" {
		paths = append(paths, filepath.Join(dataDir, LocalConfigName))
	}

	if err := pkgconfig.LoadLayered(cfg, paths...); err != nil {
		return nil, err
	}
	return cfg, nil
}
