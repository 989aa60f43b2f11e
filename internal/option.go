package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	dataDir string
	mcpMode bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithDataDir sets the data directory to serve.
func WithDataDir(dir string) Option {
	return func(a *application) {
		a.dataDir = dir
	}
}

// WithMCPMode runs the application as an MCP stdio server instead of
// an HTTP server.
func WithMCPMode(enabled bool) Option {
	return func(a *application) {
		a.mcpMode = enabled
	}
}
