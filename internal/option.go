package internal

// Mode selects what Run does after wiring the engine.
type Mode string

// Run modes.
const (
	ModeProcess  Mode = "process"
	ModeWatch    Mode = "watch"
	ModeClassify Mode = "classify"
	ModeLint     Mode = "lint"
	ModeMCP      Mode = "mcp"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	mode   Mode
	target string
	dryRun bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode selects the run mode. The default is ModeProcess.
func WithMode(mode Mode) Option {
	return func(a *application) {
		a.mode = mode
	}
}

// WithTarget sets the path argument of the selected mode: the directory to
// process or lint, or the path to classify.
func WithTarget(target string) Option {
	return func(a *application) {
		a.target = target
	}
}

// WithDryRun makes processing report changes without writing them.
func WithDryRun(on bool) Option {
	return func(a *application) {
		a.dryRun = on
	}
}
