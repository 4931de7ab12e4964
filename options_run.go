package audiounlock

import "log/slog"

// RunOption configures a Pool or a Session.
//
// Example:
//
//	pool := audiounlock.NewPool(
//	    audiounlock.WithWorkers(4),
//	    audiounlock.WithSink(audiounlock.NewDirSink("out")),
//	)
type RunOption func(*runConfig)

// runConfig holds configuration shared by both substrates.
type runConfig struct {
	decoder  Decoder
	sink     Sink
	reporter Reporter
	logger   *slog.Logger
	workers  int // Pool only
}

// defaultRunConfig returns the default configuration: one worker, the
// standard decoder, no sink, and slog.Default().
func defaultRunConfig() *runConfig {
	return &runConfig{
		decoder:  NewDecoder(),
		reporter: nopReporter{},
		logger:   slog.Default(),
		workers:  1,
	}
}

func newRunConfig(opts []RunOption) *runConfig {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithWorkers sets the number of Pool workers. Session ignores it.
func WithWorkers(n int) RunOption {
	return func(c *runConfig) {
		c.workers = n
	}
}

// WithDecoder replaces the standard decoder.
func WithDecoder(d Decoder) RunOption {
	return func(c *runConfig) {
		if d != nil {
			c.decoder = d
		}
	}
}

// WithDecodeOptions builds the standard decoder with opts.
func WithDecodeOptions(opts ...DecodeOption) RunOption {
	return func(c *runConfig) {
		c.decoder = NewDecoder(opts...)
	}
}

// WithSink stores the audio of finished tasks. Pool requires a sink to
// persist anything; Session keeps results in memory either way.
func WithSink(s Sink) RunOption {
	return func(c *runConfig) {
		c.sink = s
	}
}

// WithReporter receives every terminal task.
func WithReporter(r Reporter) RunOption {
	return func(c *runConfig) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
