package execution

import "time"

// Default execution settings.
const (
	DefaultPortTimeout = 30 * time.Second
	DefaultGracePeriod = 5 * time.Second
)

// Config holds the timing settings of a run.
type Config struct {
	// PortTimeout bounds how long a readiness port is polled.
	PortTimeout time.Duration
	// GracePeriod is how long cleanup waits after SIGTERM before SIGKILL.
	GracePeriod time.Duration
	// CommandTimeout bounds each foreground command. Zero means unbounded.
	CommandTimeout time.Duration
}

// DefaultConfig returns the default execution settings.
func DefaultConfig() Config {
	return Config{
		PortTimeout: DefaultPortTimeout,
		GracePeriod: DefaultGracePeriod,
	}
}

func (c Config) withDefaults() Config {
	if c.PortTimeout <= 0 {
		c.PortTimeout = DefaultPortTimeout
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.CommandTimeout < 0 {
		c.CommandTimeout = 0
	}
	return c
}
