package worker

import "time"

type Config struct {
	TickInterval   time.Duration
	TicksPerCycle  int
	MaxDuration    time.Duration
	GatewayTimeout time.Duration
}

// DefaultConfig waits two minutes per cycle and gives up after two hours.
func DefaultConfig() Config {
	return Config{
		TickInterval:   5 * time.Second,
		TicksPerCycle:  24,
		MaxDuration:    2 * time.Hour,
		GatewayTimeout: 15 * time.Second,
	}
}

func (c Config) CycleLength() time.Duration {
	return c.TickInterval * time.Duration(c.TicksPerCycle)
}
