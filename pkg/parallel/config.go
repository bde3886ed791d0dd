package parallel

import (
	"fmt"
	"runtime"
)

// Config controls the scheduler's worker pool
type Config struct {
	NumWorkers   int  // Total parallelism including the calling goroutine (0 = NumSystemCores)
	LockOSThread bool // Pin each pool worker to its own OS thread
}

// DefaultConfig returns a pool sized to the machine
func DefaultConfig() Config {
	return Config{
		NumWorkers:   0,
		LockOSThread: false,
	}
}

// NumSystemCores returns the usable hardware parallelism, at least 1
func NumSystemCores() int {
	return max(1, runtime.GOMAXPROCS(0))
}

// resolveWorkers returns the total worker count the config asks for
func (c Config) resolveWorkers() (int, error) {
	if c.NumWorkers < 0 {
		return 0, fmt.Errorf("parallel: invalid worker count %d", c.NumWorkers)
	}
	if c.NumWorkers == 0 {
		return NumSystemCores(), nil
	}
	return c.NumWorkers, nil
}
