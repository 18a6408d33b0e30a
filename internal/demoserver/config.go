package demoserver

// Level selects how a demo page behaves.
type Level int

const (
	// LevelVulnerable leaks SQL errors, reflects input verbatim and omits
	// security headers.
	LevelVulnerable Level = 1
	// LevelHardened validates and escapes input and sends security headers.
	LevelHardened Level = 2
)

func (l Level) String() string {
	if l == LevelHardened {
		return "hardened"
	}
	return "vulnerable"
}

// Config holds configuration for the demo server.
type Config struct {
	// Port is the port on which the demo server listens.
	Port int

	// InitialLevel is the starting level for all pages (default: vulnerable).
	InitialLevel Level
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:         9999,
		InitialLevel: LevelVulnerable,
	}
}
