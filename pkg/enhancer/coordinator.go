package enhancer

import (
	"fmt"
	"strings"
	"sync"
)

// Supported enhancement modes.
const (
	ModeCommand = "command"
	ModeGemini  = "gemini"
)

// ModeNotSupportedError reports a requested mode outside the supported set.
type ModeNotSupportedError struct {
	Mode string
}

func (e *ModeNotSupportedError) Error() string {
	return fmt.Sprintf("unsupported enhancement mode: %q", e.Mode)
}

// Factory builds a backend service. Factories run lazily on first lookup of
// their mode.
type Factory func() (Service, error)

// Coordinator maps mode names to lazily constructed, cached backend services.
// Successful constructions are cached for the process lifetime; failed
// constructions are not, so a later lookup retries from scratch.
type Coordinator struct {
	mu          sync.Mutex
	defaultMode string
	factories   map[string]Factory
	services    map[string]Service
}

// NewCoordinator validates the default mode against the supported set and
// returns a coordinator over the given factories. A bad default fails here,
// not on the first request.
func NewCoordinator(defaultMode string, factories map[string]Factory) (*Coordinator, error) {
	normalized := normalizeMode(defaultMode)
	if _, ok := factories[normalized]; !ok {
		return nil, &ModeNotSupportedError{Mode: defaultMode}
	}
	return &Coordinator{
		defaultMode: normalized,
		factories:   factories,
		services:    make(map[string]Service),
	}, nil
}

// DefaultMode returns the configured default mode name.
func (c *Coordinator) DefaultMode() string {
	return c.defaultMode
}

// Get returns the backend for mode, constructing and caching it on first use.
// An empty mode selects the default.
func (c *Coordinator) Get(mode string) (Service, error) {
	normalized := normalizeMode(mode)
	if normalized == "" {
		normalized = c.defaultMode
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if svc, ok := c.services[normalized]; ok {
		return svc, nil
	}

	factory, ok := c.factories[normalized]
	if !ok {
		return nil, &ModeNotSupportedError{Mode: mode}
	}

	svc, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s mode: %w", normalized, err)
	}
	c.services[normalized] = svc
	return svc, nil
}

func normalizeMode(mode string) string {
	return strings.ToLower(strings.TrimSpace(mode))
}
