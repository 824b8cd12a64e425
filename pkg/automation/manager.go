// Package automation drives a third-party chat UI through a real Firefox
// instance to obtain enhanced prompt text. It owns the full session
// lifecycle: isolating a copy of the user's browser profile, launching and
// tearing down the driven browser, submitting a query, and detecting when the
// streamed answer has finished.
package automation

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/promatehq/enhancer/pkg/logging"
)

// GeminiURL is the fixed target the automation session drives.
const GeminiURL = "https://gemini.google.com/app"

const (
	maxQueryAttempts = 2
	minResponseChars = 10
)

var (
	// ErrNotStarted reports a query against a session that was never started.
	ErrNotStarted = errors.New("browser session is not started")

	// ErrNoProfile reports that no source profile directory could be resolved.
	ErrNoProfile = errors.New("unable to locate a Firefox profile directory; set enhancer.gemini.profile_dir")

	// ErrInputNotFound reports that no input selector candidate matched.
	ErrInputNotFound = errors.New("could not locate the prompt input box; page layout may have changed")

	// ErrResponseTooShort reports an extraction that is too short to be a real
	// answer rather than an echoed placeholder.
	ErrResponseTooShort = errors.New("extracted response is too short to be a real answer")
)

// Config describes how the driven browser is launched. Immutable once the
// manager is constructed.
type Config struct {
	// BrowserPath optionally overrides the Firefox binary location.
	BrowserPath string
	// ProfileDir optionally names the source profile to isolate; when empty a
	// ProfileLocator strategy searches the platform default locations.
	ProfileDir string
	// Timeout bounds the response-stability polling loop.
	Timeout time.Duration
	// AutoInstall provisions the Playwright driver on first launch.
	AutoInstall bool
	// ShowUI runs the browser with a visible window instead of headless.
	ShowUI bool
}

// session is the browser-facing surface the manager drives. The production
// implementation wraps a Playwright Firefox page; tests substitute fakes so
// the lifecycle and retry logic are checkable without a browser.
type session interface {
	stabilityProbe
	open(url string) error
	submitPrompt(text string) error
	close() error
}

type launchFunc func(cfg Config, profileDir string, log *logging.Logger) (session, error)

// Manager owns a single browser-driven enhancement session.
//
// Concurrent SendQuery/Start calls on one Manager are not supported: the
// mutex guards only handle and profile bookkeeping, not the full session
// lifecycle. Callers must serialize access to an instance.
type Manager struct {
	cfg     Config
	log     *logging.Logger
	locator ProfileLocator
	launch  launchFunc
	poll    pollConfig

	mu         sync.Mutex
	state      State
	sess       session
	profileDir string

	exitHookOnce sync.Once
}

// NewManager creates a manager in the uninitialized state.
func NewManager(cfg Config, log *logging.Logger) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Manager{
		cfg:     cfg,
		log:     log,
		locator: DefaultProfileLocator(),
		launch:  launchFirefox,
		poll:    defaultPollConfig(cfg.Timeout),
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start resolves and isolates the source profile, then launches the driven
// browser bound to the isolated copy. Calling Start on a live manager tears
// the existing session down first, so the call is an idempotent restart.
func (m *Manager) Start() error {
	m.mu.Lock()
	running := m.sess != nil
	m.mu.Unlock()
	if running {
		m.log.Infof("existing browser session detected; closing before reinitializing")
		m.Stop()
	}

	src := m.cfg.ProfileDir
	if src == "" {
		located, err := m.locator.Locate()
		if err != nil {
			return err
		}
		src = located
	}
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return fmt.Errorf("browser profile directory does not exist: %s", src)
	}

	tempProfile, err := isolateProfile(src, m.log)
	if err != nil {
		return err
	}

	sess, err := m.launch(m.cfg, tempProfile, m.log)
	if err != nil {
		os.RemoveAll(tempProfile)
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	m.mu.Lock()
	m.sess = sess
	m.profileDir = tempProfile
	m.setStateLocked(StateReady)
	m.mu.Unlock()

	m.registerExitHook()
	m.log.Infof("browser session initialized with profile copy of %s", src)
	return nil
}

// Stop tears the session down. Always safe to call, including when already
// stopped; termination and removal errors are logged and swallowed because
// the goal here is resource reclamation, not reporting.
func (m *Manager) Stop() {
	m.mu.Lock()
	sess := m.sess
	m.sess = nil
	profileDir := m.profileDir
	m.profileDir = ""
	m.setStateLocked(StateClosed)
	m.mu.Unlock()

	if sess != nil {
		if err := sess.close(); err != nil {
			m.log.Debugf("unable to close browser cleanly: %v", err)
		} else {
			m.log.Infof("browser session closed")
		}
	}
	if profileDir != "" {
		if err := os.RemoveAll(profileDir); err != nil {
			m.log.Debugf("unable to delete temporary profile %s: %v", profileDir, err)
		} else {
			m.log.Debugf("deleted temporary profile %s", profileDir)
		}
	}
}

// SendQuery submits text to the chat UI and waits for a stable answer. A
// failed attempt other than the last tears the whole session down and
// recreates it before retrying, because a wedged tab only resolves with a
// fresh session. The final attempt's error propagates unchanged. A session
// that was never started, and an answer that is semantically bad (too short),
// fail immediately without a retry.
func (m *Manager) SendQuery(text string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxQueryAttempts; attempt++ {
		result, err := m.attemptQuery(text)
		if err == nil {
			return result, nil
		}
		lastErr = err
		m.log.Warnf("send query attempt %d/%d failed: %v", attempt, maxQueryAttempts, err)

		if errors.Is(err, ErrNotStarted) || errors.Is(err, ErrResponseTooShort) {
			break
		}
		if attempt == maxQueryAttempts {
			break
		}

		m.Stop()
		if startErr := m.Start(); startErr != nil {
			m.log.Errorf("failed to reinitialize browser session: %v", startErr)
			return "", startErr
		}
		m.log.Infof("reinitialized browser session; retrying")
	}
	return "", lastErr
}

func (m *Manager) attemptQuery(text string) (string, error) {
	m.mu.Lock()
	sess := m.sess
	if sess == nil {
		m.mu.Unlock()
		return "", ErrNotStarted
	}
	m.setStateLocked(StateQuerying)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.sess != nil {
			m.setStateLocked(StateReady)
		}
		m.mu.Unlock()
	}()

	if err := sess.open(GeminiURL); err != nil {
		return "", fmt.Errorf("failed to open enhancement page: %w", err)
	}
	if err := sess.submitPrompt(text); err != nil {
		return "", err
	}

	waitForStable(sess, m.poll, m.log)

	result := strings.TrimSpace(sess.extractResponse())
	if len(result) <= minResponseChars {
		return "", fmt.Errorf("%w: got %d characters", ErrResponseTooShort, len(result))
	}
	m.log.Infof("extracted response with %d characters", len(result))
	return result, nil
}

// setStateLocked moves to the target state, logging transitions that fall
// outside the table. Callers hold m.mu.
func (m *Manager) setStateLocked(to State) {
	if !canTransition(m.state, to) {
		m.log.Warnf("illegal session state transition %s -> %s", m.state, to)
	}
	m.state = to
}

// registerExitHook arranges best-effort teardown at process termination, so
// the temp profile and browser are reclaimed even if the owner never calls
// Stop. Registered once per manager instance.
func (m *Manager) registerExitHook() {
	m.exitHookOnce.Do(func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigc
			m.Stop()
		}()
	})
}
