package automation

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promatehq/enhancer/pkg/logging"
)

// fakeSession scripts one browser session for lifecycle tests.
type fakeSession struct {
	openErr   error
	submitErr error
	response  string

	opened    bool
	submitted string
	closed    bool
}

func (f *fakeSession) open(string) error { f.opened = true; return f.openErr }

func (f *fakeSession) submitPrompt(text string) error {
	f.submitted = text
	return f.submitErr
}

func (f *fakeSession) extractResponse() string { return f.response }
func (f *fakeSession) generating() bool        { return false }
func (f *fakeSession) inputReady() bool        { return true }
func (f *fakeSession) close() error            { f.closed = true; return nil }

type staticLocator struct {
	dir string
	err error
}

func (l *staticLocator) Locate() (string, error) { return l.dir, l.err }

// newTestManager wires a manager with a fake launcher that hands out the
// given sessions in order, a profile rooted in a temp dir, and instant polls.
func newTestManager(t *testing.T, sessions ...*fakeSession) (*Manager, *int) {
	t.Helper()

	launches := 0
	m := NewManager(Config{Timeout: time.Minute}, logging.Discard("test"))
	m.locator = &staticLocator{dir: buildSourceProfile(t)}
	m.launch = func(Config, string, *logging.Logger) (session, error) {
		if launches >= len(sessions) {
			t.Fatalf("unexpected launch #%d", launches+1)
		}
		s := sessions[launches]
		launches++
		return s, nil
	}
	m.poll = pollConfig{
		settle:       0,
		interval:     0,
		timeout:      time.Minute,
		stableChecks: 3,
		now:          time.Now,
		sleep:        func(time.Duration) {},
	}
	return m, &launches
}

func TestStartAndStop(t *testing.T) {
	sess := &fakeSession{}
	m, launches := newTestManager(t, sess)

	require.NoError(t, m.Start())
	assert.Equal(t, StateReady, m.State())
	assert.Equal(t, 1, *launches)

	profileDir := m.profileDir
	require.NotEmpty(t, profileDir)
	_, err := os.Stat(profileDir)
	require.NoError(t, err)

	m.Stop()
	assert.Equal(t, StateClosed, m.State())
	assert.True(t, sess.closed)
	_, err = os.Stat(profileDir)
	assert.True(t, os.IsNotExist(err), "temp profile must be removed on stop")
}

func TestStopIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t, &fakeSession{})
	require.NoError(t, m.Start())

	m.Stop()
	m.Stop()
	assert.Equal(t, StateClosed, m.State())
}

func TestStartRestartsExistingSession(t *testing.T) {
	first := &fakeSession{}
	second := &fakeSession{}
	m, launches := newTestManager(t, first, second)

	require.NoError(t, m.Start())
	firstProfile := m.profileDir

	require.NoError(t, m.Start())
	assert.True(t, first.closed, "previous session must be torn down")
	assert.Equal(t, 2, *launches)

	_, err := os.Stat(firstProfile)
	assert.True(t, os.IsNotExist(err), "previous temp profile must be removed")
}

func TestStartMissingProfileDir(t *testing.T) {
	m, _ := newTestManager(t, &fakeSession{})
	m.cfg.ProfileDir = "/nonexistent/profile/dir"

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestStartLocatorFailure(t *testing.T) {
	m, _ := newTestManager(t, &fakeSession{})
	m.locator = &staticLocator{err: ErrNoProfile}

	err := m.Start()
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestStartLaunchFailureRemovesProfile(t *testing.T) {
	m, _ := newTestManager(t)
	var attemptedProfile string
	m.launch = func(_ Config, profileDir string, _ *logging.Logger) (session, error) {
		attemptedProfile = profileDir
		_, err := os.Stat(profileDir)
		require.NoError(t, err)
		return nil, errors.New("browser binary not found")
	}

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to launch browser")
	assert.Empty(t, m.profileDir)

	_, statErr := os.Stat(attemptedProfile)
	assert.True(t, os.IsNotExist(statErr), "temp profile must be rolled back on launch failure")
}

func TestSendQueryNotStarted(t *testing.T) {
	m, launches := newTestManager(t, &fakeSession{})

	_, err := m.SendQuery("hello")
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, 0, *launches, "no browser interaction may happen")
}

func TestSendQuerySuccess(t *testing.T) {
	sess := &fakeSession{response: "an enhanced prompt that is long enough"}
	m, _ := newTestManager(t, sess)
	require.NoError(t, m.Start())

	got, err := m.SendQuery("raw prompt")
	require.NoError(t, err)
	assert.Equal(t, "an enhanced prompt that is long enough", got)
	assert.Equal(t, "raw prompt", sess.submitted)
	assert.Equal(t, StateReady, m.State())
}

func TestSendQueryRetriesWithFreshSession(t *testing.T) {
	broken := &fakeSession{openErr: errors.New("tab crashed")}
	healthy := &fakeSession{response: "an enhanced prompt that is long enough"}
	m, launches := newTestManager(t, broken, healthy)
	require.NoError(t, m.Start())

	got, err := m.SendQuery("raw prompt")
	require.NoError(t, err)
	assert.Equal(t, "an enhanced prompt that is long enough", got)

	assert.True(t, broken.closed, "failed session must be fully torn down before retry")
	assert.Equal(t, 2, *launches, "retry must run on a freshly launched session")
}

func TestSendQueryFinalAttemptErrorPropagates(t *testing.T) {
	cause := errors.New("tab crashed")
	first := &fakeSession{openErr: cause}
	second := &fakeSession{openErr: cause}
	m, _ := newTestManager(t, first, second)
	require.NoError(t, m.Start())

	_, err := m.SendQuery("raw prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause, "the final attempt's error must surface unchanged")
}

func TestSendQueryTooShortResponseNotRetried(t *testing.T) {
	sess := &fakeSession{response: "ok"}
	m, launches := newTestManager(t, sess)
	require.NoError(t, m.Start())

	_, err := m.SendQuery("raw prompt")
	assert.ErrorIs(t, err, ErrResponseTooShort)
	assert.Equal(t, 1, *launches, "a semantically bad answer is a real failure, not flakiness")
}

func TestSendQueryReinitFailureSurfaces(t *testing.T) {
	broken := &fakeSession{submitErr: errors.New("input not found")}
	m, _ := newTestManager(t, broken)
	require.NoError(t, m.Start())

	// Second launch fails during the retry's reinitialization.
	m.locator = &staticLocator{err: ErrNoProfile}

	_, err := m.SendQuery("raw prompt")
	assert.ErrorIs(t, err, ErrNoProfile)
}
