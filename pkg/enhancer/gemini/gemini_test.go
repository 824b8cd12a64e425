package gemini

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promatehq/enhancer/pkg/enhancer"
	"github.com/promatehq/enhancer/pkg/enhancer/filepair"
)

type fakeManager struct {
	startErr error
	queryErr error
	response string

	started bool
	stopped bool
	query   string
}

func (f *fakeManager) Start() error { f.started = true; return f.startErr }

func (f *fakeManager) SendQuery(text string) (string, error) {
	f.query = text
	return f.response, f.queryErr
}

func (f *fakeManager) Stop() { f.stopped = true }

func newService(t *testing.T, mgr *fakeManager, autoCleanup bool) (*Service, string) {
	t.Helper()

	templateDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(templateDir, "default.txt"), []byte("Enhance: {{.Prompt}}"), 0600))

	pairRoot := filepath.Join(t.TempDir(), "pairs")
	svc, err := New(Options{
		TemplateDir:  templateDir,
		TemplateName: "default",
		AutoCleanup:  autoCleanup,
		Allocator:    filepair.NewAllocator(pairRoot),
	})
	require.NoError(t, err)
	svc.newManager = func() sessionManager { return mgr }
	return svc, pairRoot
}

func TestEnhance(t *testing.T) {
	mgr := &fakeManager{response: "###start###\nA better prompt\n###end###\n"}
	svc, _ := newService(t, mgr, true)

	resp, err := svc.Enhance(context.Background(), enhancer.Request{Prompt: "write a haiku"})
	require.NoError(t, err)

	assert.Equal(t, "A better prompt\n", resp.Prompt)
	assert.Equal(t, "Enhance: write a haiku", mgr.query, "the rendered template is what goes to the UI")
	assert.True(t, mgr.started)
	assert.True(t, mgr.stopped, "session must be stopped after use")
}

func TestEnhanceEmptyPrompt(t *testing.T) {
	mgr := &fakeManager{}
	svc, _ := newService(t, mgr, true)

	_, err := svc.Enhance(context.Background(), enhancer.Request{Prompt: "   "})
	require.Error(t, err)
	assert.False(t, mgr.started, "no session may be started for an empty prompt")
}

func TestEnhanceStartFailureStopsSession(t *testing.T) {
	cause := errors.New("no profile found")
	mgr := &fakeManager{startErr: cause}
	svc, _ := newService(t, mgr, true)

	_, err := svc.Enhance(context.Background(), enhancer.Request{Prompt: "hello"})
	assert.ErrorIs(t, err, cause)
	assert.True(t, mgr.stopped, "stop runs on every exit path")
}

func TestEnhanceQueryFailure(t *testing.T) {
	cause := errors.New("input box not found")
	mgr := &fakeManager{queryErr: cause}
	svc, _ := newService(t, mgr, true)

	_, err := svc.Enhance(context.Background(), enhancer.Request{Prompt: "hello"})
	assert.ErrorIs(t, err, cause)
	assert.True(t, mgr.stopped)
}

func TestEnhanceEmptyResponse(t *testing.T) {
	mgr := &fakeManager{response: "  \n "}
	svc, _ := newService(t, mgr, true)

	_, err := svc.Enhance(context.Background(), enhancer.Request{Prompt: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestEnhanceRecordsDurablePair(t *testing.T) {
	mgr := &fakeManager{response: "A better prompt"}
	svc, pairRoot := newService(t, mgr, false)

	_, err := svc.Enhance(context.Background(), enhancer.Request{Prompt: "hello"})
	require.NoError(t, err)

	entries, err := os.ReadDir(pairRoot)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var inPath, outPath string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_in.txt") {
			inPath = filepath.Join(pairRoot, e.Name())
		} else {
			outPath = filepath.Join(pairRoot, e.Name())
		}
	}

	in, err := os.ReadFile(inPath)
	require.NoError(t, err)
	assert.Equal(t, "Enhance: hello", string(in))

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "A better prompt", string(out))
}

func TestEnhanceCancelledContext(t *testing.T) {
	mgr := &fakeManager{response: "A better prompt"}
	svc, _ := newService(t, mgr, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Enhance(ctx, enhancer.Request{Prompt: "hello"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, mgr.started)
}
