package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promatehq/enhancer/pkg/enhancer"
	"github.com/promatehq/enhancer/pkg/enhancer/filepair"
)

// writeScript drops an executable shell script into a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "enhance_prompt.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func writeTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.txt"), []byte("Enhance: {{.Prompt}}"), 0600))
	return dir
}

// echoScript copies its input file to its output file, wrapped in separator
// markers the backend is expected to strip.
const echoScript = `
in=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    --in) in="$2"; shift 2 ;;
    --out) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
echo "###start###" > "$out"
cat "$in" >> "$out"
echo "###end###" >> "$out"
`

func newService(t *testing.T, script string, autoCleanup bool) *Service {
	t.Helper()
	svc, err := New(Options{
		ScriptPath:   script,
		TemplateDir:  writeTemplates(t),
		TemplateName: "default",
		AutoCleanup:  autoCleanup,
		Allocator:    filepair.NewAllocator(filepath.Join(t.TempDir(), "pairs")),
	})
	require.NoError(t, err)
	return svc
}

func TestEnhanceRunsScript(t *testing.T) {
	svc := newService(t, writeScript(t, echoScript), true)

	resp, err := svc.Enhance(context.Background(), enhancer.Request{Prompt: "write a haiku"})
	require.NoError(t, err)
	assert.Equal(t, "Enhance: write a haiku\n", resp.Prompt, "separator markers must be stripped")
}

func TestEnhanceTransientFilesCleanedUp(t *testing.T) {
	svc := newService(t, writeScript(t, echoScript), true)

	before := globTempPairs(t)
	_, err := svc.Enhance(context.Background(), enhancer.Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, before, globTempPairs(t), "no transient files may leak")
}

func globTempPairs(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "promate-enhancer_*"))
	require.NoError(t, err)
	return len(matches)
}

func TestEnhanceDurableFilesKept(t *testing.T) {
	pairRoot := filepath.Join(t.TempDir(), "pairs")
	svc, err := New(Options{
		ScriptPath:   writeScript(t, echoScript),
		TemplateDir:  writeTemplates(t),
		TemplateName: "default",
		Allocator:    filepair.NewAllocator(pairRoot),
	})
	require.NoError(t, err)

	_, err = svc.Enhance(context.Background(), enhancer.Request{Prompt: "hello"})
	require.NoError(t, err)

	entries, err := os.ReadDir(pairRoot)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "durable input and output files must survive")
}

func TestEnhanceScriptFailureWithStderr(t *testing.T) {
	svc := newService(t, writeScript(t, `echo "boom: no model available" >&2; exit 3`), true)

	_, err := svc.Enhance(context.Background(), enhancer.Request{Prompt: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom: no model available")
}

func TestEnhanceScriptFailureWithoutStderr(t *testing.T) {
	svc := newService(t, writeScript(t, `exit 1`), true)

	_, err := svc.Enhance(context.Background(), enhancer.Request{Prompt: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enhancement script failed")
}

func TestEnhanceMissingTemplate(t *testing.T) {
	svc, err := New(Options{
		ScriptPath:   writeScript(t, echoScript),
		TemplateDir:  t.TempDir(),
		TemplateName: "default",
		AutoCleanup:  true,
	})
	require.NoError(t, err)

	_, err = svc.Enhance(context.Background(), enhancer.Request{Prompt: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default")
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{ScriptPath: " ", TemplateName: "default"})
	require.Error(t, err)

	_, err = New(Options{ScriptPath: "x.sh", TemplateName: "  "})
	require.Error(t, err)
}
