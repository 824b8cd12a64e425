// Package filepair allocates the matched input/output file pairs used to pass
// text into and out of one enhancement attempt. Pairs are either durable
// (timestamp-named, kept for diagnostics) or transient (unique temp files,
// removed on cleanup). Allocation relies only on atomic create-if-absent
// filesystem semantics, so concurrent callers and even concurrent processes
// are collision-safe without in-process locking.
package filepair

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultRoot is where durable pairs live unless the allocator is configured
// otherwise.
const DefaultRoot = "/tmp/promate-enhancer"

const (
	durableAttempts  = 5
	collisionBackoff = time.Millisecond
	transientPrefix  = "promate-enhancer_"
)

// ErrExhausted reports that durable allocation collided on every attempt.
var ErrExhausted = errors.New("exhausted timestamped file name candidates")

// Pair is a matched input/output file pair for one enhancement attempt. The
// two paths share a common timestamp token so an operator can associate them
// later. A pair is either fully persistent or fully transient, never mixed.
type Pair struct {
	InputPath  string
	OutputPath string
	Persist    bool
}

// Cleanup removes both files of a transient pair. It is idempotent, tolerates
// already-missing files and never touches a persistent pair. Callers should
// defer it immediately after allocation so it runs on every exit path.
func (p *Pair) Cleanup() {
	if p == nil || p.Persist {
		return
	}
	for _, path := range []string{p.InputPath, p.OutputPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			// Best-effort reclamation; must not mask the primary outcome.
			continue
		}
	}
}

// Allocator creates file pairs under a root directory.
type Allocator struct {
	root string

	// Injection points for collision tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewAllocator returns an allocator rooted at dir, or DefaultRoot when dir is
// empty.
func NewAllocator(dir string) *Allocator {
	if dir == "" {
		dir = DefaultRoot
	}
	return &Allocator{
		root:  dir,
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Root returns the durable allocation directory.
func (a *Allocator) Root() string {
	return a.root
}

// AllocateDurable creates a persistent pair named by a millisecond-resolution
// timestamp. On a name collision it rolls back any partially created file,
// backs off briefly and retries with a fresh timestamp, failing with
// ErrExhausted after a fixed number of attempts.
func (a *Allocator) AllocateDurable() (*Pair, error) {
	if err := os.MkdirAll(a.root, 0750); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", a.root, err)
	}

	for attempt := 0; attempt < durableAttempts; attempt++ {
		stamp := timestampMillis(a.now())
		inputPath := filepath.Join(a.root, stamp+"_in.txt")
		outputPath := filepath.Join(a.root, stamp+"_out.txt")

		if err := createExclusive(inputPath); err != nil {
			if os.IsExist(err) {
				a.sleep(collisionBackoff)
				continue
			}
			return nil, err
		}
		if err := createExclusive(outputPath); err != nil {
			os.Remove(inputPath)
			if os.IsExist(err) {
				a.sleep(collisionBackoff)
				continue
			}
			return nil, err
		}

		return &Pair{InputPath: inputPath, OutputPath: outputPath, Persist: true}, nil
	}

	return nil, fmt.Errorf("%w in %s", ErrExhausted, a.root)
}

// MaybeAllocate picks the allocation flavor from the cleanup policy: a
// transient pair when files are discarded after use, a durable one when they
// are kept for diagnostics.
func (a *Allocator) MaybeAllocate(autoCleanup bool) (*Pair, error) {
	if autoCleanup {
		return AllocateTransient()
	}
	return a.AllocateDurable()
}

// AllocateTransient creates a non-persistent pair via the platform temp-file
// facility. If the output file cannot be created after the input file was,
// the input file is removed before the error propagates.
func AllocateTransient() (*Pair, error) {
	inputPath, err := createTransient(transientPrefix + "*_in.txt")
	if err != nil {
		return nil, err
	}
	outputPath, err := createTransient(transientPrefix + "*_out.txt")
	if err != nil {
		os.Remove(inputPath)
		return nil, err
	}
	return &Pair{InputPath: inputPath, OutputPath: outputPath, Persist: false}, nil
}

func createExclusive(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	return f.Close()
}

func createTransient(pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create transient file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	if err := os.Chmod(path, 0600); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// timestampMillis renders t as a 17-character UTC token:
// 14 digits of seconds resolution plus 3 digits of milliseconds.
func timestampMillis(t time.Time) string {
	t = t.UTC()
	return t.Format("20060102150405") + fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
}
