package automation

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/promatehq/enhancer/pkg/logging"
)

// profileAllowPatterns is the fixed allow-list of profile entries worth
// carrying into an isolated copy: cookie stores, local storage, preference
// files and session-restore state. Patterns cover the sqlite sidecar files
// (-shm, -wal) as well.
var profileAllowPatterns = []string{
	"cookies.sqlite*",
	"storage",
	"webappsstore.sqlite*",
	"prefs.js",
	"user.js",
	"addonStartup.json.lz4",
	"extensions.json",
	"sessionstore.jsonlz4",
}

// lockMarkers are the browser lock files stripped from the copy so the
// isolated profile can be opened while its source is in use.
var lockMarkers = []string{"parent.lock", ".parentlock", "lock"}

var profileAllowGlobs = compileAllowGlobs()

func compileAllowGlobs() []glob.Glob {
	globs := make([]glob.Glob, 0, len(profileAllowPatterns))
	for _, pattern := range profileAllowPatterns {
		globs = append(globs, glob.MustCompile(pattern))
	}
	return globs
}

func matchesAllowList(name string) bool {
	for _, g := range profileAllowGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// ProfileLocator finds a source browser profile directory when none is
// configured. The default strategy keys off Firefox's on-disk layout, which
// is inherently fragile, so it stays behind this interface where an alternate
// detection strategy can be swapped in.
type ProfileLocator interface {
	Locate() (string, error)
}

type firefoxProfileLocator struct {
	roots []string
}

// DefaultProfileLocator returns the best-effort Firefox default-profile
// search over the known profile root locations for this platform.
func DefaultProfileLocator() ProfileLocator {
	home, err := os.UserHomeDir()
	if err != nil {
		return &firefoxProfileLocator{}
	}
	return &firefoxProfileLocator{roots: []string{
		filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles"), // macOS
		filepath.Join(home, ".mozilla", "firefox"),                                   // Linux
	}}
}

// Locate scans each root for profile directories, preferring names ending in
// ".default-release", then ".default", then the first directory found.
func (l *firefoxProfileLocator) Locate() (string, error) {
	for _, root := range l.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		var dirs []string
		for _, entry := range entries {
			if entry.IsDir() {
				dirs = append(dirs, filepath.Join(root, entry.Name()))
			}
		}
		if len(dirs) == 0 {
			continue
		}
		for _, suffix := range []string{".default-release", ".default"} {
			for _, dir := range dirs {
				if strings.HasSuffix(dir, suffix) {
					return dir, nil
				}
			}
		}
		return dirs[0], nil
	}
	return "", ErrNoProfile
}

// isolateProfile builds a disposable copy of the allow-listed subset of the
// source profile in a fresh owner-only temp directory. Symbolic links are
// never followed or copied. On any failure the partially built directory is
// removed before the error propagates.
func isolateProfile(src string, log *logging.Logger) (string, error) {
	tempDir, err := os.MkdirTemp("", "gemini_firefox_profile_")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary profile directory: %w", err)
	}
	log.Debugf("creating isolated browser profile at %s", tempDir)

	if err := os.Chmod(tempDir, 0700); err != nil {
		os.RemoveAll(tempDir)
		return "", fmt.Errorf("failed to secure temporary profile directory: %w", err)
	}

	if err := copyProfileSubset(src, tempDir, log); err != nil {
		os.RemoveAll(tempDir)
		return "", fmt.Errorf("failed to copy browser profile: %w", err)
	}

	removeLockMarkers(tempDir, log)
	return tempDir, nil
}

func copyProfileSubset(src, dst string, log *logging.Logger) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	copiedAny := false
	for _, entry := range entries {
		if !matchesAllowList(entry.Name()) {
			continue
		}
		srcPath := filepath.Join(src, entry.Name())
		if entry.Type()&os.ModeSymlink != 0 {
			log.Warnf("skipping symlinked profile entry %s", srcPath)
			continue
		}
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath, log); err != nil {
				return err
			}
		} else {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
		copiedAny = true
	}

	if !copiedAny {
		log.Warnf("no allow-listed profile data copied from %s", src)
	}
	return nil
}

func copyDir(src, dst string, log *logging.Logger) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		if entry.Type()&os.ModeSymlink != 0 {
			log.Warnf("skipping symlinked profile file %s", srcPath)
			continue
		}
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath, log); err != nil {
				return err
			}
		} else {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func removeLockMarkers(dir string, log *logging.Logger) {
	for _, name := range lockMarkers {
		lockPath := filepath.Join(dir, name)
		if _, err := os.Lstat(lockPath); err != nil {
			continue
		}
		if err := os.Remove(lockPath); err != nil {
			log.Debugf("unable to remove lock file %s: %v", lockPath, err)
		}
	}
}
