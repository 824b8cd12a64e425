// Package gemini implements the browser-automation enhancement backend. Each
// enhancement drives a fresh automation session against the remote chat UI
// and tears it down afterwards, win or lose.
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/promatehq/enhancer/pkg/automation"
	"github.com/promatehq/enhancer/pkg/enhancer"
	"github.com/promatehq/enhancer/pkg/enhancer/filepair"
	"github.com/promatehq/enhancer/pkg/logging"
	"github.com/promatehq/enhancer/pkg/template"
)

// sessionManager is the slice of automation.Manager this backend drives.
type sessionManager interface {
	Start() error
	SendQuery(text string) (string, error)
	Stop()
}

// Options configures the gemini backend.
type Options struct {
	Automation   automation.Config
	TemplateDir  string
	TemplateName string
	// AutoCleanup disables the durable query/result recording pair.
	AutoCleanup bool
	Allocator   *filepair.Allocator
	Logger      *logging.Logger
}

// Service enhances prompts through a browser-driven session.
type Service struct {
	opts       Options
	newManager func() sessionManager
}

// New validates the options and returns a gemini backend.
func New(opts Options) (*Service, error) {
	opts.TemplateName = strings.TrimSpace(opts.TemplateName)
	if opts.TemplateName == "" {
		return nil, fmt.Errorf("enhancer template name must not be empty")
	}
	if opts.Allocator == nil {
		opts.Allocator = filepair.NewAllocator("")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard("gemini")
	}
	svc := &Service{opts: opts}
	svc.newManager = func() sessionManager {
		return automation.NewManager(opts.Automation, opts.Logger)
	}
	return svc, nil
}

// Enhance renders the prompt template, runs one automation session and
// returns the cleaned response.
func (s *Service) Enhance(ctx context.Context, req enhancer.Request) (enhancer.Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return enhancer.Response{}, fmt.Errorf("prompt must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return enhancer.Response{}, err
	}

	path, err := template.Resolve(s.opts.TemplateDir, s.opts.TemplateName, req.Locale)
	if err != nil {
		return enhancer.Response{}, err
	}
	query, err := template.Render(path, req.Prompt)
	if err != nil {
		return enhancer.Response{}, err
	}

	// Durable recording of what was sent and what came back, for operators
	// diagnosing UI drift. Transient pairs would be gone before anyone looks,
	// so auto-cleanup mode skips the recording entirely.
	var pair *filepair.Pair
	if !s.opts.AutoCleanup {
		if pair, err = s.opts.Allocator.AllocateDurable(); err != nil {
			return enhancer.Response{}, err
		}
		if err := os.WriteFile(pair.InputPath, []byte(query), 0600); err != nil {
			s.opts.Logger.Warnf("unable to record query: %v", err)
		}
		s.opts.Logger.Infof("enhancer files persisted: %s, %s", pair.InputPath, pair.OutputPath)
	}

	result, err := s.runSession(query)
	if err != nil {
		return enhancer.Response{}, err
	}
	if strings.TrimSpace(result) == "" {
		return enhancer.Response{}, fmt.Errorf("gemini enhancement failed: empty response")
	}

	cleaned := enhancer.StripSeparatorLines(result)
	if pair != nil {
		if err := os.WriteFile(pair.OutputPath, []byte(cleaned), 0600); err != nil {
			s.opts.Logger.Warnf("unable to record result: %v", err)
		}
	}
	return enhancer.Response{Prompt: cleaned}, nil
}

func (s *Service) runSession(query string) (string, error) {
	mgr := s.newManager()
	defer mgr.Stop()

	if err := mgr.Start(); err != nil {
		return "", fmt.Errorf("gemini enhancement failed: %w", err)
	}

	s.opts.Logger.Infof("sending query through browser session")
	result, err := mgr.SendQuery(query)
	if err != nil {
		return "", fmt.Errorf("gemini enhancement failed: %w", err)
	}
	s.opts.Logger.Infof("received response (%d characters)", len(result))
	return result, nil
}
