// Package command implements the script-invocation enhancement backend: the
// rendered prompt is written to an input file, an external script is run with
// the input/output pair, and the output file is read back.
package command

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/promatehq/enhancer/pkg/enhancer"
	"github.com/promatehq/enhancer/pkg/enhancer/filepair"
	"github.com/promatehq/enhancer/pkg/logging"
	"github.com/promatehq/enhancer/pkg/template"
)

// Options configures the command backend.
type Options struct {
	ScriptPath   string
	TemplateDir  string
	TemplateName string
	// AutoCleanup selects transient file pairs; otherwise pairs are durable
	// and kept for diagnostics.
	AutoCleanup bool
	Allocator   *filepair.Allocator
	Logger      *logging.Logger
}

// Service runs the external enhancement script.
type Service struct {
	opts Options
}

// New validates the options and returns a command backend.
func New(opts Options) (*Service, error) {
	opts.ScriptPath = strings.TrimSpace(opts.ScriptPath)
	if opts.ScriptPath == "" {
		return nil, fmt.Errorf("enhancement script path must not be empty")
	}
	opts.TemplateName = strings.TrimSpace(opts.TemplateName)
	if opts.TemplateName == "" {
		return nil, fmt.Errorf("enhancer template name must not be empty")
	}
	if opts.Allocator == nil {
		opts.Allocator = filepair.NewAllocator("")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard("command")
	}
	return &Service{opts: opts}, nil
}

// Enhance renders the prompt template, runs the script over a fresh file pair
// and returns the cleaned script output.
func (s *Service) Enhance(ctx context.Context, req enhancer.Request) (enhancer.Response, error) {
	pair, err := s.opts.Allocator.MaybeAllocate(s.opts.AutoCleanup)
	if err != nil {
		return enhancer.Response{}, err
	}
	defer pair.Cleanup()
	if pair.Persist {
		s.opts.Logger.Infof("enhancer files persisted: %s, %s", pair.InputPath, pair.OutputPath)
	}

	path, err := template.Resolve(s.opts.TemplateDir, s.opts.TemplateName, req.Locale)
	if err != nil {
		return enhancer.Response{}, err
	}
	rendered, err := template.Render(path, req.Prompt)
	if err != nil {
		return enhancer.Response{}, err
	}
	if err := os.WriteFile(pair.InputPath, []byte(rendered), 0600); err != nil {
		return enhancer.Response{}, fmt.Errorf("failed to write script input: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.opts.ScriptPath, "--in", pair.InputPath, "--out", pair.OutputPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return enhancer.Response{}, fmt.Errorf("enhancement script failed: %s", msg)
		}
		return enhancer.Response{}, fmt.Errorf("enhancement script failed: %w", err)
	}

	data, err := os.ReadFile(pair.OutputPath)
	if err != nil {
		return enhancer.Response{}, fmt.Errorf("failed to read script output: %w", err)
	}
	return enhancer.Response{Prompt: enhancer.StripSeparatorLines(string(data))}, nil
}
