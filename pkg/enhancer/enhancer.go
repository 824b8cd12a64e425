// Package enhancer defines the prompt enhancement contract shared by all
// backends and the coordinator that selects between them.
package enhancer

import (
	"context"
	"regexp"
	"strings"
)

// Request carries one prompt to be enhanced.
type Request struct {
	Prompt string
	Locale string
}

// Response carries the enhanced prompt text.
type Response struct {
	Prompt string
}

// Service is a concrete enhancement strategy. Implementations are expected to
// be safe for sequential reuse across requests; see the coordinator for
// caching semantics.
type Service interface {
	Enhance(ctx context.Context, req Request) (Response, error)
}

// Matches marker lines such as "###start###" or "## END ##" that backends wrap
// around the useful payload.
var separatorRe = regexp.MustCompile(`(?i)^#+\s*(start|end)\s*#+$`)

// StripSeparatorLines removes separator marker lines from text, preserving a
// trailing newline when the input had one.
func StripSeparatorLines(text string) string {
	if text == "" {
		return text
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	filtered := lines[:0]
	for _, line := range lines {
		if separatorRe.MatchString(strings.TrimSpace(line)) {
			continue
		}
		filtered = append(filtered, line)
	}

	cleaned := strings.Join(filtered, "\n")
	if strings.HasSuffix(text, "\n") && !strings.HasSuffix(cleaned, "\n") {
		cleaned += "\n"
	}
	return cleaned
}
