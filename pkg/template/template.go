// Package template resolves and renders the prompt templates that wrap a raw
// user prompt before it is handed to a backend. Templates live as plain text
// files; a locale-suffixed variant (default_cn.txt) is preferred over the base
// file (default.txt) when the request carries a locale.
package template

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Data is the model bound into a template.
type Data struct {
	Prompt string
}

// Resolve returns the template file path for name under dir, preferring a
// locale-specific variant when locale is non-empty. Name and locale come from
// request input, so both are confined to dir: a value that resolves outside
// it is rejected.
func Resolve(dir, name, locale string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("template name must not be empty")
	}
	if err := validateComponent(name); err != nil {
		return "", fmt.Errorf("template name %q: %w", name, err)
	}

	if locale = normalizeLocale(locale); locale != "" {
		if err := validateComponent(locale); err != nil {
			return "", fmt.Errorf("locale %q: %w", locale, err)
		}
		localized := filepath.Join(dir, fmt.Sprintf("%s_%s.txt", name, locale))
		if _, err := os.Stat(localized); err == nil {
			return localized, nil
		}
	}

	base := filepath.Join(dir, name+".txt")
	if _, err := os.Stat(base); err != nil {
		return "", fmt.Errorf("template %q not found in %s: %w", name, dir, err)
	}
	return base, nil
}

// Render loads the template at path and renders it with the given prompt.
func Render(path, prompt string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", path, err)
	}

	tmpl, err := template.New(filepath.Base(path)).Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, Data{Prompt: prompt}); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", path, err)
	}

	rendered := strings.TrimSpace(buf.String())
	if rendered == "" {
		return "", fmt.Errorf("rendered template %s is empty", path)
	}
	return rendered, nil
}

// normalizeLocale lowercases a locale tag into its file-name form:
// "CN" -> "cn", "zh-CN" -> "zh-cn".
func normalizeLocale(locale string) string {
	return strings.ToLower(strings.TrimSpace(locale))
}

// validateComponent rejects values that would let a joined path escape the
// template directory.
func validateComponent(v string) error {
	if strings.ContainsAny(v, `/\`) || strings.Contains(v, "..") {
		return fmt.Errorf("must be a bare file name component")
	}
	return nil
}
