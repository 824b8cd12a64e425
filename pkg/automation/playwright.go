package automation

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/promatehq/enhancer/pkg/logging"
)

const (
	pageLoadTimeoutMs      = 15000.0
	inputSelectorTimeoutMs = 8000.0
)

// Selector candidates, tried in order. The remote UI's markup is unstable, so
// each list starts with the most specific known shape and degrades toward
// generic fallbacks.
var (
	inputSelectors = []string{
		"rich-textarea div[contenteditable='true']",
		"rich-textarea",
		"div[contenteditable='true']",
		"textarea[placeholder*='Enter']",
		"textarea",
	}

	submitSelectors = []string{
		"button[aria-label*='Send']",
		"button[type='submit']",
		"button.send-button",
	}

	responseSelectors = []string{
		"message-content",
		".model-response-text",
		"div[data-test-id*='response']",
		"article p, article li, article pre, article code",
	}

	stopSelector = "button[aria-label*='Stop']"
	micSelector  = "button[aria-label*='microphone']"
)

// playwrightSession drives one Firefox instance through Playwright. The
// persistent context is bound to the isolated profile directory, so the real
// profile is never opened by the automated browser.
type playwrightSession struct {
	pw   *playwright.Playwright
	ctx  playwright.BrowserContext
	page playwright.Page
	log  *logging.Logger
}

func launchFirefox(cfg Config, profileDir string, log *logging.Logger) (session, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  log.Writer(),
		Stderr:  log.Writer(),
	}

	if cfg.AutoInstall {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright driver: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(!cfg.ShowUI),
	}
	if cfg.BrowserPath != "" {
		launchOpts.ExecutablePath = playwright.String(cfg.BrowserPath)
	}

	browserCtx, err := pw.Firefox.LaunchPersistentContext(profileDir, launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch firefox: %w", err)
	}

	var page playwright.Page
	if pages := browserCtx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = browserCtx.NewPage()
		if err != nil {
			_ = browserCtx.Close()
			_ = pw.Stop()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	return &playwrightSession{pw: pw, ctx: browserCtx, page: page, log: log}, nil
}

func (s *playwrightSession) open(url string) error {
	s.log.Infof("opening %s", url)
	waitUntil := playwright.WaitUntilState("load")
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   playwright.Float(pageLoadTimeoutMs),
	})
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	s.log.Infof("if the page prompts for authentication, complete it in the browser window")
	return nil
}

func (s *playwrightSession) submitPrompt(text string) error {
	input, selector, err := s.findInput()
	if err != nil {
		return err
	}
	s.log.Infof("input box found via %q", selector)

	if err := input.Fill(""); err != nil {
		s.log.Debugf("unable to clear input box: %v", err)
	}
	if err := input.Fill(text); err != nil {
		// Custom editors sometimes reject Fill; typing is slower but robust.
		if typeErr := input.Type(text); typeErr != nil {
			return fmt.Errorf("failed to enter prompt text: %w", typeErr)
		}
	}
	s.log.Infof("entered prompt (%d characters)", len(text))

	if err := input.Press("Enter"); err == nil {
		s.log.Infof("submitted prompt via Enter key")
		return nil
	}

	for _, sel := range submitSelectors {
		el, qerr := s.page.QuerySelector(sel)
		if qerr != nil || el == nil {
			continue
		}
		if cerr := el.Click(); cerr == nil {
			s.log.Infof("submitted prompt by clicking %q", sel)
			return nil
		}
	}

	s.log.Warnf("submit control not found; assuming text entry triggered submission")
	return nil
}

func (s *playwrightSession) findInput() (playwright.ElementHandle, string, error) {
	state := playwright.WaitForSelectorState("visible")
	for _, sel := range inputSelectors {
		s.log.Debugf("trying input selector %q", sel)
		el, err := s.page.WaitForSelector(sel, playwright.PageWaitForSelectorOptions{
			State:   &state,
			Timeout: playwright.Float(inputSelectorTimeoutMs),
		})
		if err == nil && el != nil {
			return el, sel, nil
		}
	}
	return nil, "", ErrInputNotFound
}

// extractResponse returns the current candidate answer text: the last element
// matched by the first selector that yields anything, flattened to plain text.
func (s *playwrightSession) extractResponse() string {
	for _, sel := range responseSelectors {
		elements, err := s.page.QuerySelectorAll(sel)
		if err != nil || len(elements) == 0 {
			continue
		}
		last := elements[len(elements)-1]

		if raw, err := last.InnerHTML(); err == nil {
			if text := flattenHTML(raw); text != "" {
				return text
			}
		}
		if text, err := last.TextContent(); err == nil {
			if text = strings.TrimSpace(text); text != "" {
				return text
			}
		}
	}
	return ""
}

func (s *playwrightSession) generating() bool {
	elements, err := s.page.QuerySelectorAll(stopSelector)
	return err == nil && len(elements) > 0
}

func (s *playwrightSession) inputReady() bool {
	elements, err := s.page.QuerySelectorAll(micSelector)
	return err == nil && len(elements) > 0
}

func (s *playwrightSession) close() error {
	ctxErr := s.ctx.Close()
	stopErr := s.pw.Stop()
	if ctxErr != nil {
		return ctxErr
	}
	return stopErr
}
