package automation

import (
	"time"

	"github.com/promatehq/enhancer/pkg/logging"
)

// stabilityProbe is the slice of a session the completion poller needs.
type stabilityProbe interface {
	extractResponse() string
	generating() bool
	inputReady() bool
}

type pollConfig struct {
	settle       time.Duration
	interval     time.Duration
	timeout      time.Duration
	stableChecks int

	now   func() time.Time
	sleep func(time.Duration)
}

func defaultPollConfig(timeout time.Duration) pollConfig {
	return pollConfig{
		settle:       3 * time.Second,
		interval:     2 * time.Second,
		timeout:      timeout,
		stableChecks: 3,
		now:          time.Now,
		sleep:        time.Sleep,
	}
}

// waitForStable polls the probe until the extracted response text stops
// changing. Streamed answers keep "non-empty" true while tokens are still
// arriving, so presence of text is not completion: only text that is
// unchanged for stableChecks consecutive polls, observed without a
// generation-in-progress marker (or with the idle input marker present),
// counts as final. When the overall deadline elapses first, the last captured
// text is returned as a best-effort result; the caller applies its own
// validation afterwards.
//
// The deadline is soft: it is checked between polls only, so a slow DOM query
// can overrun it by its own latency.
func waitForStable(probe stabilityProbe, cfg pollConfig, log *logging.Logger) string {
	deadline := cfg.now().Add(cfg.timeout)
	cfg.sleep(cfg.settle)

	lastText := ""
	stable := 0
	for cfg.now().Before(deadline) {
		current := probe.extractResponse()
		if current != "" && current == lastText {
			stable++
		} else {
			stable = 0
			lastText = current
		}

		if (!probe.generating() && current != "") || probe.inputReady() {
			if stable >= cfg.stableChecks {
				log.Infof("response stabilized after %d unchanged polls (%d characters)", stable, len(current))
				return current
			}
		}

		cfg.sleep(cfg.interval)
	}

	log.Warnf("timed out waiting for response; returning last capture (%d characters)", len(lastText))
	return lastText
}
