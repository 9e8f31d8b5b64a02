// internal/portal/client.go
package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/browser"
	"github.com/xkilldash9x/metaxg-cli/internal/config"
)

// Sentinel errors callers branch on.
var (
	// ErrContractNotFound means the configured contract matched no option in
	// the login combo. The run cannot continue.
	ErrContractNotFound = errors.New("contract not found in portal combo")

	// ErrJobTitleNotFound means no cargo option matched the person's job
	// title through any strategy. It fails that person only.
	ErrJobTitleNotFound = errors.New("job title not found in portal combo")
)

// EvidenceSink receives the failure artifacts the portal flows produce
// (screenshots on save timeouts, debug snapshots on verification misses).
type EvidenceSink interface {
	SaveScreenshot(filename string, data []byte) (string, error)
	WriteJSON(filename string, v any) (string, error)
	ExecutionID() string
}

// Client wraps a logged-in browser session with the portal's flows.
type Client struct {
	session *browser.Session
	cfg     config.PortalConfig
	sink    EvidenceSink
	logger  *zap.Logger
}

// NewClient wires a Client over an existing browser session. The session is
// not yet logged in; call Bootstrap before anything else.
func NewClient(session *browser.Session, cfg config.PortalConfig, sink EvidenceSink, logger *zap.Logger) *Client {
	return &Client{
		session: session,
		cfg:     cfg,
		sink:    sink,
		logger:  logger.Named("portal"),
	}
}

// Navigate points the tab at url. The orchestrator uses it to steer the
// session back to the drafts list after a per-person failure.
func (c *Client) Navigate(ctx context.Context, url string) error {
	return c.session.Navigate(ctx, url)
}

// clickByText clicks the first visible element whose text contains the given
// fragment. The portal's action buttons carry no stable ids.
func (c *Client) clickByText(ctx context.Context, text string) error {
	script := fmt.Sprintf(`(function() {
		const nodes = document.querySelectorAll('button, a, label, input[type=button], input[type=submit]');
		for (const el of nodes) {
			const t = (el.innerText || el.value || '').trim();
			if (t.includes(%q) && el.offsetParent !== null && !el.disabled) {
				el.click();
				return true;
			}
		}
		return false;
	})()`, text)

	var clicked bool
	if err := c.session.Evaluate(ctx, script, &clicked); err != nil {
		return fmt.Errorf("click by text %q failed: %w", text, err)
	}
	if !clicked {
		return fmt.Errorf("no clickable element with text %q", text)
	}
	return nil
}

// pageContainsText reports whether the page body currently shows the text.
func (c *Client) pageContainsText(ctx context.Context, text string) (bool, error) {
	script := fmt.Sprintf(`document.body ? document.body.innerText.includes(%q) : false`, text)
	var found bool
	if err := c.session.Evaluate(ctx, script, &found); err != nil {
		return false, err
	}
	return found, nil
}

// waitOptionsLoaded polls until a select has more than min options. Cascading
// combos on the portal populate asynchronously after dependent fields change.
func (c *Client) waitOptionsLoaded(ctx context.Context, selector string, min int, maxWait time.Duration) error {
	return browser.Poll(ctx, maxWait, 500*time.Millisecond, func(ctx context.Context) (bool, error) {
		opts, err := c.session.Options(ctx, selector)
		if err != nil {
			return false, nil
		}
		return len(opts) > min, nil
	})
}

// captureFailure screenshots the page into the evidence sink. Best effort,
// errors only get logged.
func (c *Client) captureFailure(ctx context.Context, kind, cpf string) string {
	data, err := c.session.Screenshot(ctx)
	if err != nil {
		c.logger.Warn("Could not capture failure screenshot", zap.Error(err))
		return ""
	}
	filename := evidenceFilename(kind, cpf, time.Now(), c.sink.ExecutionID(), "png")
	path, err := c.sink.SaveScreenshot(filename, data)
	if err != nil {
		c.logger.Warn("Could not persist failure screenshot", zap.Error(err))
		return ""
	}
	return path
}

// evidenceFilename builds the canonical artifact name
// <kind>_<cpf>_<timestamp>__<execution_id>.<ext>.
func evidenceFilename(kind, cpf string, when time.Time, executionID, ext string) string {
	return fmt.Sprintf("%s_%s_%s__%s.%s", kind, cpf, when.Format("2006-01-02_15-04-05"), executionID, ext)
}
