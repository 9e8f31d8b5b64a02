// internal/browser/interaction.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Option is one <option> of a select element. Matching against options is
// done in pure functions so it can be tested without a browser.
type Option struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Navigate loads the specified URL and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating to URL", zap.String("url", url))

	opCtx, opCancel := CombineContext(s.ctx, ctx)
	defer opCancel()

	navTimeout := s.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		if opCtx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", opCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Location returns the current page URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.runActions(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("could not read location: %w", err)
	}
	return url, nil
}

// WaitVisible blocks until the selector is visible or the timeout elapses.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.runActions(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("element '%s' not visible within %s: %w", selector, timeout, err)
	}
	return nil
}

// Fill sets the value of an input directly and fires the input/change events
// the portal's jQuery handlers listen for.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	s.logger.Debug("Filling element", zap.String("selector", selector))

	fillCtx, cancel := context.WithTimeout(ctx, s.actionTimeout())
	defer cancel()

	script := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		if (!el) { return false; }
		el.removeAttribute('readonly');
		el.value = %q;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, selector, value)

	var ok bool
	err := s.runActions(fillCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Evaluate(script, &ok),
	)
	if err != nil {
		return fmt.Errorf("fill failed for selector '%s': %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("fill failed: element '%s' not found", selector)
	}
	return nil
}

// TypeSlow clears the field and types the text key by key. Some portal
// fields run input masks that drop programmatic value writes.
func (s *Session) TypeSlow(ctx context.Context, selector, text string) error {
	s.logger.Debug("Typing into element", zap.String("selector", selector), zap.Int("text_length", len(text)))

	delay := s.cfg.TypeDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}

	timeout := s.actionTimeout() + time.Duration(len(text))*delay
	typeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
	}
	for _, r := range text {
		actions = append(actions,
			chromedp.SendKeys(selector, string(r), chromedp.ByQuery),
			chromedp.Sleep(delay),
		)
	}
	actions = append(actions, chromedp.SendKeys(selector, "\t", chromedp.ByQuery))

	if err := s.runActions(typeCtx, actions...); err != nil {
		return fmt.Errorf("type action failed for selector '%s': %w", selector, err)
	}
	return nil
}

// Click scrolls the element into view and clicks it.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.logger.Debug("Clicking element", zap.String("selector", selector))

	clickCtx, cancel := context.WithTimeout(ctx, s.actionTimeout())
	defer cancel()

	err := s.runActions(clickCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("click action failed for selector '%s': %w", selector, err)
	}
	return nil
}

// ClickForce clicks via JS, bypassing overlays that swallow pointer events.
func (s *Session) ClickForce(ctx context.Context, selector string) error {
	s.logger.Debug("Force clicking element", zap.String("selector", selector))

	script := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		if (!el) { return false; }
		el.disabled = false;
		el.classList.remove('disabled');
		el.click();
		return true;
	})()`, selector)

	var ok bool
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("force click failed for selector '%s': %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("force click failed: element '%s' not found", selector)
	}
	return nil
}

// SelectByValue picks a select option by its value attribute and dispatches
// the change event the portal's cascading combos depend on.
func (s *Session) SelectByValue(ctx context.Context, selector, value string) error {
	s.logger.Debug("Selecting option", zap.String("selector", selector), zap.String("value", value))

	script := fmt.Sprintf(`(function() {
		const sel = document.querySelector(%q);
		if (!sel) { return false; }
		sel.disabled = false;
		sel.value = %q;
		sel.dispatchEvent(new Event('change', { bubbles: true }));
		sel.dispatchEvent(new Event('blur', { bubbles: true }));
		return sel.value === %q;
	})()`, selector, value, value)

	var ok bool
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("select failed for '%s': %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("select '%s' has no option with value %q", selector, value)
	}
	return nil
}

// Check ticks a checkbox and dispatches its change event.
func (s *Session) Check(ctx context.Context, selector string) error {
	script := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		if (!el) { return false; }
		if (!el.checked) {
			el.checked = true;
			el.dispatchEvent(new Event('change', { bubbles: true }));
		}
		return true;
	})()`, selector)

	var ok bool
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("check failed for '%s': %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("check failed: element '%s' not found", selector)
	}
	return nil
}

// Options returns the text/value pairs of a select element.
func (s *Session) Options(ctx context.Context, selector string) ([]Option, error) {
	script := fmt.Sprintf(`(function() {
		const sel = document.querySelector(%q);
		if (!sel || !sel.options) { return []; }
		return Array.from(sel.options).map(o => ({ text: o.innerText.trim(), value: o.value }));
	})()`, selector)

	var opts []Option
	if err := s.Evaluate(ctx, script, &opts); err != nil {
		return nil, fmt.Errorf("could not list options of '%s': %w", selector, err)
	}
	return opts, nil
}

// InputValue returns the current value of an input or select.
func (s *Session) InputValue(ctx context.Context, selector string) (string, error) {
	script := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		return el ? (el.value || '') : '';
	})()`, selector)

	var value string
	if err := s.Evaluate(ctx, script, &value); err != nil {
		return "", fmt.Errorf("could not read value of '%s': %w", selector, err)
	}
	return strings.TrimSpace(value), nil
}

// Texts returns the inner text of every element matching the selector.
func (s *Session) Texts(ctx context.Context, selector string) ([]string, error) {
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(e => e.innerText.trim())`, selector)

	var texts []string
	if err := s.Evaluate(ctx, script, &texts); err != nil {
		return nil, fmt.Errorf("could not collect texts of '%s': %w", selector, err)
	}
	return texts, nil
}

// IsVisible reports whether the first match of the selector is rendered.
func (s *Session) IsVisible(ctx context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		return !!(el && el.offsetParent !== null);
	})()`, selector)

	var visible bool
	if err := s.Evaluate(ctx, script, &visible); err != nil {
		return false, fmt.Errorf("visibility check failed for '%s': %w", selector, err)
	}
	return visible, nil
}

// Attribute returns the value of an attribute, empty when absent.
func (s *Session) Attribute(ctx context.Context, selector, name string) (string, error) {
	script := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		return el ? (el.getAttribute(%q) || '') : '';
	})()`, selector, name)

	var value string
	if err := s.Evaluate(ctx, script, &value); err != nil {
		return "", fmt.Errorf("could not read attribute %s of '%s': %w", name, selector, err)
	}
	return value, nil
}

// Count returns how many elements match the selector.
func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)

	var n int
	if err := s.Evaluate(ctx, script, &n); err != nil {
		return 0, fmt.Errorf("could not count '%s': %w", selector, err)
	}
	return n, nil
}

// SetFileInput attaches a local file to a file input. The input may be
// hidden, so no visibility wait is applied.
func (s *Session) SetFileInput(ctx context.Context, selector, path string) error {
	fileCtx, cancel := context.WithTimeout(ctx, s.actionTimeout())
	defer cancel()

	err := s.runActions(fileCtx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("could not set file on '%s': %w", selector, err)
	}

	return s.Evaluate(ctx, fmt.Sprintf(`(function() {
		const input = document.querySelector(%q);
		if (input) { input.dispatchEvent(new Event('change', { bubbles: true })); }
		return true;
	})()`, selector), nil)
}

// Evaluate runs a script in the page. res may be nil when the result is
// irrelevant.
func (s *Session) Evaluate(ctx context.Context, script string, res any) error {
	evalCtx, cancel := context.WithTimeout(ctx, s.actionTimeout())
	defer cancel()

	return s.runActions(evalCtx, chromedp.Evaluate(script, res))
}

// Screenshot captures the full viewport as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	shotCtx, cancel := context.WithTimeout(ctx, s.actionTimeout())
	defer cancel()

	var data []byte
	capture := chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		data, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	})
	if err := s.runActions(shotCtx, capture); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// Sleep pauses for the given duration while still honoring cancellation.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return s.runActions(ctx, chromedp.Sleep(d))
}
