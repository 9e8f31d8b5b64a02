// internal/portal/modal.go
package portal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/browser"
)

// dismissBlockingModals force-removes any bootbox modal and its backdrop
// from the DOM. The portal leaves stale modals behind after save feedback
// and they swallow every click until removed.
func (c *Client) dismissBlockingModals(ctx context.Context) {
	visible, err := c.session.IsVisible(ctx, selModal)
	if err != nil || !visible {
		return
	}

	c.logger.Warn("Blocking modal detected, forcing removal")

	script := `(function() {
		document.querySelectorAll('.bootbox.modal').forEach(e => e.remove());
		document.querySelectorAll('.modal-backdrop').forEach(e => e.remove());
		document.body.classList.remove('modal-open');
		return true;
	})()`
	if err := c.session.Evaluate(ctx, script, nil); err != nil {
		c.logger.Warn("Modal removal script failed", zap.Error(err))
		return
	}
	_ = c.session.Sleep(ctx, 500*time.Millisecond)
}

// modalTexts returns the bodies of all bootbox modals on screen.
func (c *Client) modalTexts(ctx context.Context) []string {
	texts, err := c.session.Texts(ctx, selModalBody)
	if err != nil {
		return nil
	}
	return texts
}

// acknowledgeModal clicks the modal's OK button, falling back to a JS click
// and finally to DOM removal when the modal refuses to go away.
func (c *Client) acknowledgeModal(ctx context.Context) {
	if err := c.session.Click(ctx, selModalOK); err != nil {
		c.logger.Warn("Modal OK click failed, forcing via JS", zap.Error(err))
		script := `(function() {
			document.querySelectorAll('button[data-bb-handler="ok"]').forEach(b => {
				if (b.offsetParent !== null) { b.click(); }
			});
			return true;
		})()`
		_ = c.session.Evaluate(ctx, script, nil)
	}

	gone := func(ctx context.Context) (bool, error) {
		visible, err := c.session.IsVisible(ctx, selModal)
		if err != nil {
			return false, nil
		}
		return !visible, nil
	}
	if err := browser.Poll(ctx, 3*time.Second, 250*time.Millisecond, gone); err != nil {
		c.logger.Warn("Modal did not close after OK, removing from DOM")
		c.dismissBlockingModals(ctx)
	}
}
