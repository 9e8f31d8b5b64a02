// internal/portal/scanner.go
package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/format"
)

// DraftSet caches the CPFs already registered as drafts. The scanner fills
// it once at run start; verified registrations are appended so later people
// in the same run see them as existing.
type DraftSet struct {
	cpfs map[string]struct{}
}

// NewDraftSet returns an empty set.
func NewDraftSet() *DraftSet {
	return &DraftSet{cpfs: make(map[string]struct{})}
}

// Add records a CPF. Non-11-digit input is ignored.
func (d *DraftSet) Add(cpf string) {
	digits := format.DigitsOnly(cpf)
	if len(digits) == 11 {
		d.cpfs[digits] = struct{}{}
	}
}

// Has reports whether the CPF is already registered.
func (d *DraftSet) Has(cpf string) bool {
	_, ok := d.cpfs[format.DigitsOnly(cpf)]
	return ok
}

// Len returns how many distinct CPFs were collected.
func (d *DraftSet) Len() int { return len(d.cpfs) }

// ScanDrafts walks the credenciamento list filtered by "Rascunho" status and
// collects every valid CPF across all pages. It is strictly read-only.
func (c *Client) ScanDrafts(ctx context.Context) (*DraftSet, error) {
	c.logger.Info("Collecting existing draft registrations")
	drafts := NewDraftSet()

	if err := c.gotoList(ctx); err != nil {
		return nil, err
	}

	c.setLargePageSize(ctx)
	c.clearFilters(ctx)
	c.applyDraftFilter(ctx)

	if err := c.session.WaitVisible(ctx, "table tbody", 10*time.Second); err != nil {
		c.logger.Warn("Drafts table slow to load", zap.Error(err))
	}
	_ = c.session.Sleep(ctx, 2*time.Second)

	for page := 1; ; page++ {
		rows, err := c.session.Texts(ctx, selListRows)
		if err != nil {
			return nil, fmt.Errorf("could not read drafts table: %w", err)
		}
		if len(rows) == 0 || strings.Contains(rows[0], "Nenhum registro") {
			break
		}

		added := c.collectPageCPFs(ctx, drafts)
		c.logger.Info("Page scanned",
			zap.Int("page", page),
			zap.Int("valid_cpfs", added),
			zap.Int("total", drafts.Len()))

		if !c.nextPage(ctx) {
			break
		}
	}

	c.logger.Info("Draft scan finished", zap.Int("total", drafts.Len()))
	return drafts, nil
}

// gotoList navigates to the credenciamento list unless already there.
func (c *Client) gotoList(ctx context.Context) error {
	url, err := c.session.Location(ctx)
	if err == nil && strings.Contains(url, "CredenciamentoLista") {
		return nil
	}
	if err := c.session.Navigate(ctx, c.cfg.ListURL); err != nil {
		return fmt.Errorf("could not open credenciamento list: %w", err)
	}
	return nil
}

// setLargePageSize switches the grid to 100 rows per page when the control
// exists. Best effort.
func (c *Client) setLargePageSize(ctx context.Context) {
	n, err := c.session.Count(ctx, selListPageSize)
	if err != nil || n == 0 {
		return
	}
	if err := c.session.SelectByValue(ctx, selListPageSize, pageSizeLarge); err != nil {
		c.logger.Warn("Could not switch page size to 100", zap.Error(err))
		return
	}
	_ = c.session.Sleep(ctx, time.Second)
}

// clearFilters resets any leftover grid filters. Best effort.
func (c *Client) clearFilters(ctx context.Context) {
	if err := c.clickByText(ctx, "Limpar"); err == nil {
		_ = c.session.Sleep(ctx, time.Second)
	}
}

// applyDraftFilter selects "Rascunho" in the status combo and searches.
// Failing to filter is survivable but means the scan sees every status, so
// it is logged as severe.
func (c *Client) applyDraftFilter(ctx context.Context) {
	c.logger.Info("Applying status filter: Rascunho")

	script := `(function() {
		const selects = document.querySelectorAll('select');
		for (const sel of selects) {
			for (const opt of sel.options) {
				if (opt.innerText.trim() === 'Rascunho') {
					sel.value = opt.value;
					sel.dispatchEvent(new Event('change', { bubbles: true }));
					return true;
				}
			}
		}
		return false;
	})()`

	var applied bool
	if err := c.session.Evaluate(ctx, script, &applied); err != nil || !applied {
		c.logger.Error("Draft status filter NOT applied; scan will collect every status",
			zap.Bool("applied", applied), zap.Error(err))
		return
	}

	_ = c.session.Sleep(ctx, 500*time.Millisecond)
	if err := c.clickByText(ctx, "Pesquisar"); err != nil {
		c.logger.Error("Could not trigger filtered search", zap.Error(err))
		return
	}
	_ = c.session.Sleep(ctx, 2*time.Second)
}

// collectPageCPFs extracts CPFs from the second column of the current page.
func (c *Client) collectPageCPFs(ctx context.Context, drafts *DraftSet) int {
	cells, err := c.session.Texts(ctx, selListCPFCell)
	if err != nil {
		c.logger.Warn("Could not read CPF column", zap.Error(err))
		return 0
	}

	added := 0
	for _, cell := range cells {
		digits := format.DigitsOnly(cell)
		switch {
		case len(digits) == 11:
			drafts.Add(digits)
			added++
		case len(digits) > 0:
			c.logger.Warn("Malformed CPF in drafts list, discarding",
				zap.String("value", digits), zap.Int("len", len(digits)))
		}
	}
	return added
}

// nextPage advances the grid pagination. Returns false on the last page.
func (c *Client) nextPage(ctx context.Context) bool {
	n, err := c.session.Count(ctx, selListNext)
	if err != nil || n == 0 {
		return false
	}
	class, err := c.session.Attribute(ctx, selListNext, "class")
	if err != nil || strings.Contains(class, "disabled") {
		return false
	}
	if err := c.session.Click(ctx, selListNext+" a"); err != nil {
		if err := c.session.Click(ctx, selListNext); err != nil {
			c.logger.Warn("Could not advance to next page", zap.Error(err))
			return false
		}
	}
	if err := c.session.WaitVisible(ctx, selListRows, 5*time.Second); err != nil {
		c.logger.Warn("Table did not reload after pagination", zap.Error(err))
	}
	_ = c.session.Sleep(ctx, time.Second)
	return true
}
