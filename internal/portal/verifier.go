// internal/portal/verifier.go
package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/api/schemas"
	"github.com/xkilldash9x/metaxg-cli/internal/format"
)

// verifySnapshot is the debug artifact written when a saved registration
// cannot be found back in the drafts list.
type verifySnapshot struct {
	CPF           string   `json:"cpf"`
	URL           string   `json:"url"`
	FilterApplied bool     `json:"filter_applied"`
	SearchApplied bool     `json:"search_applied"`
	PagesScanned  int      `json:"pages_scanned"`
	RowSample     []string `json:"row_sample"`
}

// Verify re-opens the drafts list and looks for the person's CPF. It returns
// whether the draft was found plus a human-readable detail. A non-nil error
// means the verification itself could not run.
func (c *Client) Verify(ctx context.Context, person schemas.PersonRecord) (bool, string, error) {
	cpf := format.DigitsOnly(person.CPF)
	c.logger.Info("Verifying saved draft", zap.String("cpf", cpf))

	if err := c.session.Navigate(ctx, c.cfg.ListURL); err != nil {
		return false, "", fmt.Errorf("could not reopen drafts list: %w", err)
	}

	c.setLargePageSize(ctx)
	c.clearFilters(ctx)
	filterApplied := c.applyDraftFilterChecked(ctx)
	searchApplied := c.searchByCPF(ctx, cpf)

	if err := c.session.WaitVisible(ctx, "table tbody", 10*time.Second); err != nil {
		c.logger.Warn("Drafts table slow to load during verification", zap.Error(err))
	}
	_ = c.session.Sleep(ctx, 2*time.Second)

	maxPages := c.cfg.VerifyPages
	var rowSample []string
	pages := 0

	for page := 1; page <= maxPages; page++ {
		pages = page
		rows, err := c.session.Texts(ctx, selListRows)
		if err != nil {
			return false, "", fmt.Errorf("could not read drafts table: %w", err)
		}
		if len(rows) == 0 || strings.Contains(rows[0], "Nenhum registro") {
			break
		}
		if len(rowSample) == 0 {
			rowSample = sampleRows(rows, 5)
		}

		for _, row := range rows {
			if rowContainsCPF(row, cpf) {
				detail := fmt.Sprintf("draft found on page %d", page)
				c.logger.Info("Draft verified", zap.String("cpf", cpf), zap.Int("page", page))
				return true, detail, nil
			}
		}

		if !c.nextPage(ctx) {
			break
		}
	}

	c.writeVerifyEvidence(ctx, cpf, filterApplied, searchApplied, pages, rowSample)
	detail := fmt.Sprintf("cpf not found in %d page(s) of drafts", pages)
	return false, detail, nil
}

// applyDraftFilterChecked is applyDraftFilter reporting whether it worked,
// for the debug snapshot.
func (c *Client) applyDraftFilterChecked(ctx context.Context) bool {
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
		c.logger.Warn("Draft filter not applied during verification")
		return false
	}
	_ = c.session.Sleep(ctx, 500*time.Millisecond)
	if err := c.clickByText(ctx, "Pesquisar"); err != nil {
		c.logger.Warn("Could not trigger filtered search during verification", zap.Error(err))
	}
	_ = c.session.Sleep(ctx, 2*time.Second)
	return applied
}

// searchByCPF uses the list's CPF search input when the screen has one.
func (c *Client) searchByCPF(ctx context.Context, cpf string) bool {
	script := fmt.Sprintf(`(function() {
		const inputs = document.querySelectorAll('input[type=text], input[type=search]');
		for (const el of inputs) {
			const hint = ((el.name || '') + ' ' + (el.id || '') + ' ' + (el.placeholder || '')).toLowerCase();
			if (hint.includes('cpf') && el.offsetParent !== null) {
				el.value = %q;
				el.dispatchEvent(new Event('input', { bubbles: true }));
				el.dispatchEvent(new Event('change', { bubbles: true }));
				return true;
			}
		}
		return false;
	})()`, cpf)

	var applied bool
	if err := c.session.Evaluate(ctx, script, &applied); err != nil || !applied {
		return false
	}
	if err := c.clickByText(ctx, "Pesquisar"); err == nil {
		_ = c.session.Sleep(ctx, 2*time.Second)
	}
	return true
}

// writeVerifyEvidence persists a screenshot plus a JSON snapshot describing
// what the verifier actually saw.
func (c *Client) writeVerifyEvidence(ctx context.Context, cpf string, filterApplied, searchApplied bool, pages int, rowSample []string) {
	c.captureFailure(ctx, "verificacao_falhou", cpf)

	url, _ := c.session.Location(ctx)
	snapshot := verifySnapshot{
		CPF:           cpf,
		URL:           url,
		FilterApplied: filterApplied,
		SearchApplied: searchApplied,
		PagesScanned:  pages,
		RowSample:     rowSample,
	}
	filename := evidenceFilename("verificacao_debug", cpf, time.Now(), c.sink.ExecutionID(), "json")
	if _, err := c.sink.WriteJSON(filename, snapshot); err != nil {
		c.logger.Warn("Could not persist verification snapshot", zap.Error(err))
	}
}

// rowContainsCPF reports whether any 11-digit token in the row equals cpf.
// Rows mix CPFs with phone numbers and dates, so tokens are compared whole.
func rowContainsCPF(row, cpf string) bool {
	for _, token := range strings.FieldsFunc(row, func(r rune) bool {
		return r == '\t' || r == '\n' || r == ' '
	}) {
		if digits := format.DigitsOnly(token); len(digits) == 11 && digits == cpf {
			return true
		}
	}
	return false
}

func sampleRows(rows []string, n int) []string {
	if len(rows) < n {
		n = len(rows)
	}
	sample := make([]string, n)
	for i := 0; i < n; i++ {
		row := strings.ReplaceAll(rows[i], "\n", " | ")
		if len(row) > 200 {
			row = row[:200]
		}
		sample[i] = row
	}
	return sample
}
