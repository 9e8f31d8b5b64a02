// internal/portal/options.go
package portal

import (
	"strings"

	"github.com/xkilldash9x/metaxg-cli/internal/browser"
	"github.com/xkilldash9x/metaxg-cli/internal/format"
)

// MatchJobTitle finds the cargo option for an HR description. First pass is
// a case-insensitive prefix match; second pass matches the description's
// first significant word (>3 chars, to skip DE/DA connectives) anywhere in
// the option text.
func MatchJobTitle(options []browser.Option, description string) (browser.Option, bool) {
	want := format.NormalizeText(description)
	if want == "" {
		return browser.Option{}, false
	}

	for _, opt := range options {
		if strings.HasPrefix(format.NormalizeText(opt.Text), want) {
			return opt, true
		}
	}

	words := strings.Fields(want)
	if len(words) == 0 {
		return browser.Option{}, false
	}
	keyword := words[0]
	if len(keyword) <= 3 {
		return browser.Option{}, false
	}
	for _, opt := range options {
		if strings.Contains(format.NormalizeText(opt.Text), keyword) {
			return opt, true
		}
	}

	return browser.Option{}, false
}

// MatchCity finds a city option by accent-insensitive comparison: exact
// match first, then substring fallback.
func MatchCity(options []browser.Option, city string) (browser.Option, bool) {
	want := format.NormalizeText(city)
	if want == "" {
		return browser.Option{}, false
	}

	for _, opt := range options {
		if format.NormalizeText(opt.Text) == want {
			return opt, true
		}
	}
	for _, opt := range options {
		if strings.Contains(format.NormalizeText(opt.Text), want) {
			return opt, true
		}
	}

	return browser.Option{}, false
}

// MatchContract finds the contract option by value, by exact label, then by
// label substring.
func MatchContract(options []browser.Option, valueOrLabel string) (browser.Option, bool) {
	want := format.NormalizeText(valueOrLabel)
	if want == "" {
		return browser.Option{}, false
	}

	for _, opt := range options {
		if opt.Value == valueOrLabel {
			return opt, true
		}
	}
	for _, opt := range options {
		if format.NormalizeText(opt.Text) == want {
			return opt, true
		}
	}
	for _, opt := range options {
		if strings.Contains(format.NormalizeText(opt.Text), want) {
			return opt, true
		}
	}

	return browser.Option{}, false
}

// optionTexts renders the option labels for diagnostics when no cargo
// matched.
func optionTexts(options []browser.Option) []string {
	texts := make([]string, 0, len(options))
	for _, opt := range options {
		texts = append(texts, strings.ToUpper(strings.TrimSpace(opt.Text)))
	}
	return texts
}
