// internal/portal/scanner_test.go
package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDraftSet(t *testing.T) {
	drafts := NewDraftSet()

	drafts.Add("123.456.789-01")
	drafts.Add("12345678901")
	drafts.Add("999")

	assert.Equal(t, 1, drafts.Len(), "punctuated and plain forms are the same CPF; short values are dropped")
	assert.True(t, drafts.Has("12345678901"))
	assert.True(t, drafts.Has("123.456.789-01"))
	assert.False(t, drafts.Has("999"))
	assert.False(t, drafts.Has("10987654321"))
}
