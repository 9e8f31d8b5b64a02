// internal/format/format_test.go
package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPF(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain digits", in: "12345678901", want: "123.456.789-01"},
		{name: "already punctuated", in: "123.456.789-01", want: "123.456.789-01"},
		{name: "empty passes through", in: "", want: ""},
		{name: "too short", in: "1234567890", wantErr: true},
		{name: "too long", in: "123456789012", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CPF(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPIS(t *testing.T) {
	got, err := PIS("1234567890")
	require.NoError(t, err)
	assert.Equal(t, "01234567890", got, "short PIS should be zero padded")

	got, err = PIS("123.45678.90-1")
	require.NoError(t, err)
	assert.Equal(t, "12345678901", got)

	got, err = PIS("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = PIS("123456789012")
	require.Error(t, err, "12 digits cannot be a PIS")
}

func TestDate(t *testing.T) {
	got, err := Date("2000-12-31")
	require.NoError(t, err)
	assert.Equal(t, "31/12/2000", got)

	got, err = Date(time.Date(1995, time.March, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "07/03/1995", got)

	got, err = Date(time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got, "zero time renders empty")

	got, err = Date("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Date("31/12/2000")
	require.Error(t, err, "only ISO strings are accepted")

	_, err = Date(42)
	require.Error(t, err)
}

func TestClampDate(t *testing.T) {
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 2, 0)
	past := now.AddDate(-1, 0, 0)

	assert.Equal(t, now, ClampDate(future, now))
	assert.Equal(t, past, ClampDate(past, now))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "67999887766", Phone("(67) 99988-7766"))
	assert.Equal(t, "6733221100", Phone("67 3322-1100"))
	assert.Empty(t, Phone("999-8877"), "fewer than 10 digits is discarded")
	assert.Empty(t, Phone(""))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "JOAO DA SILVA", NormalizeText("  João da Silva "))
	assert.Equal(t, "TECNICO DE SEGURANCA", NormalizeText("Técnico de Segurança"))
	assert.Empty(t, NormalizeText(""))
}

func TestJobTitle(t *testing.T) {
	assert.Equal(t, "ENCARREGADO DE SOLDA", JobTitle("Encarregado de Solda I"),
		"renamed cargos follow the static table")
	assert.Equal(t, "SOLDADOR TIG", JobTitle("soldador tig"),
		"unmapped cargos are only normalized")
}

func TestHouseNumber(t *testing.T) {
	assert.Equal(t, "S/N", HouseNumber("0"))
	assert.Equal(t, "S/N", HouseNumber(""))
	assert.Equal(t, "142", HouseNumber(" 142 "))
}
