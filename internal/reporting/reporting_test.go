// internal/reporting/reporting_test.go
package reporting

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/api/schemas"
	"github.com/xkilldash9x/metaxg-cli/internal/output"
)

type fakeSink struct {
	written map[string]string
}

func newFakeSink() *fakeSink {
	return &fakeSink{written: make(map[string]string)}
}

func (f *fakeSink) WriteText(kind output.Kind, filename, content string) (string, error) {
	f.written[filename] = content
	return f.LocalPath(kind, filename), nil
}

func (f *fakeSink) LocalPath(kind output.Kind, filename string) string {
	return filepath.Join("local", string(kind), filename)
}

func testManifest() *schemas.RunManifest {
	return &schemas.RunManifest{
		RunContext: schemas.RunContext{
			ExecutionID:   "abc123",
			StartedAt:     "2026-08-31T10:00:00Z",
			FinishedAt:    "2026-08-31T10:42:00Z",
			DurationSec:   2520,
			RunStatus:     schemas.RunInconsistent,
			PublicWriteOK: false,
			PublicWriteErr: "rede indisponivel",
		},
		Totals: schemas.Totals{
			Detected:    3,
			PeopleTotal: 3,
			NoPhoto:     1,
			ByOutcome: map[schemas.Outcome]int{
				schemas.OutcomeVerifiedSuccess:  1,
				schemas.OutcomeFailedAction:     1,
				schemas.OutcomeSavedNotVerified: 1,
			},
		},
		People: []schemas.OutcomeRecord{
			{
				Name: "JOAO DA SILVA", CPF: "12345678901",
				Outcome: schemas.OutcomeVerifiedSuccess,
			},
			{
				Name: "MARIA DE SOUZA", CPF: "10987654321",
				Outcome: schemas.OutcomeFailedAction,
				Errors:  schemas.OutcomeErrors{ActionError: "cargo nao encontrado"},
				NoPhoto: true,
			},
			{
				Name: "PEDRO SANTOS", CPF: "11122233344",
				Outcome: schemas.OutcomeSavedNotVerified,
			},
		},
	}
}

func TestWriteAllProducesEveryArtifact(t *testing.T) {
	sink := newFakeSink()
	manifest := testManifest()

	reportPath := New(sink, zap.NewNop()).WriteAll(manifest)
	require.NotEmpty(t, reportPath)

	assert.Len(t, sink.written, 4)
	assert.Contains(t, sink.written, "relatorio_execucao_2026-08-31_10-00-00__abc123.txt")
	assert.Contains(t, sink.written, "relatorio_2026-08-31_10-00-00__abc123.json")
	assert.Contains(t, sink.written, "resumo_execucao_2026-08-31_10-00-00__abc123.md")
	assert.Contains(t, sink.written, "diagnostico_ultima_execucao.txt")

	assert.Equal(t, reportPath, manifest.RunContext.ReportPath)
}

func TestTextReportContent(t *testing.T) {
	sink := newFakeSink()
	New(sink, zap.NewNop()).WriteAll(testManifest())

	report := sink.written["relatorio_execucao_2026-08-31_10-00-00__abc123.txt"]
	require.NotEmpty(t, report)

	assert.Contains(t, report, "Run Status: INCONSISTENT")
	assert.Contains(t, report, "Started At: 31/08/2026 10:00:00")
	assert.Contains(t, report, "- Total Detectado no RM: 3")
	assert.Contains(t, report, "ATENCAO: falha ao escrever em pasta publica.")
	assert.Contains(t, report, "Erro: rede indisponivel")
	assert.Contains(t, report, "ATENCAO: houve inconsistencias entre a acao e a verificacao.")
	assert.Contains(t, report, "LISTA DE FALHAS NA ACAO:")
	assert.Contains(t, report, "MARIA DE SOUZA (10987654321): cargo nao encontrado")
	assert.Contains(t, report, "LISTA DE SALVOS (NAO VERIFICADOS):")
	assert.Contains(t, report, "PEDRO SANTOS (11122233344): CPF nao encontrado na lista de rascunhos.")
	assert.Contains(t, report, "LISTA DE SUCESSO (VERIFICADO):")
	assert.Contains(t, report, "LISTA SEM FOTO:")
}

func TestJSONSummaryContent(t *testing.T) {
	sink := newFakeSink()
	New(sink, zap.NewNop()).WriteAll(testManifest())

	summary := sink.written["relatorio_2026-08-31_10-00-00__abc123.json"]
	require.NotEmpty(t, summary)
	assert.Contains(t, summary, "\"execution_id\": \"abc123\"")
	assert.Contains(t, summary, "\"run_status\": \"INCONSISTENT\"")
	assert.Contains(t, summary, "\"people_total\": 3")
	assert.NotContains(t, summary, "\"nome\"", "the summary carries totals, not people")
}

func TestRenderTotals(t *testing.T) {
	rendered := RenderTotals(testManifest().Totals)

	assert.Contains(t, rendered, "VERIFIED_SUCCESS")
	assert.Contains(t, rendered, "FAILED_ACTION")
	assert.Contains(t, rendered, "PEOPLE")
	assert.NotContains(t, rendered, "UNKNOWN_OUTCOME", "unknown row only appears when nonzero")
}
