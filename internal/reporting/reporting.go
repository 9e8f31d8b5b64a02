// internal/reporting/reporting.go

// Package reporting turns the run manifest into human-facing artifacts: a
// detailed text report, a compact operational JSON, a Markdown summary, a
// last-run diagnostic snapshot and a console totals table.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/api/schemas"
	"github.com/xkilldash9x/metaxg-cli/internal/output"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sink is the artifact destination, satisfied by *output.Manager.
type Sink interface {
	WriteText(kind output.Kind, filename, content string) (string, error)
	LocalPath(kind output.Kind, filename string) string
}

// Reporter renders the run manifest into files and console output.
type Reporter struct {
	sink Sink
	log  *zap.Logger
}

func New(sink Sink, logger *zap.Logger) *Reporter {
	return &Reporter{sink: sink, log: logger.Named("reporting")}
}

// WriteAll generates every report artifact. Individual failures are logged
// and skipped; the run never aborts because a report could not be written.
// It returns the text report path when that one succeeded.
func (r *Reporter) WriteAll(manifest *schemas.RunManifest) string {
	reportPath := r.writeTextReport(manifest)
	manifest.RunContext.ReportPath = reportPath
	r.writeJSONSummary(manifest)
	r.writeMarkdownSummary(manifest)
	r.writeLastRunSnapshot(manifest)
	return reportPath
}

// RenderTotals returns the console table with per-outcome counts.
func RenderTotals(totals schemas.Totals) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Outcome", "Total"})
	for _, outcome := range schemas.OutcomeOrder {
		t.AppendRow(table.Row{string(outcome), totals.ByOutcome[outcome]})
	}
	if totals.UnknownOutcome > 0 {
		t.AppendRow(table.Row{"UNKNOWN_OUTCOME", totals.UnknownOutcome})
	}
	t.AppendFooter(table.Row{"People", totals.PeopleTotal})
	return t.Render()
}

func (r *Reporter) writeTextReport(manifest *schemas.RunManifest) string {
	rc := manifest.RunContext
	totals := manifest.Totals
	filename := artifactName("relatorio_execucao", rc, "txt")
	reportPath := r.sink.LocalPath(output.KindReports, filename)

	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("RELATORIO DE EXECUCAO RPA METAX")
	line("Execution ID: %s", rc.ExecutionID)
	line("Run Status: %s", rc.RunStatus)
	line("Started At: %s", displayTime(rc.StartedAt))
	if rc.FinishedAt != "" {
		line("Finished At: %s", displayTime(rc.FinishedAt))
	}
	line("Duration (sec): %d", rc.DurationSec)
	line(strings.Repeat("=", 50))
	line("")
	line("RESUMO GERAL:")
	line("- Total Detectado no RM: %d", totals.Detected)
	line("- Total Processado (people): %d", totals.PeopleTotal)
	line("- Sem Foto: %d", totals.NoPhoto)
	line("")
	line("TOTAIS POR OUTCOME:")
	for _, outcome := range schemas.OutcomeOrder {
		line("- %s: %d", outcome, totals.ByOutcome[outcome])
	}
	if totals.UnknownOutcome > 0 {
		line("- UNKNOWN_OUTCOME: %d", totals.UnknownOutcome)
	}
	line("")

	if !rc.PublicWriteOK {
		line("ATENCAO: falha ao escrever em pasta publica.")
		if rc.PublicWriteErr != "" {
			line("Erro: %s", rc.PublicWriteErr)
		}
		line("")
	}
	if rc.RunStatus == schemas.RunInconsistent {
		line("ATENCAO: houve inconsistencias entre a acao e a verificacao.")
		line("")
	}

	writeSection := func(title string, people []schemas.OutcomeRecord, detail func(schemas.OutcomeRecord) string) {
		if len(people) == 0 {
			return
		}
		line("%s:", title)
		for _, p := range people {
			if detail != nil {
				line(" - %s (%s): %s", p.Name, p.CPF, detail(p))
			} else {
				line(" - %s (%s)", p.Name, p.CPF)
			}
		}
		line("")
	}

	writeSection("LISTA DE FALHAS NA ACAO",
		byOutcome(manifest.People, schemas.OutcomeFailedAction),
		func(p schemas.OutcomeRecord) string {
			return orDefault(p.Errors.ActionError, "Falha na acao.")
		})
	writeSection("LISTA DE FALHAS NA VERIFICACAO",
		byOutcome(manifest.People, schemas.OutcomeFailedVerification),
		func(p schemas.OutcomeRecord) string {
			return orDefault(p.Errors.VerificationError, "Falha na verificacao.")
		})
	writeSection("LISTA DE SALVOS (NAO VERIFICADOS)",
		byOutcome(manifest.People, schemas.OutcomeSavedNotVerified),
		func(p schemas.OutcomeRecord) string {
			return orDefault(p.Errors.VerificationError, "CPF nao encontrado na lista de rascunhos.")
		})
	writeSection("LISTA DE SUCESSO (VERIFICADO)",
		byOutcome(manifest.People, schemas.OutcomeVerifiedSuccess), nil)

	var semFoto []schemas.OutcomeRecord
	for _, p := range manifest.People {
		if p.NoPhoto {
			semFoto = append(semFoto, p)
		}
	}
	writeSection("LISTA SEM FOTO", semFoto, nil)

	skipped := byOutcome(manifest.People, schemas.OutcomeSkippedAlreadyExists)
	skipped = append(skipped, byOutcome(manifest.People, schemas.OutcomeSkippedDryRun)...)
	skipped = append(skipped, byOutcome(manifest.People, schemas.OutcomeSkippedNoRecipient)...)
	writeSection("LISTA SKIPPED/WARNINGS", skipped,
		func(p schemas.OutcomeRecord) string { return string(p.Outcome) })

	line("Report Path: %s", reportPath)
	if rc.ManifestPath != "" {
		line("Manifest Path: %s", rc.ManifestPath)
	}

	path, err := r.sink.WriteText(output.KindReports, filename, b.String())
	if err != nil {
		r.log.Error("Could not write text report", zap.Error(err))
		return ""
	}
	r.log.Info("Text report written", zap.String("path", path))
	return path
}

// jsonSummary is the compact operational record consumed by the monitoring
// spreadsheet macros.
type jsonSummary struct {
	ExecutionID    string         `json:"execution_id"`
	RunStatus      string         `json:"run_status"`
	StartedAt      string         `json:"started_at"`
	FinishedAt     string         `json:"finished_at,omitempty"`
	DurationSec    int64          `json:"duration_sec"`
	Totals         schemas.Totals `json:"totals"`
	ReportPath     string         `json:"report_path,omitempty"`
	ManifestPath   string         `json:"manifest_path,omitempty"`
	PublicWriteOK  bool           `json:"public_write_ok"`
	PublicWriteErr string         `json:"public_write_error,omitempty"`
}

func (r *Reporter) writeJSONSummary(manifest *schemas.RunManifest) {
	rc := manifest.RunContext
	summary := jsonSummary{
		ExecutionID:    rc.ExecutionID,
		RunStatus:      rc.RunStatus,
		StartedAt:      rc.StartedAt,
		FinishedAt:     rc.FinishedAt,
		DurationSec:    rc.DurationSec,
		Totals:         manifest.Totals,
		ReportPath:     rc.ReportPath,
		ManifestPath:   rc.ManifestPath,
		PublicWriteOK:  rc.PublicWriteOK,
		PublicWriteErr: rc.PublicWriteErr,
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		r.log.Error("Could not marshal JSON summary", zap.Error(err))
		return
	}
	filename := artifactName("relatorio", rc, "json")
	if _, err := r.sink.WriteText(output.KindLogs, filename, string(data)); err != nil {
		r.log.Error("Could not write JSON summary", zap.Error(err))
	}
}

func (r *Reporter) writeMarkdownSummary(manifest *schemas.RunManifest) {
	rc := manifest.RunContext
	totals := manifest.Totals

	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	line("# Resumo de Execucao - MetaXg")
	line("")
	line("- Execution ID: %s", rc.ExecutionID)
	line("- Run Status: %s", rc.RunStatus)
	line("- Started At: %s", rc.StartedAt)
	if rc.FinishedAt != "" {
		line("- Finished At: %s", rc.FinishedAt)
	}
	line("- Duration (sec): %d", rc.DurationSec)
	line("")
	line("## Totais")
	line("- Detected: %d", totals.Detected)
	line("- People Total: %d", totals.PeopleTotal)
	line("- No Photo: %d", totals.NoPhoto)
	line("")
	line("## Outcomes")
	for _, outcome := range schemas.OutcomeOrder {
		line("- %s: %d", outcome, totals.ByOutcome[outcome])
	}
	if totals.UnknownOutcome > 0 {
		line("- UNKNOWN_OUTCOME: %d", totals.UnknownOutcome)
	}
	line("")
	if !rc.PublicWriteOK {
		line("## Observacoes")
		line("Falha ao escrever em pasta publica.")
		if rc.PublicWriteErr != "" {
			line("Erro: %s", rc.PublicWriteErr)
		}
	}

	filename := artifactName("resumo_execucao", rc, "md")
	if _, err := r.sink.WriteText(output.KindLogs, filename, b.String()); err != nil {
		r.log.Error("Could not write Markdown summary", zap.Error(err))
	}
}

// writeLastRunSnapshot refreshes the fixed-name diagnostic file the support
// team checks first.
func (r *Reporter) writeLastRunSnapshot(manifest *schemas.RunManifest) {
	rc := manifest.RunContext
	totals := manifest.Totals

	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	line("DIAGNOSTICO ULTIMA EXECUCAO - METAXG")
	line("Execution ID: %s", rc.ExecutionID)
	line("Run Status: %s", rc.RunStatus)
	line("Started At: %s", rc.StartedAt)
	line("Finished At: %s", rc.FinishedAt)
	line("Duration (sec): %d", rc.DurationSec)
	line("")
	line("Totais:")
	line("- Detected: %d", totals.Detected)
	line("- People Total: %d", totals.PeopleTotal)
	line("- No Photo: %d", totals.NoPhoto)
	line("")
	if rc.ManifestPath != "" {
		line("Manifest Path: %s", rc.ManifestPath)
	}
	if rc.ReportPath != "" {
		line("Report Path: %s", rc.ReportPath)
	}
	if !rc.PublicWriteOK {
		line("")
		line("ATENCAO: falha ao escrever em pasta publica.")
		if rc.PublicWriteErr != "" {
			line("Erro: %s", rc.PublicWriteErr)
		}
	}

	if _, err := r.sink.WriteText(output.KindLogs, "diagnostico_ultima_execucao.txt", b.String()); err != nil {
		r.log.Error("Could not write last-run snapshot", zap.Error(err))
	}
}

// artifactName stamps a report filename with the run start time and the
// execution id, matching the evidence naming used elsewhere.
func artifactName(prefix string, rc schemas.RunContext, ext string) string {
	stamp := rc.StartedAt
	if t, err := time.Parse(time.RFC3339, rc.StartedAt); err == nil {
		stamp = t.Format("2006-01-02_15-04-05")
	}
	return fmt.Sprintf("%s_%s__%s.%s", prefix, stamp, rc.ExecutionID, ext)
}

func displayTime(value string) string {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Format("02/01/2006 15:04:05")
	}
	return value
}

func byOutcome(people []schemas.OutcomeRecord, outcome schemas.Outcome) []schemas.OutcomeRecord {
	var out []schemas.OutcomeRecord
	for _, p := range people {
		if p.Outcome == outcome {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
