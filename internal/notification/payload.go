// internal/notification/payload.go

// Package notification builds and sends the end-of-run summary email. The
// payload builder is pure so its HTML can be tested without an SMTP server.
package notification

import (
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/xkilldash9x/metaxg-cli/api/schemas"
)

// Payload is a ready-to-send email.
type Payload struct {
	Subject     string
	HTMLBody    string
	Attachments []string
}

// BuildPayload renders the manifest into the summary email. manifestPath is
// preferred when it exists on disk; otherwise the partial manifest is linked.
func BuildPayload(manifest *schemas.RunManifest, reportPath, manifestPath, partialManifestPath string, attachmentPaths []string) Payload {
	rc := manifest.RunContext
	totals := manifest.Totals

	dateStr := rc.StartedAt
	timeStr := rc.StartedAt
	if t, err := time.Parse(time.RFC3339, rc.StartedAt); err == nil {
		dateStr = t.Format("2006-01-02")
		timeStr = t.Format("02/01/2006 15:04")
	}

	subject := fmt.Sprintf("[MetaXg] %s | %s | exec=%s", rc.RunStatus, dateStr, rc.ExecutionID)

	var b strings.Builder
	put := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
	}

	put(`<html><body style="font-family: Arial, sans-serif;">`)
	put("<h2>Relatorio de Execucao - RPA MetaX</h2>")
	put("<p><b>Execution ID:</b> %s</p>", html.EscapeString(rc.ExecutionID))
	put("<p><b>Run Status:</b> %s</p>", html.EscapeString(rc.RunStatus))
	put("<p><b>Data/Hora:</b> %s</p>", timeStr)
	put("<hr>")
	put("<h3>Resumo Geral</h3><ul>")
	put("<li><b>Total Detectado:</b> %d</li>", totals.Detected)
	put("<li><b>Total Processado (people):</b> %d</li>", totals.PeopleTotal)
	put("<li><b>Sem Foto:</b> %d</li>", totals.NoPhoto)
	put("</ul>")

	put("<h3>Totais por Outcome</h3><ul>")
	for _, outcome := range schemas.OutcomeOrder {
		put("<li><b>%s:</b> %d</li>", outcome, totals.ByOutcome[outcome])
	}
	if totals.UnknownOutcome > 0 {
		put("<li><b>UNKNOWN_OUTCOME:</b> %d</li>", totals.UnknownOutcome)
	}
	put("</ul>")

	if !rc.PublicWriteOK {
		put("<p><b>ATENCAO:</b> Falha ao escrever na pasta publica.</p>")
		if rc.PublicWriteErr != "" {
			put("<p><b>Erro:</b> %s</p>", html.EscapeString(rc.PublicWriteErr))
		}
	}
	if rc.RunStatus == schemas.RunInconsistent {
		put("<p><b>ATENCAO:</b> Houve inconsistencias entre acao e verificacao.</p>")
	}

	listWithDetail := func(title string, people []schemas.OutcomeRecord, detail func(schemas.OutcomeRecord) string) {
		if len(people) == 0 {
			return
		}
		put("<h4>%s</h4><ul>", title)
		for _, p := range people {
			put("<li><b>%s:</b> %s</li>", html.EscapeString(p.Name), html.EscapeString(detail(p)))
		}
		put("</ul>")
	}

	listWithDetail("Falhas na acao:", peopleWith(manifest, schemas.OutcomeFailedAction),
		func(p schemas.OutcomeRecord) string {
			return nonEmpty(p.Errors.ActionError, "Falha na acao.")
		})
	listWithDetail("Falhas na verificacao:", peopleWith(manifest, schemas.OutcomeFailedVerification),
		func(p schemas.OutcomeRecord) string {
			return nonEmpty(p.Errors.VerificationError, "Falha na verificacao.")
		})
	listWithDetail("Salvos como rascunho (nao verificados):", peopleWith(manifest, schemas.OutcomeSavedNotVerified),
		func(p schemas.OutcomeRecord) string {
			return nonEmpty(p.Errors.VerificationError, "CPF nao encontrado na lista de rascunhos.")
		})

	if verified := peopleWith(manifest, schemas.OutcomeVerifiedSuccess); len(verified) > 0 {
		put("<h4>Sucessos verificados:</h4><ul>")
		for _, p := range verified {
			put("<li><b>%s</b></li>", html.EscapeString(p.Name))
		}
		put("</ul>")
	}

	var noPhoto []schemas.OutcomeRecord
	for _, p := range manifest.People {
		if p.NoPhoto {
			noPhoto = append(noPhoto, p)
		}
	}
	if len(noPhoto) > 0 {
		put("<h4>Funcionarios sem Foto:</h4><ul>")
		for _, p := range noPhoto {
			put("<li>%s</li>", html.EscapeString(p.Name))
		}
		put("</ul>")
	}

	skippedOutcomes := []schemas.Outcome{
		schemas.OutcomeSkippedAlreadyExists,
		schemas.OutcomeSkippedDryRun,
		schemas.OutcomeSkippedNoRecipient,
		schemas.OutcomeSkippedEmailDisabled,
	}
	var anySkipped bool
	for _, outcome := range skippedOutcomes {
		if len(peopleWith(manifest, outcome)) > 0 {
			anySkipped = true
			break
		}
	}
	if anySkipped {
		put("<h4>Skipped/Warnings:</h4><ul>")
		for _, outcome := range skippedOutcomes {
			for _, p := range peopleWith(manifest, outcome) {
				put("<li>%s - %s</li>", html.EscapeString(p.Name), outcome)
			}
		}
		put("</ul>")
	}

	if reportPath != "" {
		put("<p><b>Relatorio TXT:</b> %s</p>", html.EscapeString(reportPath))
	}
	switch {
	case manifestPath != "" && fileExists(manifestPath):
		put("<p><b>Manifest (final):</b> %s</p>", html.EscapeString(manifestPath))
	case partialManifestPath != "":
		put("<p><b>Manifest (parcial):</b> %s</p>", html.EscapeString(partialManifestPath))
	}

	put("<br><p><i>Este e um e-mail automatico gerado pelo Robo RPA MetaX.</i></p>")
	put("</body></html>")

	attachments := attachmentPaths
	if len(attachments) == 0 {
		if reportPath != "" {
			attachments = append(attachments, reportPath)
		}
		if manifestPath != "" && fileExists(manifestPath) {
			attachments = append(attachments, manifestPath)
		} else if partialManifestPath != "" {
			attachments = append(attachments, partialManifestPath)
		}
	}

	return Payload{Subject: subject, HTMLBody: b.String(), Attachments: attachments}
}

func peopleWith(manifest *schemas.RunManifest, outcome schemas.Outcome) []schemas.OutcomeRecord {
	var out []schemas.OutcomeRecord
	for _, p := range manifest.People {
		if p.Outcome == outcome {
			out = append(out, p)
		}
	}
	return out
}

func nonEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
