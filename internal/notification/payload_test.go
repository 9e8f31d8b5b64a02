// internal/notification/payload_test.go
package notification

import (
	"net/smtp"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/api/schemas"
	"github.com/xkilldash9x/metaxg-cli/internal/config"
)

func sampleManifest() *schemas.RunManifest {
	return &schemas.RunManifest{
		RunContext: schemas.RunContext{
			ExecutionID:   "exec42",
			StartedAt:     "2026-08-31T08:30:00Z",
			RunStatus:     schemas.RunConsistent,
			PublicWriteOK: true,
		},
		Totals: schemas.Totals{
			Detected:    2,
			PeopleTotal: 2,
			ByOutcome: map[schemas.Outcome]int{
				schemas.OutcomeVerifiedSuccess: 1,
				schemas.OutcomeFailedAction:    1,
			},
		},
		People: []schemas.OutcomeRecord{
			{Name: "JOAO DA SILVA", CPF: "12345678901", Outcome: schemas.OutcomeVerifiedSuccess},
			{
				Name: "MARIA <SOUZA>", CPF: "10987654321",
				Outcome: schemas.OutcomeFailedAction,
				Errors:  schemas.OutcomeErrors{ActionError: "cargo nao encontrado"},
			},
		},
	}
}

func TestBuildPayloadSubjectAndBody(t *testing.T) {
	payload := BuildPayload(sampleManifest(), "", "", "", nil)

	assert.Equal(t, "[MetaXg] CONSISTENT | 2026-08-31 | exec=exec42", payload.Subject)
	assert.Contains(t, payload.HTMLBody, "<b>Run Status:</b> CONSISTENT")
	assert.Contains(t, payload.HTMLBody, "<b>Total Detectado:</b> 2")
	assert.Contains(t, payload.HTMLBody, "Falhas na acao:")
	assert.Contains(t, payload.HTMLBody, "cargo nao encontrado")
	assert.Contains(t, payload.HTMLBody, "MARIA &lt;SOUZA&gt;", "names are HTML-escaped")
	assert.Contains(t, payload.HTMLBody, "Sucessos verificados:")
	assert.NotContains(t, payload.HTMLBody, "ATENCAO")
}

func TestBuildPayloadInconsistentRun(t *testing.T) {
	manifest := sampleManifest()
	manifest.RunContext.RunStatus = schemas.RunInconsistent
	manifest.RunContext.PublicWriteOK = false
	manifest.RunContext.PublicWriteErr = "sem acesso"

	payload := BuildPayload(manifest, "", "", "", nil)

	assert.Contains(t, payload.HTMLBody, "Houve inconsistencias entre acao e verificacao.")
	assert.Contains(t, payload.HTMLBody, "Falha ao escrever na pasta publica.")
	assert.Contains(t, payload.HTMLBody, "<b>Erro:</b> sem acesso")
}

func TestBuildPayloadAttachmentFallback(t *testing.T) {
	dir := t.TempDir()
	finalManifest := filepath.Join(dir, "manifest.json")
	partial := filepath.Join(dir, "manifest_parcial.json")
	report := filepath.Join(dir, "relatorio.txt")

	t.Run("final manifest preferred when present", func(t *testing.T) {
		require.NoError(t, os.WriteFile(finalManifest, []byte("{}"), 0o644))
		payload := BuildPayload(sampleManifest(), report, finalManifest, partial, nil)

		assert.Equal(t, []string{report, finalManifest}, payload.Attachments)
		assert.Contains(t, payload.HTMLBody, "Manifest (final):")
	})

	t.Run("partial manifest used when final is missing", func(t *testing.T) {
		missing := filepath.Join(dir, "nao_existe.json")
		payload := BuildPayload(sampleManifest(), report, missing, partial, nil)

		assert.Equal(t, []string{report, partial}, payload.Attachments)
		assert.Contains(t, payload.HTMLBody, "Manifest (parcial):")
	})

	t.Run("explicit attachments win", func(t *testing.T) {
		payload := BuildPayload(sampleManifest(), report, finalManifest, partial, []string{"/x/y.png"})
		assert.Equal(t, []string{"/x/y.png"}, payload.Attachments)
	})
}

func TestSenderRequiresRecipients(t *testing.T) {
	s := NewSender(config.EmailConfig{}, zap.NewNop())
	err := s.Send(Payload{Subject: "s", HTMLBody: "b"})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestSenderBuildsMIMEMessage(t *testing.T) {
	dir := t.TempDir()
	attachment := filepath.Join(dir, "relatorio.txt")
	require.NoError(t, os.WriteFile(attachment, []byte("conteudo"), 0o644))

	cfg := config.EmailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "robo@example.com",
		To:       []string{"equipe@example.com"},
		Username: "robo@example.com",
		Password: "secret",
	}
	s := NewSender(cfg, zap.NewNop())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := s.Send(Payload{
		Subject:     "[MetaXg] CONSISTENT",
		HTMLBody:    "<html><body>ok</body></html>",
		Attachments: []string{attachment, filepath.Join(dir, "faltando.txt")},
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "robo@example.com", gotFrom)
	assert.Equal(t, []string{"equipe@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "Content-Type: multipart/mixed")
	assert.Contains(t, msg, "Content-Type: text/html; charset=utf-8")
	assert.Contains(t, msg, `filename="relatorio.txt"`)
	assert.NotContains(t, msg, "faltando.txt", "unreadable attachments are skipped")
}
