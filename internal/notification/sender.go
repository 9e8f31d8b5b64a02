// internal/notification/sender.go
package notification

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/config"
)

// ErrNoRecipient means the notification is configured off: no To addresses.
var ErrNoRecipient = errors.New("no notification recipient configured")

// Sender delivers the summary email over SMTP.
type Sender struct {
	cfg config.EmailConfig
	log *zap.Logger

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSender(cfg config.EmailConfig, logger *zap.Logger) *Sender {
	return &Sender{
		cfg:      cfg,
		log:      logger.Named("notification"),
		sendMail: smtp.SendMail,
	}
}

// Send builds the MIME message and delivers it. Attachment read failures are
// logged and skipped, matching the report's best-effort nature.
func (s *Sender) Send(payload Payload) error {
	if len(s.cfg.To) == 0 {
		return ErrNoRecipient
	}

	msg, err := s.buildMessage(payload)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	}

	s.log.Info("Sending summary email",
		zap.Strings("to", s.cfg.To), zap.String("subject", payload.Subject))
	if err := s.sendMail(addr, auth, s.cfg.From, s.cfg.To, msg); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}
	s.log.Info("Summary email sent")
	return nil
}

const mixedBoundary = "metaxg-mixed-boundary"

func (s *Sender) buildMessage(payload Payload) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", payload.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixedBoundary)

	fmt.Fprintf(&b, "--%s\r\n", mixedBoundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(payload.HTMLBody)
	b.WriteString("\r\n")

	for _, path := range payload.Attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("Could not attach file", zap.String("path", path), zap.Error(err))
			continue
		}
		name := filepath.Base(path)
		fmt.Fprintf(&b, "--%s\r\n", mixedBoundary)
		b.WriteString("Content-Type: application/octet-stream\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", name)
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(data)))
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", mixedBoundary)
	return []byte(b.String()), nil
}

// wrapBase64 folds the encoded body at 76 columns per RFC 2045.
func wrapBase64(encoded string) string {
	const width = 76
	var b strings.Builder
	for len(encoded) > width {
		b.WriteString(encoded[:width])
		b.WriteString("\r\n")
		encoded = encoded[width:]
	}
	b.WriteString(encoded)
	return b.String()
}
