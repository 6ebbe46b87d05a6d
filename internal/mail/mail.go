// Package mail delivers outbound email through SMTP or, in debug mode, by
// writing messages to the console.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/qworpa/qworpa/internal/config"
)

// Message is a plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the transport selected by cfg.Backend. Console output goes to w.
func New(cfg config.EmailConfig, w io.Writer) (Mailer, error) {
	switch cfg.Backend {
	case config.EmailBackendConsole:
		return NewConsoleMailer(w), nil
	case config.EmailBackendSMTP:
		return NewSMTPMailer(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported email backend: %q", cfg.Backend)
	}
}

// ConsoleMailer writes each message, headers included, to a writer.
type ConsoleMailer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleMailer creates a mailer writing to w
func NewConsoleMailer(w io.Writer) *ConsoleMailer {
	return &ConsoleMailer{w: w}
}

// Send writes msg followed by a separator line.
func (m *ConsoleMailer) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.w.Write(render(msg, time.Now())); err != nil {
		return err
	}
	_, err := io.WriteString(m.w, "\n"+strings.Repeat("-", 79)+"\n")
	return err
}

func validate(msg Message) error {
	if msg.From == "" {
		return fmt.Errorf("message has no sender")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	for _, addr := range append([]string{msg.From}, msg.To...) {
		if strings.ContainsAny(addr, "\r\n") {
			return fmt.Errorf("invalid address %q", addr)
		}
	}
	return nil
}

// render formats msg as an RFC 5322 message with CRLF line endings.
func render(msg Message, date time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k + ": " + v + "\r\n")
	}
	header("From", msg.From)
	header("To", strings.Join(msg.To, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return b.Bytes()
}
