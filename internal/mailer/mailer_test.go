package mailer

import (
	"context"
	"errors"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	contracts "contentboard/contracts/mq"
	"contentboard/pkg/config"
)

func samplePayload() contracts.ScheduleCreatedPayload {
	return contracts.ScheduleCreatedPayload{
		TaskID:         "t1",
		Type:           "Reels",
		Platforms:      []string{"Instagram", "TikTok"},
		PublishDate:    "2025-01-05",
		RecurrenceDays: []string{"Monday"},
		ContentIdea:    "Culto de <jovens> & louvor",
	}
}

func TestRenderTaskCreated(t *testing.T) {
	msg, err := RenderTaskCreated(samplePayload(), "agenda@church.org", "church.org", []string{"a@church.org"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Subject != "Nova tarefa de conteúdo: Reels" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	for _, want := range []string{"Instagram, TikTok", "05/01/2025", "toda Segunda-feira", "Culto de <jovens> & louvor"} {
		if !strings.Contains(msg.TextBody, want) {
			t.Fatalf("text body missing %q:\n%s", want, msg.TextBody)
		}
	}
	if !strings.Contains(msg.HTMLBody, "Culto de &lt;jovens&gt; &amp; louvor") {
		t.Fatalf("html body must escape content:\n%s", msg.HTMLBody)
	}
	if !strings.HasPrefix(msg.ID, "<") || !strings.HasSuffix(msg.ID, "@church.org>") {
		t.Fatalf("unexpected message id %q", msg.ID)
	}
}

func TestRenderTaskCreatedMissingFields(t *testing.T) {
	msg, err := RenderTaskCreated(contracts.ScheduleCreatedPayload{TaskID: "t2"}, "", "", []string{"a@church.org"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(msg.TextBody, "Quando: -") || strings.Contains(msg.TextBody, "Formato") {
		t.Fatalf("unexpected body:\n%s", msg.TextBody)
	}
}

func TestMessageBytes(t *testing.T) {
	msg := &Message{
		ID:       "<abc@church.org>",
		From:     "agenda@church.org",
		To:       []string{"a@church.org", "b@church.org"},
		Subject:  "Nova tarefa de conteúdo",
		TextBody: "olá",
		HTMLBody: "<p>olá</p>",
		Date:     time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC),
	}
	raw := string(msg.Bytes())
	for _, want := range []string{
		"Message-ID: <abc@church.org>\r\n",
		"To: a@church.org, b@church.org\r\n",
		"Subject: =?UTF-8?q?",
		"Content-Type: multipart/alternative;",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"Content-Type: text/html; charset=\"UTF-8\"",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("message missing %q:\n%s", want, raw)
		}
	}
}

type failingSender struct {
	err   error
	calls int
}

func (s *failingSender) Send(ctx context.Context, msg *Message) error {
	s.calls++
	return s.err
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &failingSender{err: errors.New("dial tcp: connection refused")}
	cfg := config.MailConfig{BreakerFailures: 2, BreakerTimeout: time.Minute}
	s := NewBreakerSender(next, cfg, zap.NewNop())

	for i := 0; i < 2; i++ {
		if err := s.Send(context.Background(), &Message{}); err == nil {
			t.Fatalf("expected failure")
		}
	}
	if s.State() != gobreaker.StateOpen {
		t.Fatalf("breaker should be open, got %s", s.State())
	}
	if err := s.Send(context.Background(), &Message{}); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("open breaker must not call the relay, calls = %d", next.calls)
	}
}

func TestBreakerIgnoresPermanentRejections(t *testing.T) {
	next := &failingSender{err: &textproto.Error{Code: 550, Msg: "mailbox unavailable"}}
	s := NewBreakerSender(next, config.MailConfig{BreakerFailures: 1, BreakerTimeout: time.Minute}, zap.NewNop())

	for i := 0; i < 3; i++ {
		if err := s.Send(context.Background(), &Message{}); err == nil {
			t.Fatalf("expected rejection error")
		}
	}
	if s.State() != gobreaker.StateClosed {
		t.Fatalf("permanent rejections must not open the breaker")
	}
}

func TestNewSenderDriver(t *testing.T) {
	if _, ok := NewSender(config.MailConfig{Driver: "log"}, zap.NewNop()).(*LogSender); !ok {
		t.Fatalf("log driver should build a LogSender")
	}
	if _, ok := NewSender(config.MailConfig{Driver: "smtp", Host: "localhost", Port: 25}, zap.NewNop()).(*BreakerSender); !ok {
		t.Fatalf("smtp driver should build a BreakerSender")
	}
}

func TestSMTPSenderRejectsEmptyRecipients(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Host: "localhost", Port: 25})
	if err := s.Send(context.Background(), &Message{}); err == nil {
		t.Fatalf("expected error for message without recipients")
	}
}
