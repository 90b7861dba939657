package notify

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	contractdb "contentboard/contracts/db"
	contracts "contentboard/contracts/mq"
	"contentboard/internal/mailer"
	"contentboard/internal/model"
	"contentboard/pkg/mq"
)

type fakeUsers struct {
	users []model.User
	err   error
	calls int
}

func (f *fakeUsers) ListByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	f.calls++
	return f.users, f.err
}

type fakeSender struct {
	sent []*mailer.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg *mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type recorded struct {
	entry      contractdb.NotificationLog
	routingKey string
	payload    interface{}
}

type fakeRecorder struct {
	rows []recorded
	err  error
}

func (f *fakeRecorder) Record(ctx context.Context, entry *contractdb.NotificationLog, routingKey string, payload func(int64) interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, recorded{entry: *entry, routingKey: routingKey, payload: payload(int64(len(f.rows) + 1))})
	return nil
}

func payload() contracts.ScheduleCreatedPayload {
	return contracts.ScheduleCreatedPayload{
		TaskID:         "t1",
		Type:           "Reels",
		Platforms:      []string{"Instagram"},
		PublishDate:    "2025-01-05",
		ResponsibleIDs: []string{"u1", "u2"},
	}
}

func TestNotifyUsesExplicitEmails(t *testing.T) {
	users := &fakeUsers{}
	sender := &fakeSender{}
	rec := &fakeRecorder{}
	n := NewNotifier(users, sender, rec, "agenda@church.org", "church.org", zap.NewNop())

	p := payload()
	p.ResponsibleEmails = []string{"ana@church.org", " ANA@church.org", "not-an-email", ""}
	outcome, err := n.Notify(context.Background(), p)
	if err != nil || outcome != DeliverySent {
		t.Fatalf("notify: %s %v", outcome, err)
	}
	if users.calls != 0 {
		t.Fatalf("explicit emails must not hit the user store")
	}
	if len(sender.sent) != 1 || len(sender.sent[0].To) != 1 || sender.sent[0].To[0] != "ana@church.org" {
		t.Fatalf("unexpected recipients %+v", sender.sent)
	}
	if len(rec.rows) != 1 || rec.rows[0].routingKey != mq.RoutingNotificationSent || rec.rows[0].entry.Status != DeliverySent {
		t.Fatalf("unexpected delivery record %+v", rec.rows)
	}
	if sent, ok := rec.rows[0].payload.(contracts.NotificationSentPayload); !ok || sent.LogID != 1 || sent.MessageID != sender.sent[0].ID {
		t.Fatalf("unexpected outbox payload %#v", rec.rows[0].payload)
	}
}

func TestNotifyFallsBackToUserStore(t *testing.T) {
	users := &fakeUsers{users: []model.User{{ID: "u1", Email: "u1@church.org"}, {ID: "u2", Email: "u2@church.org"}}}
	sender := &fakeSender{}
	n := NewNotifier(users, sender, &fakeRecorder{}, "agenda@church.org", "church.org", zap.NewNop())

	if _, err := n.Notify(context.Background(), payload()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.sent) != 1 || len(sender.sent[0].To) != 2 {
		t.Fatalf("expected both users as recipients, got %+v", sender.sent)
	}
}

func TestNotifySkipsWithoutRecipients(t *testing.T) {
	sender := &fakeSender{}
	rec := &fakeRecorder{}
	n := NewNotifier(&fakeUsers{}, sender, rec, "", "", zap.NewNop())

	outcome, err := n.Notify(context.Background(), payload())
	if err != nil || outcome != DeliverySkipped {
		t.Fatalf("expected skip, got %s %v", outcome, err)
	}
	if len(sender.sent) != 0 || len(rec.rows) != 0 {
		t.Fatalf("nothing should be sent or recorded")
	}
}

func TestNotifySwallowsDeliveryFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("relay refused")}
	rec := &fakeRecorder{}
	n := NewNotifier(nil, sender, rec, "", "", zap.NewNop())

	p := payload()
	p.ResponsibleEmails = []string{"ana@church.org"}
	outcome, err := n.Notify(context.Background(), p)
	if err != nil || outcome != DeliveryFailed {
		t.Fatalf("delivery failure must be swallowed, got %s %v", outcome, err)
	}
	if len(rec.rows) != 1 || rec.rows[0].routingKey != mq.RoutingNotificationFailed || rec.rows[0].entry.Error != "relay refused" {
		t.Fatalf("failure not recorded: %+v", rec.rows)
	}
}

func TestNotifyReturnsLookupErrors(t *testing.T) {
	users := &fakeUsers{err: errors.New("server selection timeout")}
	n := NewNotifier(users, &fakeSender{}, &fakeRecorder{}, "", "", zap.NewNop())

	if _, err := n.Notify(context.Background(), payload()); err == nil {
		t.Fatalf("lookup errors must be returned for redelivery")
	}
}

func TestNotifyIgnoresRecordFailure(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(nil, sender, &fakeRecorder{err: errors.New("db down")}, "", "", zap.NewNop())

	p := payload()
	p.ResponsibleEmails = []string{"ana@church.org"}
	if _, err := n.Notify(context.Background(), p); err != nil {
		t.Fatalf("record failure after sending must not trigger redelivery: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("mail should have been sent once")
	}
}
