package mailer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/sirupsen/logrus"
	"gopkg.in/h2non/gock.v1"
)

func testMailgun() *Mailgun {
	m := NewMailgun("mg.example.com", "key-test", "MedTalks Team <no-reply@mg.example.com>")
	m.APIBase = "https://mailgun.test/v3"
	m.HTTPClient = &http.Client{}
	gock.InterceptClient(m.HTTPClient)
	return m
}

func TestMailgun_Send(t *testing.T) {
	defer gock.Off()

	gock.New("https://mailgun.test").
		Post("/v3/mg.example.com/messages").
		Reply(200).
		JSON(map[string]string{"id": "<20260101.1@mg.example.com>", "message": "Queued. Thank you."})

	err := testMailgun().Send(context.Background(), Message{To: "a@x.com", Subject: "Hi", Text: "hello", HTML: "<p>hello</p>"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !gock.IsDone() {
		t.Error("mailgun endpoint not called")
	}
}

func TestMailgun_SendFailure(t *testing.T) {
	defer gock.Off()

	gock.New("https://mailgun.test").
		Post("/v3/mg.example.com/messages").
		Reply(401).
		BodyString("Forbidden")

	if err := testMailgun().Send(context.Background(), Message{To: "a@x.com", Subject: "Hi", Text: "hello"}); err == nil {
		t.Fatal("Send() succeeded on 401")
	}
}

func TestMailgun_EmptyRecipient(t *testing.T) {
	if err := NewMailgun("d", "k", "s").Send(context.Background(), Message{}); err == nil {
		t.Fatal("Send() accepted empty recipient")
	}
}

func TestDisabled(t *testing.T) {
	if err := (Disabled{}).Send(context.Background(), Message{To: "a@x.com"}); !errors.Is(err, ErrDisabled) {
		t.Errorf("Send() error = %v, want ErrDisabled", err)
	}
}

type fakeDelivery struct {
	acked, nacked, requeued bool
}

func (d *fakeDelivery) Ack(bool) error { d.acked = true; return nil }
func (d *fakeDelivery) Nack(_ bool, requeue bool) error {
	d.nacked = true
	d.requeued = requeue
	return nil
}

type recordingMailer struct {
	sent []Message
	err  error
}

func (r *recordingMailer) Send(_ context.Context, msg Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		redelivered  bool
		sendErr      error
		wantAck      bool
		wantRequeue  bool
		wantNack     bool
		wantDelivers int
	}{
		{"delivered", `{"to":"a@x.com","subject":"Hi","text":"hello"}`, false, nil, true, false, false, 1},
		{"malformed dropped", `{`, false, nil, false, false, true, 0},
		{"first failure requeued", `{"to":"a@x.com","subject":"Hi"}`, false, errors.New("boom"), false, true, true, 0},
		{"redelivered failure dead-lettered", `{"to":"bad@x.com","subject":"Hi"}`, true, errors.New("invalid recipient"), false, false, true, 0},
		{"redelivered success acked", `{"to":"a@x.com","subject":"Hi"}`, true, nil, true, false, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDelivery{}
			m := &recordingMailer{err: tt.sendErr}
			_ = Handle(context.Background(), []byte(tt.body), tt.redelivered, d, m, quietLogger())
			if d.acked != tt.wantAck || d.nacked != tt.wantNack || d.requeued != tt.wantRequeue {
				t.Errorf("delivery = %+v", d)
			}
			if len(m.sent) != tt.wantDelivers {
				t.Errorf("sent %d messages, want %d", len(m.sent), tt.wantDelivers)
			}
		})
	}
}

// A message that always fails is requeued at most once before it leaves the queue.
func TestHandle_FailingJobIsNotRequeuedForever(t *testing.T) {
	m := &recordingMailer{err: errors.New("invalid recipient")}
	requeues := 0
	redelivered := false
	for attempt := 0; attempt < 5; attempt++ {
		d := &fakeDelivery{}
		_ = Handle(context.Background(), []byte(`{"to":"bad@x.com","subject":"Hi"}`), redelivered, d, m, quietLogger())
		if !d.requeued {
			break
		}
		requeues++
		redelivered = true
	}
	if requeues != 1 {
		t.Errorf("requeues = %d, want 1", requeues)
	}
}

func TestDeadLetterQueue(t *testing.T) {
	if got := DeadLetterQueue("emails"); got != "emails.dead" {
		t.Errorf("DeadLetterQueue() = %q", got)
	}
}
