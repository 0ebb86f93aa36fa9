package messaging

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/consultorio-ai/citabot/internal/conversation"
)

type fakeDispatcher struct {
	dispatched []conversation.Inbound
	err        error
}

func (f *fakeDispatcher) Dispatch(msg conversation.Inbound) error {
	f.dispatched = append(f.dispatched, msg)
	return f.err
}

func webhookForm(body string) url.Values {
	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("From", "whatsapp:+58111")
	form.Set("To", "whatsapp:+58999")
	form.Set("Body", body)
	return form
}

func TestHandlerAcksAndDispatches(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := NewHandler(dispatcher, "", nil, nil)

	r := httptest.NewRequest("POST", "/whatsapp-webhook", strings.NewReader(webhookForm("quiero una cita").Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	h.WhatsAppWebhook(w, r)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Fatalf("expected OK body, got %q", w.Body.String())
	}
	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("expected 1 dispatched message, got %d", len(dispatcher.dispatched))
	}
	got := dispatcher.dispatched[0]
	if got.From != "whatsapp:+58111" || got.To != "whatsapp:+58999" || got.Body != "quiero una cita" {
		t.Fatalf("unexpected dispatch: %+v", got)
	}
}

func TestHandlerIgnoresEmptyBody(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := NewHandler(dispatcher, "", nil, nil)

	r := httptest.NewRequest("POST", "/whatsapp-webhook", strings.NewReader(webhookForm("   ").Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	h.WhatsAppWebhook(w, r)

	if w.Code != 200 {
		t.Fatalf("empty messages must still be acked, got %d", w.Code)
	}
	if len(dispatcher.dispatched) != 0 {
		t.Fatalf("empty messages must not be dispatched, got %+v", dispatcher.dispatched)
	}
}

func TestHandlerStillAcksWhenDispatchFails(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("queue full")}
	h := NewHandler(dispatcher, "", nil, nil)

	r := httptest.NewRequest("POST", "/whatsapp-webhook", strings.NewReader(webhookForm("hola").Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	h.WhatsAppWebhook(w, r)

	if w.Code != 200 {
		t.Fatalf("dispatch failures must not change the ack, got %d", w.Code)
	}
}

func TestHandlerRejectsInvalidSignature(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := NewHandler(dispatcher, "auth-token", nil, nil)

	r := httptest.NewRequest("POST", "https://example.com/whatsapp-webhook", strings.NewReader(webhookForm("hola").Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Twilio-Signature", "bogus")
	w := httptest.NewRecorder()

	h.WhatsAppWebhook(w, r)

	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(dispatcher.dispatched) != 0 {
		t.Fatal("rejected requests must not be dispatched")
	}
}

func TestHandlerAcceptsValidSignature(t *testing.T) {
	const authToken = "auth-token"
	dispatcher := &fakeDispatcher{}
	h := NewHandler(dispatcher, authToken, nil, nil)

	form := webhookForm("hola")
	r := httptest.NewRequest("POST", "https://example.com/whatsapp-webhook", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Twilio-Signature",
		computeSignature(signaturePayload("https://example.com/whatsapp-webhook", form), authToken))
	w := httptest.NewRecorder()

	h.WhatsAppWebhook(w, r)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("expected dispatch, got %d", len(dispatcher.dispatched))
	}
}
