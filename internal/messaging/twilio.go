package messaging

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// WebhookRequest is the form payload Twilio posts for an inbound WhatsApp
// message.
type WebhookRequest struct {
	MessageSid string
	From       string
	To         string
	Body       string
}

// ParseWebhook decodes the form-encoded webhook body.
func ParseWebhook(r *http.Request) (WebhookRequest, error) {
	if err := r.ParseForm(); err != nil {
		return WebhookRequest{}, fmt.Errorf("messaging: parse webhook form: %w", err)
	}
	return WebhookRequest{
		MessageSid: r.FormValue("MessageSid"),
		From:       r.FormValue("From"),
		To:         r.FormValue("To"),
		Body:       r.FormValue("Body"),
	}, nil
}

// ValidateSignature checks the X-Twilio-Signature header against the HMAC-SHA1
// of the public webhook URL plus the sorted form parameters.
func ValidateSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}

	expected := computeSignature(signaturePayload(webhookURL, r.PostForm), authToken)
	return hmac.Equal([]byte(signature), []byte(expected))
}

func signaturePayload(webhookURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(webhookURL)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}
	return payload.String()
}

func computeSignature(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
