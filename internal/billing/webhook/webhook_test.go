package webhook

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const secret = "whsec_test"

func header(payload []byte, at time.Time) string {
	timestamp := fmt.Sprintf("%d", at.Unix())
	return "t=" + timestamp + ",v1=" + Sign(payload, timestamp, secret)
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	assert.True(t, Verify(payload, header(payload, now), secret, now))
}

func TestVerifyToleratesBoundedSkew(t *testing.T) {
	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	payload := []byte(`{}`)

	assert.True(t, Verify(payload, header(payload, now.Add(-Tolerance)), secret, now))
	assert.False(t, Verify(payload, header(payload, now.Add(-Tolerance-time.Second)), secret, now))
	assert.False(t, Verify(payload, header(payload, now.Add(Tolerance+time.Second)), secret, now))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	signed := header([]byte(`{"amount":100}`), now)

	assert.False(t, Verify([]byte(`{"amount":999}`), signed, secret, now))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	payload := []byte(`{}`)
	timestamp := fmt.Sprintf("%d", now.Unix())
	signed := "t=" + timestamp + ",v1=" + Sign(payload, timestamp, "other")

	assert.False(t, Verify(payload, signed, secret, now))
}

func TestVerifyRejectsMalformedHeaders(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)

	for _, h := range []string{
		"",
		"v1=abc",
		"t=123",
		"t=notanumber,v1=abc",
		"garbage",
	} {
		assert.False(t, Verify(payload, h, secret, now), "header %q", h)
	}
}
