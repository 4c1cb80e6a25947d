package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Tolerance bounds the accepted clock skew of a signed delivery.
const Tolerance = 5 * time.Minute

// Verify checks a "t=<unix>,v1=<hex>" signature header over the raw body.
func Verify(payload []byte, header, secret string, now time.Time) bool {
	var timestamp string
	var signature string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signature = value
		}
	}
	if timestamp == "" || signature == "" {
		return false
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	signedAt := time.Unix(unix, 0)
	if signedAt.Before(now.Add(-Tolerance)) || signedAt.After(now.Add(Tolerance)) {
		return false
	}

	expected := Sign(payload, timestamp, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the v1 signature for a payload at a timestamp.
func Sign(payload []byte, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
