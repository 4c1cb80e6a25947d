package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestSealRoundTrip(t *testing.T) {
	sealer, err := NewSealer(testKey)
	require.NoError(t, err)

	credentials := map[string]string{"api_key": "secret-token", "account_id": "42"}
	sealed, err := sealer.Seal(credentials)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "secret-token")

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, credentials, opened)
}

func TestSealNonDeterministic(t *testing.T) {
	sealer, err := NewSealer(testKey)
	require.NoError(t, err)

	first, err := sealer.Seal(map[string]string{"api_key": "x"})
	require.NoError(t, err)
	second, err := sealer.Seal(map[string]string{"api_key": "x"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestOpenRejectsTamperedPayload(t *testing.T) {
	sealer, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := sealer.Seal(map[string]string{"api_key": "x"})
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = sealer.Open(sealed)
	assert.ErrorIs(t, err, ErrInvalidSealed)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	sealer, err := NewSealer(testKey)
	require.NoError(t, err)
	other, err := NewSealer("fedcba9876543210fedcba9876543210")
	require.NoError(t, err)

	sealed, err := sealer.Seal(map[string]string{"api_key": "x"})
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrInvalidSealed)
}

func TestNewSealerKeyForms(t *testing.T) {
	_, err := NewSealer("00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff")
	assert.NoError(t, err)

	_, err = NewSealer("too-short")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
