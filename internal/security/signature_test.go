package security

import (
	"testing"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s, err := NewSigner("whsec_test")
	require.NoError(t, err)

	body := []byte(`{"event":"payment.captured"}`)
	sig := s.Sign(body)
	assert.Len(t, sig, 64)
	assert.NoError(t, s.Verify(body, sig))
	assert.NoError(t, s.Verify(body, " "+sig+" "))
}

func TestSigner_KnownVector(t *testing.T) {
	// RFC 4231 test case 2
	s, err := NewSigner("Jefe")
	require.NoError(t, err)
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		s.Sign([]byte("what do ya want for nothing?")))
}

func TestSigner_Rejects(t *testing.T) {
	s, err := NewSigner("whsec_test")
	require.NoError(t, err)
	other, err := NewSigner("another")
	require.NoError(t, err)
	body := []byte(`{"event":"payment.failed"}`)

	for name, sig := range map[string]string{
		"missing":      "",
		"not hex":      "zz-not-hex",
		"wrong secret": other.Sign(body),
		"other body":   s.Sign([]byte(`{}`)),
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Verify(body, sig), domain.ErrInvalidSignature)
		})
	}
}

func TestNewSigner_RequiresSecret(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
}
