package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPService_GenerateAndValidate(t *testing.T) {
	s := NewOTPService()
	defer s.Stop()

	code := s.Generate("TMST00000001")
	require.Len(t, code, 6)

	assert.True(t, s.Validate("TMST00000001", code))
	// Codes are single use
	assert.False(t, s.Validate("TMST00000001", code))
}

func TestOTPService_WrongCodeOrRecordRefused(t *testing.T) {
	s := NewOTPService()
	defer s.Stop()

	code := s.Generate("TMST00000001")

	assert.False(t, s.Validate("TMST00000001", "not-it"))
	assert.False(t, s.Validate("TMST00000002", code))
	// A failed attempt does not consume the code
	assert.True(t, s.Validate("TMST00000001", code))
}

func TestOTPService_RegenerateReplacesCode(t *testing.T) {
	s := NewOTPService()
	defer s.Stop()

	first := s.Generate("TMST00000001")
	second := s.Generate("TMST00000001")

	if first != second {
		assert.False(t, s.Validate("TMST00000001", first))
	}
	assert.True(t, s.Validate("TMST00000001", second))
}

func TestOTPService_ExpiredCodeRefused(t *testing.T) {
	s := NewOTPService()
	defer s.Stop()

	code := s.Generate("TMST00000001")
	s.mu.Lock()
	s.entries["TMST00000001"] = otpEntry{code: code, expires: time.Now().Add(-time.Second)}
	s.mu.Unlock()

	assert.False(t, s.Validate("TMST00000001", code))
}
