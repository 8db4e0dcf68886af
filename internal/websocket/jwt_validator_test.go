package websocket

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrInvalidToken_Message(t *testing.T) {
	assert.Equal(t, "invalid token", ErrInvalidToken.Error())
}

func TestCustomClaims_Validate(t *testing.T) {
	claims := &CustomClaims{}
	err := claims.Validate(nil)
	assert.NoError(t, err, "CustomClaims.Validate should return nil")
}

func TestNewAuth0JWTValidator_EmptyDomain(t *testing.T) {
	// Empty domain still parses; validation happens at token time
	v, err := NewAuth0JWTValidator("", "audience")
	assert.NoError(t, err)
	assert.NotNil(t, v)
}

func TestNewAuth0JWTValidator_Success(t *testing.T) {
	v, err := NewAuth0JWTValidator("test.auth0.com", "https://timesheet.mulyahr.app")
	assert.NoError(t, err)
	assert.NotNil(t, v)
	assert.NotNil(t, v.validator)
}

func TestAuth0JWTValidator_ValidateToken_InvalidJWT(t *testing.T) {
	v, err := NewAuth0JWTValidator("test.auth0.com", "https://timesheet.mulyahr.app")
	assert.NoError(t, err)

	employeeID, err := v.ValidateToken("invalid-token")
	assert.Error(t, err)
	assert.Empty(t, employeeID)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
