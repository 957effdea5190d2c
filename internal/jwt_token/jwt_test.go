package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
)

func TestServiceRoundTrip(t *testing.T) {
	svc := NewService("test-key", "domio", "domio-api")
	userID := id.NewUserID()
	residentialID := id.NewResidentialID()

	token, err := svc.GenerateAccessToken(userID, residentialID, id.RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, residentialID.String(), claims.ResidentialID)
	assert.Equal(t, "admin", claims.Role)
}

func TestServiceRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-key", "domio", "domio-api")

	token, err := svc.GenerateAccessToken(id.NewUserID(), id.NewResidentialID(), id.RoleAdmin, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestServiceRejectsForeignKey(t *testing.T) {
	issuer := NewService("key-one", "domio", "domio-api")
	verifier := NewService("key-two", "domio", "domio-api")

	token, err := issuer.GenerateAccessToken(id.NewUserID(), id.NewResidentialID(), id.RoleGuard, time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}

func TestMiddlewareAdapterParsesTypedClaims(t *testing.T) {
	svc := NewService("test-key", "domio", "domio-api")
	adapter := NewMiddlewareAdapter(svc)
	userID := id.NewUserID()
	residentialID := id.NewResidentialID()

	token, err := svc.GenerateAccessToken(userID, residentialID, id.RoleResident, time.Hour)
	require.NoError(t, err)

	claims, err := adapter.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, residentialID, claims.ResidentialID)
	assert.Equal(t, id.RoleResident, claims.Role)
}
