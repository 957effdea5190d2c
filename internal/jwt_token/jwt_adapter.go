package jwttoken

import (
	"domio/internal/platform/middleware"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
)

// MiddlewareAdapter adapts the Service to middleware.TokenValidator,
// parsing the string claims into typed identifiers.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	residentialID, err := id.ParseResidentialID(claims.ResidentialID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token residential")
	}

	out := &middleware.Claims{
		UserID:        userID,
		ResidentialID: residentialID,
	}
	if claims.Role != "" {
		role, err := id.ParseRoleName(claims.Role)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token role")
		}
		out.Role = role
	}
	return out, nil
}
