package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// AccessTokenPayload is the identity to mint a token for. An empty JTI is
// replaced with a random one.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims is the JWT body presented by callers.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Email  string         `json:"email"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims on every parse.
func (c AccessTokenClaims) Validate() error {
	return checkIdentity(c.UserID, c.Role)
}

func checkIdentity(userID uuid.UUID, role enums.UserRole) error {
	if userID == uuid.Nil {
		return errors.New("token missing user id")
	}
	if !role.IsValid() {
		return fmt.Errorf("invalid user role %q", role)
	}
	return nil
}
