// Package identity resolves authenticated actors from bearer credentials.
// The pipeline never sees a credential; it receives only the resolved Actor.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hl7bridge/pkg/domain"
	dErrors "hl7bridge/pkg/domain-errors"
)

// Claims are the access-token claims this bridge issues and accepts.
type Claims struct {
	Name           string   `json:"name,omitempty"`
	OrganizationID string   `json:"org_id"`
	Roles          []string `json:"roles"`
	Enabled        bool     `json:"enabled"`
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 bearer tokens and maps their claims onto a
// domain Actor.
type JWTResolver struct {
	signingKey []byte
	issuer     string
}

func NewJWTResolver(signingKey, issuer string) *JWTResolver {
	return &JWTResolver{signingKey: []byte(signingKey), issuer: issuer}
}

// Resolve parses and verifies the token and returns the actor it names.
func (r *JWTResolver) Resolve(token string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return r.signingKey, nil
	}, jwt.WithIssuer(r.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Actor{}, dErrors.New(dErrors.CodeAuthentication, "token has expired")
		}
		return domain.Actor{}, dErrors.New(dErrors.CodeAuthentication, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, dErrors.New(dErrors.CodeAuthentication, "invalid token")
	}
	if claims.Subject == "" {
		return domain.Actor{}, dErrors.New(dErrors.CodeAuthentication, "token names no subject")
	}

	roles := make([]domain.Role, 0, len(claims.Roles))
	for _, role := range claims.Roles {
		roles = append(roles, domain.Role(role))
	}
	return domain.Actor{
		ID:             claims.Subject,
		Name:           claims.Name,
		OrganizationID: claims.OrganizationID,
		Roles:          roles,
		Enabled:        claims.Enabled,
	}, nil
}

// Issue signs a token for the actor. Used by tests and provisioning
// tooling; the bridge itself never hands out credentials at runtime.
func (r *JWTResolver) Issue(actor domain.Actor, expiresIn time.Duration) (string, error) {
	roles := make([]string, 0, len(actor.Roles))
	for _, role := range actor.Roles {
		roles = append(roles, string(role))
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name:           actor.Name,
		OrganizationID: actor.OrganizationID,
		Roles:          roles,
		Enabled:        actor.Enabled,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(r.signingKey)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "sign token", err)
	}
	return signed, nil
}
