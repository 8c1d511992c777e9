package jwt

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	// TypeAccess marks a short-lived bearer token.
	TypeAccess TokenType = "access"
	// TypeRefresh marks a rotation token bound to a lineage.
	TypeRefresh TokenType = "refresh"
)

var reservedClaims = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
	"type": {}, "roles": {}, "familyId": {},
}

// Claims is the payload of every token minted by Manager.
//
// Custom holds caller-supplied claims. They are flattened into the payload
// next to the registered claims; keys that collide with a registered or
// typed claim are dropped on encode.
type Claims struct {
	Type     TokenType      `json:"type,omitempty"`
	Roles    []string       `json:"roles,omitempty"`
	FamilyID string         `json:"familyId,omitempty"`
	Custom   map[string]any `json:"-"`
	jwt.RegisteredClaims
}

type claimsAlias Claims

// MarshalJSON implements json.Marshaler.
func (c Claims) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(claimsAlias(c))
	if err != nil || len(c.Custom) == 0 {
		return base, err
	}

	merged := make(map[string]json.RawMessage, len(c.Custom)+8)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.Custom {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Claims) UnmarshalJSON(data []byte) error {
	var alias claimsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range reservedClaims {
		delete(all, k)
	}

	*c = Claims(alias)
	if len(all) > 0 {
		c.Custom = all
	} else {
		c.Custom = nil
	}
	return nil
}

func dedupeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
