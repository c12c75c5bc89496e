package reveal

import (
	"github.com/golang-jwt/jwt/v5"

	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// consentClaims is the signed consent a client issues when they explicitly
// approve a disclosure. The token is bound to a pseudonym and caps the level
// it can justify.
type consentClaims struct {
	Pseudonym string `json:"pseudonym"`
	MaxLevel  string `json:"max_level"`
	jwt.RegisteredClaims
}

// ConsentValidator checks user consent tokens offered as reveal
// justification.
type ConsentValidator struct {
	signingKey []byte
}

func NewConsentValidator(signingKey []byte) *ConsentValidator {
	return &ConsentValidator{signingKey: signingKey}
}

// Validate returns nil when the token authorizes revealing target for the
// given pseudonym. Expired, foreign, or under-scoped tokens are unauthorized.
func (v *ConsentValidator) Validate(token string, pseudonymID id.PseudonymID, target id.DisclosureLevel) error {
	claims := &consentClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid consent token")
	}
	if claims.Pseudonym != pseudonymID.String() {
		return dErrors.New(dErrors.CodeUnauthorized, "consent token bound to a different pseudonym")
	}
	maxLevel, err := id.ParseDisclosureLevel(claims.MaxLevel)
	if err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "consent token carries an unknown level")
	}
	if !maxLevel.Allows(target) {
		return dErrors.New(dErrors.CodeUnauthorized, "consent token does not cover the requested level")
	}
	return nil
}
