package proof

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// proofClaims is the claim set a capability proof carries. The issuer is an
// external attestation service; the subject is intentionally absent so the
// proof cannot be linked to a user by inspection.
type proofClaims struct {
	Tier         string   `json:"tier"`
	Capabilities []string `json:"capabilities"`
	jwt.RegisteredClaims
}

// JWTVerifier validates signed capability proofs. It implements Verifier
// with replay prevention delegated to a ReplayStore; the TTL of a consumed
// fingerprint equals the proof's remaining validity window.
type JWTVerifier struct {
	verifyKey      []byte
	replays        ReplayStore
	maxValidity    time.Duration
	acceptedIssuer string
}

// NewJWTVerifier builds a verifier for HMAC-signed proofs. maxValidity caps
// the replay-cache TTL for proofs carrying distant expirations.
func NewJWTVerifier(verifyKey []byte, replays ReplayStore, acceptedIssuer string, maxValidity time.Duration) *JWTVerifier {
	return &JWTVerifier{
		verifyKey:      verifyKey,
		replays:        replays,
		maxValidity:    maxValidity,
		acceptedIssuer: acceptedIssuer,
	}
}

// Fingerprint derives the replay key from raw proof bytes. Identical bytes
// always map to the same fingerprint.
func Fingerprint(rawProof string) string {
	sum := sha256.Sum256([]byte(rawProof))
	return hex.EncodeToString(sum[:])
}

func (v *JWTVerifier) Verify(ctx context.Context, rawProof string, requiredTier id.Tier, required []Capability) (Result, error) {
	result := Result{Fingerprint: Fingerprint(rawProof)}

	if rawProof == "" {
		result.Reasons = append(result.Reasons, "empty proof")
		return result, dErrors.New(dErrors.CodeInvalidProof, "empty proof")
	}

	claims := &proofClaims{}
	parsed, err := jwt.ParseWithClaims(rawProof, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.verifyKey, nil
	}, jwt.WithIssuer(v.acceptedIssuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			result.Reasons = append(result.Reasons, "proof expired")
			return result, dErrors.New(dErrors.CodeInvalidProof, "proof expired")
		}
		result.Reasons = append(result.Reasons, "malformed or unverifiable proof")
		return result, dErrors.New(dErrors.CodeInvalidProof, "malformed or unverifiable proof")
	}
	if !parsed.Valid {
		result.Reasons = append(result.Reasons, "invalid proof")
		return result, dErrors.New(dErrors.CodeInvalidProof, "invalid proof")
	}

	tier, err := id.ParseTier(claims.Tier)
	if err != nil {
		result.Reasons = append(result.Reasons, "proof asserts unknown tier")
		return result, dErrors.New(dErrors.CodeInvalidProof, "proof asserts unknown tier")
	}
	if !tier.Covers(requiredTier) {
		result.Reasons = append(result.Reasons, fmt.Sprintf("proof tier %s below required %s", tier, requiredTier))
		return result, dErrors.New(dErrors.CodeTierMismatch, "proof asserts a lower tier than required")
	}

	asserted := make([]Capability, 0, len(claims.Capabilities))
	for _, c := range claims.Capabilities {
		asserted = append(asserted, Capability(c))
	}
	result.Tier = tier
	result.Capabilities = asserted
	for _, req := range required {
		if !result.HasCapability(req) {
			result.Reasons = append(result.Reasons, fmt.Sprintf("missing capability %s", req))
			return result, dErrors.New(dErrors.CodeInvalidProof, "proof missing required capability")
		}
	}

	ttl := v.maxValidity
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining < ttl {
			ttl = remaining
		}
	}

	// Replay check comes last: a malformed proof must not poison the cache
	// for a later well-formed submission with the same bytes.
	fresh, err := v.replays.Consume(ctx, result.Fingerprint, ttl)
	if err != nil {
		return result, dErrors.Wrap(dErrors.CodeInternal, "replay cache unavailable", err)
	}
	if !fresh {
		result.Reasons = append(result.Reasons, "proof already consumed")
		return result, dErrors.New(dErrors.CodeProofConsumed, "proof already consumed")
	}

	result.OK = true
	return result, nil
}
