package coupon

import (
	"errors"
	"time"

	"github.com/rolandrocking/77x/jwt"
)

// jwtSigner adapts jwt.Manager to the Signer contract and translates the
// subpackage sentinels into the engine taxonomy.
type jwtSigner struct {
	manager *jwt.Manager
}

func newJWTSigner(cfg TokenConfig) (*jwtSigner, error) {
	manager, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.SigningMethod),
		PrivateKey:    cfg.PrivateKey,
		PublicKey:     cfg.PublicKey,
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		Leeway:        cfg.Leeway,
	})
	if err != nil {
		return nil, err
	}
	return &jwtSigner{manager: manager}, nil
}

func (s *jwtSigner) Sign(claim TokenClaim) (string, error) {
	return s.manager.CreateCoupon(claim.Sequence, claim.UserID, claim.TokenID, claim.IssuedAt, claim.ExpiresAt)
}

func (s *jwtSigner) Verify(material string) (*TokenClaim, error) {
	claims, err := s.manager.ParseCoupon(material)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			if claims == nil {
				return nil, ErrTokenExpired
			}
			return claimFromCoupon(claims), ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	return claimFromCoupon(claims), nil
}

func claimFromCoupon(claims *jwt.CouponClaims) *TokenClaim {
	out := &TokenClaim{
		Sequence: claims.Seq,
		UserID:   claims.UID,
		TokenID:  claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out
}

var _ Signer = (*jwtSigner)(nil)

// mintTimes returns the validity window anchored at now, truncated so the
// claim round-trips through JWT NumericDate encoding without sub-second
// drift.
func mintTimes(now time.Time, validity time.Duration) (issuedAt, expiresAt time.Time) {
	issuedAt = now.UTC().Truncate(time.Second)
	expiresAt = issuedAt.Add(validity)
	return issuedAt, expiresAt
}
