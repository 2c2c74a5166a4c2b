package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestCreateAndParseCouponRoundTrip(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "coupon",
		Audience:      "api",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	issuedAt := time.Now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(time.Hour)

	token, err := m.CreateCoupon(42, "alice", "tid-1", issuedAt, expiresAt)
	if err != nil {
		t.Fatalf("create coupon: %v", err)
	}

	claims, err := m.ParseCoupon(token)
	if err != nil {
		t.Fatalf("parse coupon: %v", err)
	}
	if claims.Seq != 42 || claims.UID != "alice" || claims.ID != "tid-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Time.Equal(expiresAt) {
		t.Fatalf("expected expiry %s, got %s", expiresAt, claims.ExpiresAt.Time)
	}
}

func TestCreateCouponValidatesInputs(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	now := time.Now()
	if _, err := m.CreateCoupon(0, "alice", "tid", now, now.Add(time.Hour)); err == nil {
		t.Fatal("expected non-positive sequence to be rejected")
	}
	if _, err := m.CreateCoupon(1, "", "tid", now, now.Add(time.Hour)); err == nil {
		t.Fatal("expected empty uid to be rejected")
	}
	if _, err := m.CreateCoupon(1, "alice", "tid", now, now); err == nil {
		t.Fatal("expected inverted validity window to be rejected")
	}
}

func TestParseCouponExpiredReturnsClaims(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.CreateCoupon(7, "alice", "tid", time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("create coupon: %v", err)
	}

	claims, err := m.ParseCoupon(token)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if claims == nil || claims.Seq != 7 || claims.UID != "alice" {
		t.Fatalf("expected decoded claims alongside ErrExpired, got %+v", claims)
	}
}

func TestParseCouponRejectsTamperAndGarbage(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.CreateCoupon(1, "alice", "tid", time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create coupon: %v", err)
	}

	for _, input := range []string{"", "not.a.jwt", token[:len(token)-2] + "xx"} {
		if _, err := m.ParseCoupon(input); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed for %q, got %v", input, err)
		}
	}
}

func TestParseCouponRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := CouponClaims{Seq: 1, UID: "alice", RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseCoupon(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for wrong algorithm, got %v", err)
	}
}

func TestParseCouponIssuerAudienceAndLeeway(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "coupon",
		Audience:      "api",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	wrongIssuer := CouponClaims{Seq: 1, UID: "alice", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "other",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	badIssuerTok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, wrongIssuer)
	badIssuer, _ := badIssuerTok.SignedString(priv)
	if _, err := m.ParseCoupon(badIssuer); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong issuer to fail as malformed, got %v", err)
	}

	wrongAudience := CouponClaims{Seq: 1, UID: "alice", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "coupon",
		Audience:  gjwt.ClaimStrings{"other-api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	badAudienceTok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, wrongAudience)
	badAudience, _ := badAudienceTok.SignedString(priv)
	if _, err := m.ParseCoupon(badAudience); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong audience to fail as malformed, got %v", err)
	}

	withinLeeway := CouponClaims{Seq: 1, UID: "alice", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "coupon",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-15 * time.Second)),
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	withinTok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, withinLeeway)
	within, _ := withinTok.SignedString(priv)
	if _, err := m.ParseCoupon(within); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
}

func TestParseCouponUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)

	m, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		KeyID:         "k2",
		VerifyKeys:    map[string][]byte{"k1": pub1, "k2": pub2},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	// Signed with priv1 but advertising k2: signature check against pub2 fails.
	token, err := m.CreateCoupon(1, "alice", "tid", time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	if _, err := m.ParseCoupon(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected kid/key mismatch to fail, got %v", err)
	}
}

func TestParseCouponRejectsMissingCouponClaims(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	// A structurally valid JWT without seq/uid is not a coupon.
	empty := CouponClaims{RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, empty)
	token, _ := tok.SignedString(priv)

	if _, err := m.ParseCoupon(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected missing coupon claims to fail, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	pub, priv := newEdKeys(t)

	if _, err := NewManager(Config{SigningMethod: "rs256"}); err == nil {
		t.Fatal("expected unsupported method to fail")
	}
	if _, err := NewManager(Config{SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected hs256 without key to fail")
	}
	if _, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv}); err == nil {
		t.Fatal("expected ed25519 without verify key to fail")
	}
	if _, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub, Leeway: 5 * time.Minute}); err == nil {
		t.Fatal("expected oversized leeway to fail")
	}
	if _, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		KeyID:         "missing",
		VerifyKeys:    map[string][]byte{"k1": pub},
	}); err == nil {
		t.Fatal("expected KeyID absent from VerifyKeys to fail")
	}
}

func TestHS256RoundTrip(t *testing.T) {
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("test-secret")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.CreateCoupon(3, "bob", "tid", time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create coupon: %v", err)
	}

	claims, err := m.ParseCoupon(token)
	if err != nil {
		t.Fatalf("parse coupon: %v", err)
	}
	if claims.Seq != 3 || claims.UID != "bob" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
