package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueVerify_Roundtrip(t *testing.T) {
	codec := NewCodec("test-secret", 24*time.Hour)

	tok, err := codec.Issue("alice@x.com", "ADMIN")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	claims, err := codec.Verify(tok)
	if err != nil {
		t.Fatalf("ошибка верификации: %v", err)
	}
	if claims.Subject != "alice@x.com" {
		t.Fatalf("ожидался subject alice@x.com, получен %q", claims.Subject)
	}
	if claims.Role != "ADMIN" {
		t.Fatalf("ожидалась роль ADMIN, получена %q", claims.Role)
	}
	if !claims.ExpiresAt.After(claims.IssuedAt) {
		t.Fatal("exp должен быть строго позже iat")
	}
}

func TestIssue_EmptyRoleDefaultsToUser(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)

	tok, err := codec.Issue("bob@x.com", "  ")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	claims, err := codec.Verify(tok)
	if err != nil {
		t.Fatalf("ошибка верификации: %v", err)
	}
	if claims.Role != DefaultRole {
		t.Fatalf("пустая роль должна превращаться в %s, получена %q", DefaultRole, claims.Role)
	}
}

func TestVerify_MissingRoleClaimDefaultsToUser(t *testing.T) {
	// Токен чужой сборки вовсе без claim role
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "old@x.com",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := raw.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("ошибка подписи: %v", err)
	}

	codec := NewCodec("test-secret", time.Hour)
	claims, err := codec.Verify(signed)
	if err != nil {
		t.Fatalf("ошибка верификации: %v", err)
	}
	if claims.Role != DefaultRole {
		t.Fatalf("отсутствующая роль должна давать %s, получена %q", DefaultRole, claims.Role)
	}
}

func TestVerify_Expired(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)

	issued := time.Now()
	codec.now = func() time.Time { return issued }
	tok, err := codec.Issue("alice@x.com", "USER")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	// За мгновение до exp токен ещё валиден
	codec.now = func() time.Time { return issued.Add(time.Hour - time.Second) }
	if _, err := codec.Verify(tok); err != nil {
		t.Fatalf("токен до истечения срока должен приниматься: %v", err)
	}

	// После exp — единая ошибка ErrTokenInvalid
	codec.now = func() time.Time { return issued.Add(time.Hour + time.Second) }
	if _, err := codec.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("ожидалась ErrTokenInvalid, получено: %v", err)
	}
}

func TestVerify_BadSignature(t *testing.T) {
	issuer := NewCodec("secret-one", time.Hour)
	verifier := NewCodec("secret-two", time.Hour)

	tok, err := issuer.Issue("alice@x.com", "USER")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	if _, err := verifier.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("чужая подпись должна давать ErrTokenInvalid, получено: %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := codec.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("битый токен %q должен давать ErrTokenInvalid, получено: %v", tok, err)
		}
	}
}

func TestVerify_WrongAlgorithm(t *testing.T) {
	// alg=none не должен проходить ни при каких условиях
	raw := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice@x.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := raw.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("ошибка подписи: %v", err)
	}

	codec := NewCodec("test-secret", time.Hour)
	if _, err := codec.Verify(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("alg=none должен давать ErrTokenInvalid, получено: %v", err)
	}
}
