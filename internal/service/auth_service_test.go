package service

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/exstem-exam-engine/internal/model"
)

const testSecret = "test-secret"

func mint(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func claimsFor(userID int, role model.Role, ttl time.Duration) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
		Role:   role,
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(testSecret)

	tok := mint(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(42, model.RoleInstructor, time.Hour))
	claims, err := svc.ValidateToken(tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if got := claims.Caller(); got.UserID != 42 || got.Role != model.RoleInstructor {
		t.Fatalf("caller = %+v", got)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := NewAuthService(testSecret)

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"wrong secret", mint(t, jwt.SigningMethodHS256, []byte("other"), claimsFor(1, model.RoleStudent, time.Hour)), "signature"},
		{"expired", mint(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(1, model.RoleStudent, -time.Minute)), "expired"},
		{"no user", mint(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(0, model.RoleStudent, time.Hour)), "no user"},
		{"unknown role", mint(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(1, "janitor", time.Hour)), "unknown role"},
		{"none algorithm", mint(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claimsFor(1, model.RoleAdmin, time.Hour)), "signing method"},
		{"garbage", "not.a.token", "parse token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
