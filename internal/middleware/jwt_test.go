package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/response"
	"github.com/stemsi/exstem-exam-engine/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, userID int, role model.Role, ttl time.Duration) string {
	t.Helper()
	claims := service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl))},
		UserID:           userID,
		Role:             role,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error, "expected an error envelope: %s", rec.Body.String())
	return body.Error.Code
}

func whoAmI(c *gin.Context) {
	c.String(http.StatusOK, strconv.Itoa(GetClaims(c).UserID))
}

func TestRequireJWT(t *testing.T) {
	auth := service.NewAuthService(testSecret)
	r := gin.New()
	r.GET("/me", RequireJWT(auth), whoAmI)

	valid := signToken(t, 7, model.RoleStudent, time.Hour)
	expired := signToken(t, 7, model.RoleStudent, -time.Hour)

	tests := []struct {
		name     string
		header   string
		query    string
		status   int
		wantCode response.ErrCode
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, "", http.StatusOK, ""},
		{"query fallback", "", valid, http.StatusOK, ""},
		{"missing", "", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"wrong scheme", "Basic " + valid, "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized, response.ErrTokenExpired},
		{"garbage", "Bearer abc.def.ghi", "", http.StatusUnauthorized, response.ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, rec))
			} else {
				assert.Equal(t, "7", rec.Body.String())
			}
		})
	}
}

func TestRequireWSAuth_IgnoresHeader(t *testing.T) {
	auth := service.NewAuthService(testSecret)
	r := gin.New()
	r.GET("/ws", RequireWSAuth(auth), whoAmI)
	tok := signToken(t, 3, model.RoleStudent, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireStaff(t *testing.T) {
	auth := service.NewAuthService(testSecret)
	r := gin.New()
	r.GET("/stats", RequireJWT(auth), RequireStaff(), whoAmI)
	r.GET("/unguarded", RequireStaff(), whoAmI)

	tests := []struct {
		role   model.Role
		status int
	}{
		{model.RoleStudent, http.StatusForbidden},
		{model.RoleInstructor, http.StatusOK},
		{model.RoleAdmin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, 11, tt.role, time.Hour))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, response.ErrStaffAccessOnly, errorCode(t, rec))
			}
		})
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unguarded", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
