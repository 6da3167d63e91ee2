package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leukemia-care-portal/internal/platform/apperrors"
)

func demoCredentials() StaticCredentials {
	return StaticCredentials{
		RoleDoctor:  {Email: "doctor@medicare.com", Password: "Doctor123!"},
		RolePatient: {Email: "patient@medicare.com", Password: "Patient123!"},
		RoleFamily:  {Email: "family@medicare.com", Password: "Family123!"},
	}
}

func TestLogin(t *testing.T) {
	svc := NewService(demoCredentials(), NewTokenIssuer("secret", time.Hour))
	ctx := context.Background()

	tests := []struct {
		name     string
		req      LoginRequest
		role     Role
		redirect string
		errType  apperrors.ErrorType
		errMsg   string
	}{
		{name: "doctor", req: LoginRequest{Email: "doctor@medicare.com", Password: "Doctor123!"}, role: RoleDoctor, redirect: "/doctor"},
		{name: "patient with role", req: LoginRequest{Email: "patient@medicare.com", Password: "Patient123!", Role: RolePatient}, role: RolePatient, redirect: "/patients"},
		{name: "family", req: LoginRequest{Email: "Family@Medicare.com", Password: "Family123!"}, role: RoleFamily, redirect: "/family"},
		{name: "wrong password", req: LoginRequest{Email: "doctor@medicare.com", Password: "nope"}, errType: apperrors.TypeInvalidCredentials, errMsg: MsgInvalidCredentials},
		{name: "wrong role", req: LoginRequest{Email: "doctor@medicare.com", Password: "Doctor123!", Role: RoleFamily}, errType: apperrors.TypeInvalidCredentials, errMsg: MsgInvalidCredentials},
		{name: "missing password", req: LoginRequest{Email: "doctor@medicare.com"}, errType: apperrors.TypeValidation, errMsg: MsgMissingCredentials},
		{name: "blank email", req: LoginRequest{Email: "   ", Password: "x"}, errType: apperrors.TypeValidation, errMsg: MsgMissingCredentials},
		{name: "unknown role", req: LoginRequest{Email: "a@b.c", Password: "x", Role: "admin"}, errType: apperrors.TypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(ctx, tt.req)
			if tt.errType != "" {
				require.Error(t, err)
				appErr, ok := apperrors.As(err)
				require.True(t, ok)
				assert.Equal(t, tt.errType, appErr.Type)
				if tt.errMsg != "" {
					assert.Equal(t, tt.errMsg, appErr.Message)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.role, resp.Role)
			assert.Equal(t, tt.redirect, resp.Redirect)
			assert.NotEmpty(t, resp.Token)
		})
	}
}

func TestTokenIssuer_ParseRejectsExpiredAndForeign(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	now := time.Now()
	issuer.now = func() time.Time { return now }

	token, _, err := issuer.Issue("doctor@medicare.com", RoleDoctor)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, claims.Role)
	assert.Equal(t, "doctor@medicare.com", claims.Subject)

	other := NewTokenIssuer("other-secret", time.Minute)
	_, err = other.Parse(token)
	assert.Error(t, err)

	issuer.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestMiddleware_RequireRole(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(NewService(demoCredentials(), issuer)))
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(issuer), RequireRole(RoleDoctor))
		r.Get("/doctor/ping", func(w http.ResponseWriter, r *http.Request) {
			v, _ := ViewerFrom(r.Context())
			_, _ = w.Write([]byte(ViewerKey(r.Context()) + "|" + string(v.Role)))
		})
	})

	login := func(email, password string) string {
		body, _ := json.Marshal(LoginRequest{Email: email, Password: password})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp.Token
	}

	get := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/doctor/ping", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, get("").Code)
	assert.Equal(t, http.StatusUnauthorized, get("garbage").Code)
	assert.Equal(t, http.StatusForbidden, get(login("family@medicare.com", "Family123!")).Code)

	rec := get(login("doctor@medicare.com", "Doctor123!"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "doctor:doctor@medicare.com|doctor", rec.Body.String())

	body, _ := json.Marshal(LoginRequest{Email: "doctor@medicare.com", Password: "bad"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgInvalidCredentials)
}

func TestLogin_MissingFieldsListed(t *testing.T) {
	svc := NewService(demoCredentials(), NewTokenIssuer("secret", time.Hour))

	_, err := svc.Login(context.Background(), LoginRequest{Email: " "})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, MsgMissingCredentials, appErr.Message)
	assert.Equal(t, []string{"email", "password"}, appErr.Fields)
}
