package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"leukemia-care-portal/internal/platform/apperrors"
	"leukemia-care-portal/internal/platform/validate"
)

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleFamily  Role = "family"
)

const (
	MsgInvalidCredentials = "Invalid credentials. Please try again."
	MsgMissingCredentials = "Please enter your email and password."
)

// Redirect is the dashboard a role lands on after login.
func (r Role) Redirect() string {
	switch r {
	case RoleDoctor:
		return "/doctor"
	case RolePatient:
		return "/patients"
	case RoleFamily:
		return "/family"
	}
	return "/"
}

func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient || r == RoleFamily
}

// CredentialChecker resolves an email/password pair to a role. role may be
// empty when the caller did not pick one.
type CredentialChecker interface {
	Check(ctx context.Context, email, password string, role Role) (Role, error)
}

type Credential struct {
	Email    string
	Password string
}

// StaticCredentials is one account per role, loaded from configuration.
type StaticCredentials map[Role]Credential

func (c StaticCredentials) Check(_ context.Context, email, password string, role Role) (Role, error) {
	match := func(cred Credential) bool {
		return strings.EqualFold(cred.Email, email) &&
			subtle.ConstantTimeCompare([]byte(cred.Password), []byte(password)) == 1
	}

	if role != "" {
		if cred, ok := c[role]; ok && match(cred) {
			return role, nil
		}
		return "", apperrors.NewInvalidCredentials(MsgInvalidCredentials)
	}
	for _, r := range []Role{RoleDoctor, RolePatient, RoleFamily} {
		if cred, ok := c[r]; ok && match(cred) {
			return r, nil
		}
	}
	return "", apperrors.NewInvalidCredentials(MsgInvalidCredentials)
}

type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *TokenIssuer) Issue(subject string, role Role) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

func (i *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || !claims.Role.Valid() {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

type LoginRequest struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"required"`
	Role     Role   `json:"role,omitempty"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	Redirect  string    `json:"redirect"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	checker CredentialChecker
	tokens  *TokenIssuer
}

func NewService(checker CredentialChecker, tokens *TokenIssuer) *Service {
	return &Service{checker: checker, tokens: tokens}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := validate.Struct(req, MsgMissingCredentials); err != nil {
		return nil, err
	}
	if req.Role != "" && !req.Role.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown role %q", req.Role), "role")
	}

	role, err := s.checker.Check(ctx, strings.TrimSpace(req.Email), req.Password, req.Role)
	if err != nil {
		return nil, err
	}

	token, expires, err := s.tokens.Issue(strings.ToLower(strings.TrimSpace(req.Email)), role)
	if err != nil {
		return nil, apperrors.NewInternal("failed to issue session", err)
	}
	return &LoginResponse{Token: token, Role: role, Redirect: role.Redirect(), ExpiresAt: expires}, nil
}
