package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/pkg/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const defaultDisplayName = "User"

// IdentityProvider owns user credentials. *identity.Client implements it.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*identity.User, error)
	SignUp(ctx context.Context, email, password, displayName string) (*identity.User, error)
	SignInWithIdp(ctx context.Context, providerID, idToken string) (*identity.User, error)
}

type TokenConfig struct {
	Secret      string
	TTL         time.Duration
	Issuer      string
	AdminEmails []string
}

// Claims is the payload of a session token.
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	idp    IdentityProvider
	secret []byte
	ttl    time.Duration
	issuer string
	admins map[string]struct{}
}

func NewAuthService(idp IdentityProvider, cfg TokenConfig) AuthService {
	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		if email = normalizeEmail(email); email != "" {
			admins[email] = struct{}{}
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{
		idp:    idp,
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		issuer: cfg.Issuer,
		admins: admins,
	}
}

func (s *authService) SignIn(ctx context.Context, req *SignInRequest) (*entity.Session, error) {
	user, err := s.idp.SignIn(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return nil, mapIdentityError(err)
	}
	return s.issue(user)
}

func (s *authService) SignUp(ctx context.Context, req *SignUpRequest) (*entity.Session, error) {
	if len(req.Password) < 6 {
		return nil, entity.ErrWeakPassword
	}
	user, err := s.idp.SignUp(ctx, strings.TrimSpace(req.Email), req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, mapIdentityError(err)
	}
	return s.issue(user)
}

func (s *authService) SignInWithProvider(ctx context.Context, req *OAuthRequest) (*entity.Session, error) {
	user, err := s.idp.SignInWithIdp(ctx, req.ProviderID, req.IDToken)
	if err != nil {
		return nil, mapIdentityError(err)
	}
	return s.issue(user)
}

// ParseToken validates a session token and returns the session it encodes.
func (s *authService) ParseToken(tokenString string) (*entity.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: malformed token", entity.ErrTokenInvalid)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: token expired", entity.ErrTokenInvalid)
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, fmt.Errorf("%w: token not valid yet", entity.ErrTokenInvalid)
		default:
			return nil, fmt.Errorf("%w: %v", entity.ErrTokenInvalid, err)
		}
	}
	if !token.Valid || claims.UID == "" {
		return nil, entity.ErrTokenInvalid
	}

	session := &entity.Session{
		Token: tokenString,
		Identity: entity.Identity{
			UID:         claims.UID,
			Email:       claims.Email,
			DisplayName: claims.Name,
		},
		Role: claims.Role,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return session, nil
}

func (s *authService) issue(user *identity.User) (*entity.Session, error) {
	name := strings.TrimSpace(user.DisplayName)
	if name == "" {
		name = defaultDisplayName
	}

	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		UID:   user.UID,
		Email: user.Email,
		Name:  name,
		Role:  s.roleFor(user),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	logrus.WithFields(logrus.Fields{"uid": user.UID, "role": claims.Role}).Info("Session issued")

	return &entity.Session{
		Token:     signed,
		ExpiresAt: expiresAt.Unix(),
		Identity: entity.Identity{
			UID:         user.UID,
			Email:       user.Email,
			DisplayName: name,
		},
		Role: claims.Role,
	}, nil
}

// roleFor grants admin only to a listed email the identity service reports
// as verified, so signing up with an admin address is not enough.
func (s *authService) roleFor(user *identity.User) string {
	if _, ok := s.admins[normalizeEmail(user.Email)]; !ok {
		return entity.RoleStudent
	}
	if !user.EmailVerified {
		logrus.WithField("uid", user.UID).Warn("Admin email is not verified, issuing student session")
		return entity.RoleStudent
	}
	return entity.RoleAdmin
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func mapIdentityError(err error) error {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return entity.ErrInvalidCredentials
	case errors.Is(err, identity.ErrEmailExists):
		return entity.ErrEmailExists
	case errors.Is(err, identity.ErrWeakPassword):
		return entity.ErrWeakPassword
	default:
		return fmt.Errorf("%w: %v", entity.ErrExternalService, err)
	}
}
