package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/pkg/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	users map[string]*identity.User
	err   error
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (*identity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[email]
	if !ok || password != "secret123" {
		return nil, identity.ErrInvalidCredentials
	}
	return user, nil
}

func (f *fakeIdentity) SignUp(_ context.Context, email, _ string, displayName string) (*identity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.users[email]; ok {
		return nil, identity.ErrEmailExists
	}
	user := &identity.User{UID: "uid-" + email, Email: email, DisplayName: displayName}
	f.users[email] = user
	return user, nil
}

func (f *fakeIdentity) SignInWithIdp(_ context.Context, providerID, idToken string) (*identity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &identity.User{UID: "uid-" + providerID, Email: idToken + "@gmail.com"}, nil
}

func newAuth(idp IdentityProvider) AuthService {
	return NewAuthService(idp, TokenConfig{
		Secret:      "test-secret",
		TTL:         time.Hour,
		Issuer:      "campusres",
		AdminEmails: []string{" Admin@Campus.com "},
	})
}

func TestAuthRoles(t *testing.T) {
	idp := &fakeIdentity{users: map[string]*identity.User{
		"admin@campus.com":   {UID: "uid-admin", Email: "admin@campus.com", DisplayName: "Admin", EmailVerified: true},
		"student@campus.com": {UID: "uid-student", Email: "student@campus.com"},
	}}
	auth := newAuth(idp)

	tests := []struct {
		email    string
		wantRole string
		wantName string
	}{
		{email: "admin@campus.com", wantRole: entity.RoleAdmin, wantName: "Admin"},
		{email: "student@campus.com", wantRole: entity.RoleStudent, wantName: "User"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			session, err := auth.SignIn(context.Background(), &SignInRequest{Email: tt.email, Password: "secret123"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, session.Role)
			assert.Equal(t, tt.wantName, session.DisplayName)
			assert.NotEmpty(t, session.Token)

			parsed, err := auth.ParseToken(session.Token)
			require.NoError(t, err)
			assert.Equal(t, session.UID, parsed.UID)
			assert.Equal(t, tt.wantRole, parsed.Role)
			assert.Equal(t, session.ExpiresAt, parsed.ExpiresAt)
		})
	}
}

func TestAuthIdentityErrors(t *testing.T) {
	ctx := context.Background()
	idp := &fakeIdentity{users: map[string]*identity.User{
		"taken@campus.com": {UID: "uid-taken", Email: "taken@campus.com"},
	}}
	auth := newAuth(idp)

	_, err := auth.SignIn(ctx, &SignInRequest{Email: "taken@campus.com", Password: "wrong"})
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)

	_, err = auth.SignUp(ctx, &SignUpRequest{Email: "taken@campus.com", Password: "secret123"})
	assert.ErrorIs(t, err, entity.ErrEmailExists)

	_, err = auth.SignUp(ctx, &SignUpRequest{Email: "new@campus.com", Password: "123"})
	assert.ErrorIs(t, err, entity.ErrWeakPassword)

	session, err := auth.SignUp(ctx, &SignUpRequest{Name: "Nadia", Email: "new@campus.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Nadia", session.DisplayName)
	assert.Equal(t, entity.RoleStudent, session.Role)

	session, err = auth.SignInWithProvider(ctx, &OAuthRequest{ProviderID: "google.com", IDToken: "someone"})
	require.NoError(t, err)
	assert.Equal(t, "someone@gmail.com", session.Email)

	idp.err = errors.New("dial tcp: i/o timeout")
	_, err = auth.SignIn(ctx, &SignInRequest{Email: "taken@campus.com", Password: "secret123"})
	assert.ErrorIs(t, err, entity.ErrExternalService)
}

func TestParseTokenRejects(t *testing.T) {
	auth := newAuth(&fakeIdentity{users: map[string]*identity.User{}})

	sign := func(claims *Claims, method jwt.SigningMethod, key interface{}) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	valid := func(exp time.Time) *Claims {
		return &Claims{
			UID:  "uid-1",
			Role: entity.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(exp),
			},
		}
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "expired", token: sign(valid(time.Now().Add(-time.Minute)), jwt.SigningMethodHS256, []byte("test-secret"))},
		{name: "foreign secret", token: sign(valid(time.Now().Add(time.Hour)), jwt.SigningMethodHS256, []byte("other"))},
		{name: "no uid", token: sign(&Claims{Role: entity.RoleAdmin}, jwt.SigningMethodHS256, []byte("test-secret"))},
		{name: "unsigned", token: sign(valid(time.Now().Add(time.Hour)), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ParseToken(tt.token)
			assert.ErrorIs(t, err, entity.ErrTokenInvalid)
		})
	}
}

func TestAdminRoleNeedsVerifiedEmail(t *testing.T) {
	ctx := context.Background()
	idp := &fakeIdentity{users: map[string]*identity.User{}}
	auth := newAuth(idp)

	// anyone can register the admin address; the account starts unverified
	session, err := auth.SignUp(ctx, &SignUpRequest{Email: "admin@campus.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleStudent, session.Role)

	session, err = auth.SignIn(ctx, &SignInRequest{Email: "admin@campus.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleStudent, session.Role)

	idp.users["admin@campus.com"].EmailVerified = true
	session, err = auth.SignIn(ctx, &SignInRequest{Email: "admin@campus.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, session.Role)
}
