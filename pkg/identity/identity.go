// Package identity is a client for the Identity Toolkit REST API that owns
// user credentials.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email exists")
	ErrWeakPassword       = errors.New("weak password")
	ErrUnavailable        = errors.New("identity service unavailable")
)

// User is the account returned by the identity service.
type User struct {
	UID         string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`

	// EmailVerified is reported by signInWithIdp and filled from
	// accounts:lookup on password sign-in. New accounts are unverified.
	EmailVerified bool `json:"emailVerified"`
}

type Client struct {
	baseURL    string
	apiKey     string
	requestURI string
	http       *http.Client
}

func NewClient(baseURL, apiKey, requestURI string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		requestURI: requestURI,
		http:       &http.Client{Timeout: timeout},
	}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	var user User
	err := c.call(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &user)
	if err != nil {
		return nil, err
	}
	if user.IDToken != "" {
		if user.EmailVerified, err = c.emailVerified(ctx, user.IDToken); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

func (c *Client) emailVerified(ctx context.Context, idToken string) (bool, error) {
	var resp struct {
		Users []struct {
			EmailVerified bool `json:"emailVerified"`
		} `json:"users"`
	}
	if err := c.call(ctx, "accounts:lookup", map[string]interface{}{"idToken": idToken}, &resp); err != nil {
		return false, err
	}
	return len(resp.Users) > 0 && resp.Users[0].EmailVerified, nil
}

// SignUp creates the account and sets its display name when one is given.
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*User, error) {
	var user User
	err := c.call(ctx, "accounts:signUp", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &user)
	if err != nil {
		return nil, err
	}

	if displayName != "" {
		err = c.call(ctx, "accounts:update", map[string]interface{}{
			"idToken":           user.IDToken,
			"displayName":       displayName,
			"returnSecureToken": false,
		}, nil)
		if err != nil {
			return nil, err
		}
		user.DisplayName = displayName
	}
	return &user, nil
}

// SignInWithIdp exchanges an OAuth provider id token (e.g. google.com) for an account.
func (c *Client) SignInWithIdp(ctx context.Context, providerID, idToken string) (*User, error) {
	postBody := url.Values{}
	postBody.Set("id_token", idToken)
	postBody.Set("providerId", providerID)

	var user User
	err := c.call(ctx, "accounts:signInWithIdp", map[string]interface{}{
		"postBody":          postBody.Encode(),
		"requestUri":        c.requestURI,
		"returnSecureToken": true,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, body map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", c.baseURL, method, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return classify(resp.StatusCode, apiErr.Error.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	return nil
}

// classify maps Identity Toolkit error codes such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func classify(status int, message string) error {
	code := message
	if i := strings.Index(code, " "); i > 0 {
		code = code[:i]
	}

	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED",
		"INVALID_IDP_RESPONSE", "INVALID_ID_TOKEN", "INVALID_EMAIL", "MISSING_PASSWORD":
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, code)
	case "EMAIL_EXISTS":
		return ErrEmailExists
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	}
	return fmt.Errorf("%w: status %d %s", ErrUnavailable, status, message)
}
