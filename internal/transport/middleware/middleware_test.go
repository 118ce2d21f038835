package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type staticParser map[string]*entity.Session

func (p staticParser) ParseToken(token string) (*entity.Session, error) {
	if s, ok := p[token]; ok {
		return s, nil
	}
	return nil, errors.New("invalid token")
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewRateLimiter(1, 2).Limit())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	parser := staticParser{
		"student": {Identity: entity.Identity{UID: "u1"}, Role: entity.RoleStudent},
		"admin":   {Identity: entity.Identity{UID: "u2"}, Role: entity.RoleAdmin},
	}

	router := gin.New()
	router.Use(Logger())
	router.GET("/me", Authenticate(parser), func(c *gin.Context) {
		session, _ := SessionFrom(c)
		c.String(http.StatusOK, session.UID)
	})
	router.GET("/admin", Authenticate(parser), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{name: "missing", path: "/me", want: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/me", header: "Basic student", want: http.StatusUnauthorized},
		{name: "header", path: "/me", header: "Bearer student", want: http.StatusOK},
		{name: "query", path: "/me?token=student", want: http.StatusOK},
		{name: "student on admin", path: "/admin", header: "Bearer student", want: http.StatusForbidden},
		{name: "admin", path: "/admin", header: "bearer admin", want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
		})
	}
}
