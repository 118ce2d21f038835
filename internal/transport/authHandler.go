package transport

import (
	"net/http"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/internal/service"
	"github.com/ds124wfegd/campusres/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req service.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.authService.SignIn(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "signed in", session)
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req service.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.authService.SignUp(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, "account created", session)
}

func (h *AuthHandler) SignInWithProvider(c *gin.Context) {
	var req service.OAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.authService.SignInWithProvider(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "signed in", session)
}

func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		writeError(c, entity.ErrUnauthorized)
		return
	}
	respond(c, http.StatusOK, "", session)
}
