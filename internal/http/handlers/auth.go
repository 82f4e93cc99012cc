package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjwg/reporter-backend/internal/http/response"
	"github.com/sjwg/reporter-backend/internal/platform/apierr"
	"github.com/sjwg/reporter-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	user, err := h.authService.RegisterUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status, code := apierr.StatusOf(err)
		response.RespondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":    user.ID,
		"email": user.Email,
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	pair, err := h.authService.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status, code := apierr.StatusOf(err)
		response.RespondError(c, status, code, err)
		return
	}
	response.RespondOK(c, pair)
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	pair, err := h.authService.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		status, code := apierr.StatusOf(err)
		response.RespondError(c, status, code, err)
		return
	}
	response.RespondOK(c, pair)
}
