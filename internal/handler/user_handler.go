package handler

import (
	"errors"
	"strings"

	"feedback-app/internal/models"
	"feedback-app/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	auth *services.AuthService
}

func NewUserHandler(auth *services.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request parameters: "+err.Error())
		return
	}

	user, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	Success(c, user)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request parameters: "+err.Error())
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			Unauthorized(c, err.Error())
			return
		}
		ServerError(c, err.Error())
		return
	}
	Success(c, resp)
}

func (h *UserHandler) Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		Unauthorized(c, "no token provided")
		return
	}
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		ServerError(c, "logout failed: "+err.Error())
		return
	}
	Success(c, nil)
}

func (h *UserHandler) Me(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		Unauthorized(c, "not authenticated")
		return
	}
	Success(c, user)
}

func (h *UserHandler) Merchants(c *gin.Context) {
	merchants, err := h.auth.Merchants(c.Request.Context())
	if err != nil {
		ServerError(c, "failed to list merchants: "+err.Error())
		return
	}
	Success(c, merchants)
}

func (h *UserHandler) RegisterRoutes(public, authed *gin.RouterGroup) {
	public.POST("/user/register", h.Register)
	public.POST("/user/login", h.Login)

	authed.POST("/user/logout", h.Logout)
	authed.GET("/user/me", h.Me)
	authed.GET("/user/merchants", h.Merchants)
}

func bearerToken(c *gin.Context) string {
	authorization := c.GetHeader("Authorization")
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
