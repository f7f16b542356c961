package handler

import (
	"net/http"

	"go-gin-event-registration/internal/auth"
	"go-gin-event-registration/internal/model"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service auth.AuthService
}

func NewAuthHandler(service auth.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, mw *AuthMiddleware) {
	router.POST("register", h.Register)
	router.POST("login", h.Login)

	authed := router.Group("", mw.Required())
	{
		authed.POST("logout", h.Logout)
		authed.GET("user", h.CurrentUser)
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req model.SignUpRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	resp, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Register")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Login")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), CurrentSession(c)); err != nil {
		respondError(c, err, "Logout")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) CurrentUser(c *gin.Context) {
	user, err := h.service.CurrentUser(c.Request.Context(), CurrentSession(c))
	if err != nil {
		respondError(c, err, "CurrentUser")
		return
	}
	c.JSON(http.StatusOK, user)
}
