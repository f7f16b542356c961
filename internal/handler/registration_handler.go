package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"go-gin-event-registration/internal/model"
	"go-gin-event-registration/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RegistrationHandler struct {
	service service.RegistrationService
}

func NewRegistrationHandler(service service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

func (h *RegistrationHandler) RegisterRoutes(router *gin.RouterGroup, auth *AuthMiddleware) {
	public := router.Group("", auth.Optional())
	{
		public.POST("events/:id/attendees", h.Register)
		public.POST("events/:id/attendees/:registrationId/cancel", h.Cancel)
	}
	operator := router.Group("", auth.Required())
	{
		operator.GET("events/:id/attendees", h.List)
		operator.GET("events/:id/attendees/export", h.Export)
		operator.GET("events/:id/attendees/:registrationId", h.Get)
		operator.PATCH("events/:id/attendees/:registrationId", h.Update)
		operator.DELETE("events/:id/attendees/:registrationId", h.Remove)
	}
}

// ListRegistrationsQuery 參加者列表查詢參數
type ListRegistrationsQuery struct {
	Search string `form:"search"`
	Status string `form:"status"`
}

// CancelRegistrationRequest 匿名取消時需要報名的 email
type CancelRegistrationRequest struct {
	Email string `json:"email"`
}

type registrationPath struct {
	EventID        uuid.UUID
	RegistrationID uuid.UUID
}

func (h *RegistrationHandler) params(c *gin.Context) (registrationPath, bool) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return registrationPath{}, false
	}
	registrationID, ok := ParamUUID(c, "registrationId")
	if !ok {
		return registrationPath{}, false
	}
	return registrationPath{EventID: eventID, RegistrationID: registrationID}, true
}

func (h *RegistrationHandler) Register(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.RegisterParams
	if err := BindJson(c, &req); err != nil {
		return
	}
	created, err := h.service.Register(c.Request.Context(), eventID, req)
	if err != nil {
		respondError(c, err, "Register")
		return
	}
	c.JSON(http.StatusCreated, model.NewRegistrationResponse(created))
}

func (h *RegistrationHandler) List(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	var query ListRegistrationsQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	filter := model.RegistrationFilter{Search: query.Search}
	if query.Status != "" {
		status := model.RegistrationStatus(query.Status)
		filter.Status = &status
	}

	registrations, err := h.service.List(c.Request.Context(), eventID, filter, CurrentSession(c))
	if err != nil {
		respondError(c, err, "ListRegistrations")
		return
	}

	resp := make([]model.RegistrationResponse, 0, len(registrations))
	for _, r := range registrations {
		resp = append(resp, model.NewRegistrationResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RegistrationHandler) Get(c *gin.Context) {
	p, ok := h.params(c)
	if !ok {
		return
	}
	reg, err := h.service.Get(c.Request.Context(), p.EventID, p.RegistrationID, CurrentSession(c))
	if err != nil {
		respondError(c, err, "GetRegistration")
		return
	}
	c.JSON(http.StatusOK, model.NewRegistrationResponse(reg))
}

func (h *RegistrationHandler) Update(c *gin.Context) {
	p, ok := h.params(c)
	if !ok {
		return
	}
	var req model.UpdateRegistrationRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	updated, err := h.service.Update(c.Request.Context(), p.EventID, p.RegistrationID, req.Status, CurrentSession(c))
	if err != nil {
		respondError(c, err, "UpdateRegistration")
		return
	}
	c.JSON(http.StatusOK, model.NewRegistrationResponse(updated))
}

func (h *RegistrationHandler) Cancel(c *gin.Context) {
	p, ok := h.params(c)
	if !ok {
		return
	}
	var req CancelRegistrationRequest
	// 管理者取消時 body 可以為空
	if c.Request.ContentLength > 0 {
		if err := BindJson(c, &req); err != nil {
			return
		}
	}
	cancelled, err := h.service.Cancel(c.Request.Context(), p.EventID, p.RegistrationID, CurrentSession(c), req.Email)
	if err != nil {
		respondError(c, err, "CancelRegistration")
		return
	}
	c.JSON(http.StatusOK, model.NewRegistrationResponse(cancelled))
}

func (h *RegistrationHandler) Remove(c *gin.Context) {
	p, ok := h.params(c)
	if !ok {
		return
	}
	if err := h.service.Remove(c.Request.Context(), p.EventID, p.RegistrationID, CurrentSession(c)); err != nil {
		respondError(c, err, "RemoveRegistration")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RegistrationHandler) Export(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	// 先寫入 buffer，匯出失敗時才能回傳錯誤響應
	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), eventID, CurrentSession(c), &buf); err != nil {
		respondError(c, err, "ExportRegistrations")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendees-%s.csv"`, eventID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
