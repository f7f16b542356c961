package handler

import (
	"net/http"
	"time"

	"go-gin-event-registration/internal/model"
	"go-gin-event-registration/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(router *gin.RouterGroup, auth *AuthMiddleware) {
	public := router.Group("", auth.Optional())
	{
		public.GET("events", h.List)
		public.GET("events/:id", h.Get)
	}
	operator := router.Group("", auth.Required())
	{
		operator.POST("events", h.Create)
		operator.PUT("events/:id", h.Update)
		operator.DELETE("events/:id", h.Delete)
		operator.POST("events/:id/transition", h.Transition)
		operator.POST("events/:id/open", h.OpenRegistration)
		operator.POST("events/:id/reminders", h.SendReminders)
		operator.GET("events/:id/statistics", h.Statistics)
	}
}

// ListEventsQuery 活動列表查詢參數
type ListEventsQuery struct {
	Status   string `form:"status"`
	Search   string `form:"search"`
	Category string `form:"category"`
	Sort     string `form:"sort"`
}

// TransitionRequest 活動狀態轉換請求
type TransitionRequest struct {
	Status model.EventStatus `json:"status" binding:"required"`
}

func (h *EventHandler) List(c *gin.Context) {
	var query ListEventsQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	filter := model.EventFilter{
		Search:     query.Search,
		Category:   query.Category,
		SortByDate: query.Sort == "date",
	}
	if query.Status != "" {
		status := model.EventStatus(query.Status)
		filter.Status = &status
	}

	events, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "ListEvents")
		return
	}

	now := time.Now()
	resp := make([]model.EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, model.NewEventResponse(e, now))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EventHandler) Get(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	event, err := h.service.Get(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err, "GetEvent")
		return
	}
	c.JSON(http.StatusOK, model.NewEventResponse(event, time.Now()))
}

func (h *EventHandler) Create(c *gin.Context) {
	var req model.CreateEventParams
	if err := BindJson(c, &req); err != nil {
		return
	}
	created, err := h.service.Create(c.Request.Context(), req, CurrentSession(c))
	if err != nil {
		respondError(c, err, "CreateEvent")
		return
	}
	c.JSON(http.StatusCreated, model.NewEventResponse(created, time.Now()))
}

func (h *EventHandler) Update(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateEventParams
	if err := BindJson(c, &req); err != nil {
		return
	}
	updated, err := h.service.Update(c.Request.Context(), eventID, req, CurrentSession(c))
	if err != nil {
		respondError(c, err, "UpdateEvent")
		return
	}
	c.JSON(http.StatusOK, model.NewEventResponse(updated, time.Now()))
}

func (h *EventHandler) Delete(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), eventID, CurrentSession(c)); err != nil {
		respondError(c, err, "DeleteEvent")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EventHandler) Transition(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	event, err := h.service.Transition(c.Request.Context(), eventID, req.Status, CurrentSession(c))
	if err != nil {
		respondError(c, err, "TransitionEvent")
		return
	}
	c.JSON(http.StatusOK, model.NewEventResponse(event, time.Now()))
}

func (h *EventHandler) OpenRegistration(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	remaining, err := h.service.OpenRegistration(c.Request.Context(), eventID, CurrentSession(c))
	if err != nil {
		respondError(c, err, "OpenRegistration")
		return
	}
	c.JSON(http.StatusOK, gin.H{"remaining_seats": remaining})
}

func (h *EventHandler) SendReminders(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	sent, err := h.service.SendReminders(c.Request.Context(), eventID, CurrentSession(c))
	if err != nil {
		respondError(c, err, "SendReminders")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": sent})
}

func (h *EventHandler) Statistics(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	stats, err := h.service.Statistics(c.Request.Context(), eventID, CurrentSession(c))
	if err != nil {
		respondError(c, err, "EventStatistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}
