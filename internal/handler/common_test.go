package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-gin-event-registration/internal/mocks/services"
	"go-gin-event-registration/internal/model"
	apperrors "go-gin-event-registration/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	InvalidJSON = `{"invalid": json}`

	organizerToken = "organizer-token"
	attendeeToken  = "attendee-token"

	organizerSession = &model.Session{UserID: uuid.New(), Email: "org@example.com", Role: model.UserRoleOrganizer, TokenID: "jti-organizer"}
	attendeeSession  = &model.Session{UserID: uuid.New(), Email: "ada@example.com", Role: model.UserRoleAttendee, TokenID: "jti-attendee"}
)

type testServices struct {
	events        *services.EventServiceMock
	registrations *services.RegistrationServiceMock
	auth          *services.AuthServiceMock
}

func (s *testServices) assertExpectations(t *testing.T) {
	s.events.AssertExpectations(t)
	s.registrations.AssertExpectations(t)
}

func setupTestRouter() (*gin.Engine, *testServices) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	svc := &testServices{
		events:        services.NewEventServiceMock(),
		registrations: services.NewRegistrationServiceMock(),
		auth:          services.NewAuthServiceMock(),
	}
	svc.auth.On("Authenticate", mock.Anything, organizerToken).Return(organizerSession, nil).Maybe()
	svc.auth.On("Authenticate", mock.Anything, attendeeToken).Return(attendeeSession, nil).Maybe()
	svc.auth.On("Authenticate", mock.Anything, mock.Anything).Return(nil, apperrors.ErrUnauthorized).Maybe()

	mw := NewAuthMiddleware(svc.auth)
	api := router.Group("/api/v1")
	NewEventHandler(svc.events).RegisterRoutes(api, mw)
	NewRegistrationHandler(svc.registrations).RegisterRoutes(api, mw)
	NewAuthHandler(svc.auth).RegisterRoutes(api, mw)

	return router, svc
}

// create JSON request body
func createJSONRequest(data interface{}) *bytes.Buffer {
	if s, ok := data.(string); ok {
		return bytes.NewBufferString(s)
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return bytes.NewBuffer([]byte(""))
	}
	return bytes.NewBuffer(jsonData)
}

// create HTTP request with JSON body
func createJSONHTTPRequest(method, url string, data interface{}, token string) *http.Request {
	var req *http.Request
	var err error
	if data == nil {
		req, err = http.NewRequest(method, url, nil)
	} else {
		req, err = http.NewRequest(method, url, createJSONRequest(data))
		req.Header.Set("Content-Type", "application/json")
	}
	if err != nil {
		return nil
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func sampleEvent() *model.Event {
	starts := time.Date(2026, 11, 20, 9, 0, 0, 0, time.UTC)
	return &model.Event{
		ID:          uuid.New(),
		Title:       "Go Conference",
		Description: "A full day of Go talks",
		Location:    "Taipei",
		Category:    "Technology",
		StartsAt:    starts,
		EndsAt:      starts.Add(8 * time.Hour),
		Capacity:    100,
		TicketPrice: 25,
		Status:      model.EventStatusUpcoming,
	}
}

func sampleRegistration(eventID uuid.UUID) *model.Registration {
	return &model.Registration{
		ID:               uuid.New(),
		EventID:          eventID,
		Name:             "Ada Lovelace",
		Email:            "ada@example.com",
		TicketType:       model.TicketTypeStandard,
		Status:           model.RegistrationStatusConfirmed,
		RegistrationDate: time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC),
	}
}
