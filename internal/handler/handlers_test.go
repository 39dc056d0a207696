package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"SafeHaven/internal/auth"
	"SafeHaven/internal/directory"
	"SafeHaven/internal/dispatch"
	"SafeHaven/internal/escalation"
	"SafeHaven/internal/models"
	"SafeHaven/internal/store"
	"SafeHaven/pkg/metrics"
	"SafeHaven/pkg/middleware"
	"SafeHaven/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testMetrics = metrics.NewMetrics()

// tokenVerifier maps literal bearer tokens to identities so tests do
// not sign real JWTs.
type tokenVerifier map[string]auth.Identity

func (v tokenVerifier) Verify(token string) (*auth.Identity, error) {
	identity, ok := v[token]
	if !ok {
		return nil, fmt.Errorf("unknown token")
	}
	return &identity, nil
}

func userToken(id uint) string      { return fmt.Sprintf("user-%d", id) }
func responderToken(id uint) string { return fmt.Sprintf("security-%d", id) }

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	tokens tokenVerifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := util.OpenDatabase("", "")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Responder{}, &models.Alert{}, &models.RoutingHistory{}))

	alerts := store.NewAlertStore(db)
	profiles := store.NewProfileStore(db)
	dir := directory.New(db)
	sched := escalation.NewScheduler(escalation.Config{
		Timeout:     3 * time.Minute,
		MaxAttempts: 3,
	}, alerts, dir, nil, testMetrics, nil)
	t.Cleanup(sched.Stop)
	engine := dispatch.NewEngine(alerts, profiles, dir, sched, nil, nil, testMetrics)

	tokens := tokenVerifier{}
	h := NewHandlers(db, engine, alerts, profiles, tokens, middleware.IdempotencyConfig{TTL: time.Minute})

	router := gin.New()
	h.Register(router.Group("/api"))

	return &testServer{router: router, db: db, tokens: tokens}
}

func (s *testServer) seedUser(t *testing.T) *models.User {
	t.Helper()
	u := &models.User{
		Email:       "maria@example.com",
		FullName:    "Maria Silva",
		PhoneNumber: "+5511988887777",
	}
	require.NoError(t, s.db.Create(u).Error)
	s.tokens[userToken(u.ID)] = auth.Identity{ID: u.ID, Role: auth.RoleUser}
	return u
}

func (s *testServer) seedResponder(t *testing.T, name string, lat float64) *models.Responder {
	t.Helper()
	lon := 0.0
	r := &models.Responder{
		CompanyName: name,
		Email:       name + "@example.com",
		Latitude:    &lat,
		Longitude:   &lon,
		Available:   true,
	}
	require.NoError(t, s.db.Create(r).Error)
	s.tokens[responderToken(r.ID)] = auth.Identity{ID: r.ID, Role: auth.RoleResponder}
	return r
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

var idemSeq atomic.Uint64

func (s *testServer) createAlert(t *testing.T, user *models.User) uint {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/alerts", userToken(user.ID),
		gin.H{"latitude": 0.0, "longitude": 0.0},
		"Idempotency-Key", fmt.Sprintf("key-%d", idemSeq.Add(1)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Alert models.Alert `json:"alert"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Alert.ID
}

func TestCreateAlertEndpoint(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t)
	near := s.seedResponder(t, "near", 0.018)
	s.seedResponder(t, "far", 0.09)

	w := s.do(t, http.MethodPost, "/api/alerts", userToken(user.ID),
		gin.H{"latitude": 0.0, "longitude": 0.0}, "Idempotency-Key", "abc-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Alert           models.Alert `json:"alert"`
		Message         string       `json:"message"`
		SecurityCompany struct {
			Name     string `json:"name"`
			Distance string `json:"distance"`
		} `json:"security_company"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, models.StatusPending, body.Alert.Status)
	assert.Equal(t, near.ID, body.Alert.ResponderID)
	assert.Equal(t, "Alert sent successfully", body.Message)
	assert.Equal(t, near.CompanyName, body.SecurityCompany.Name)
	assert.True(t, strings.HasSuffix(body.SecurityCompany.Distance, " km"))
}

func TestCreateAlertDuplicateRejected(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t)
	s.seedResponder(t, "near", 0.018)

	payload := gin.H{"latitude": 0.0, "longitude": 0.0}
	w := s.do(t, http.MethodPost, "/api/alerts", userToken(user.ID), payload, "Idempotency-Key", "same-key")
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/api/alerts", userToken(user.ID), payload, "Idempotency-Key", "same-key")
	assert.Equal(t, http.StatusConflict, w.Code)

	var count int64
	require.NoError(t, s.db.Model(&models.Alert{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateAlertResubmitAfterUnavailable(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t)

	payload := gin.H{"latitude": 0.0, "longitude": 0.0}
	w := s.do(t, http.MethodPost, "/api/alerts", userToken(user.ID), payload, "Idempotency-Key", "sos-1")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	// a company comes online; the resubmission must go through
	s.seedResponder(t, "near", 0.018)

	w = s.do(t, http.MethodPost, "/api/alerts", userToken(user.ID), payload, "Idempotency-Key", "sos-1")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateAlertIdenticalBodiesAcrossUsers(t *testing.T) {
	s := newTestServer(t)
	userA := s.seedUser(t)
	userB := &models.User{Email: "joao@example.com", FullName: "Joao Souza"}
	require.NoError(t, s.db.Create(userB).Error)
	s.tokens[userToken(userB.ID)] = auth.Identity{ID: userB.ID, Role: auth.RoleUser}
	s.seedResponder(t, "near", 0.018)

	// no Idempotency-Key: dedup falls back to a body hash, which must
	// not swallow a second user's emergency
	payload := gin.H{"latitude": 0.0, "longitude": 0.0}
	w := s.do(t, http.MethodPost, "/api/alerts", userToken(userA.ID), payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/alerts", userToken(userB.ID), payload)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/alerts", userToken(userA.ID), payload)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateAlertRequiresUserRole(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(t)
	r := s.seedResponder(t, "near", 0.018)

	w := s.do(t, http.MethodPost, "/api/alerts", responderToken(r.ID), gin.H{"latitude": 0.0, "longitude": 0.0})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/alerts", "", gin.H{"latitude": 0.0, "longitude": 0.0})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAlertNoCoverage(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t)

	w := s.do(t, http.MethodPost, "/api/alerts", userToken(user.ID),
		gin.H{"latitude": 0.0, "longitude": 0.0}, "Idempotency-Key", "k1")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "No available security companies")
}

func TestCreateAlertMissingCoordinates(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t)
	s.seedResponder(t, "near", 0.018)

	w := s.do(t, http.MethodPost, "/api/alerts", userToken(user.ID),
		gin.H{"latitude": 0.0}, "Idempotency-Key", "k2")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing location data")
}

func TestGetAlertAuthorization(t *testing.T) {
	s := newTestServer(t)
	owner := s.seedUser(t)
	other := &models.User{Email: "other@example.com", FullName: "Other"}
	require.NoError(t, s.db.Create(other).Error)
	s.tokens[userToken(other.ID)] = auth.Identity{ID: other.ID, Role: auth.RoleUser}

	assignee := s.seedResponder(t, "near", 0.018)
	stranger := s.seedResponder(t, "far", 0.09)

	alertID := s.createAlert(t, owner)
	path := fmt.Sprintf("/api/alerts/%d", alertID)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, path, userToken(owner.ID), nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, path, responderToken(assignee.ID), nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, path, userToken(other.ID), nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, path, responderToken(stranger.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/alerts/999", userToken(owner.ID), nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/alerts/abc", userToken(owner.ID), nil).Code)
}

func TestUpdateAlertStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t)
	assignee := s.seedResponder(t, "near", 0.018)
	stranger := s.seedResponder(t, "far", 0.09)

	alertID := s.createAlert(t, user)
	path := fmt.Sprintf("/api/alerts/%d/status", alertID)

	w := s.do(t, http.MethodPatch, path, responderToken(stranger.ID), gin.H{"status": "dispatched"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, path, responderToken(assignee.ID), gin.H{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, path, responderToken(assignee.ID), gin.H{"status": "dispatched"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var alert models.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alert))
	assert.Equal(t, models.StatusDispatched, alert.Status)
	assert.NotNil(t, alert.DispatchedAt)

	// users never drive the lifecycle
	w = s.do(t, http.MethodPatch, path, userToken(user.ID), gin.H{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserAlertHistoryEndpoint(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t)
	s.seedResponder(t, "near", 0.018)

	w := s.do(t, http.MethodGet, "/api/alerts/user/history", userToken(user.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	s.createAlert(t, user)
	s.createAlert(t, user)

	w = s.do(t, http.MethodGet, "/api/alerts/user/history", userToken(user.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alerts []models.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	assert.Len(t, alerts, 2)
}

func TestResponderAlertsEndpoint(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t)
	r := s.seedResponder(t, "near", 0.018)

	alertID := s.createAlert(t, user)

	w := s.do(t, http.MethodGet, "/api/responders/alerts", responderToken(r.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alerts []models.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, alertID, alerts[0].ID)

	w = s.do(t, http.MethodGet, "/api/responders/alerts?status=resolved", responderToken(r.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/responders/alerts?status=bogus", responderToken(r.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t)
	r := s.seedResponder(t, "near", 0.018)

	w := s.do(t, http.MethodPatch, "/api/responders/availability", responderToken(r.ID), gin.H{"is_available": false})
	require.Equal(t, http.StatusOK, w.Code)
	var responder models.Responder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &responder))
	assert.False(t, responder.Available)

	// off duty means out of the dispatch pool
	w = s.do(t, http.MethodPost, "/api/alerts", userToken(user.ID),
		gin.H{"latitude": 0.0, "longitude": 0.0}, "Idempotency-Key", "k3")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(t, http.MethodPatch, "/api/responders/availability", responderToken(r.ID), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t)
	r := s.seedResponder(t, "near", 0.018)

	w := s.do(t, http.MethodGet, "/api/users/profile", userToken(user.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.FullName)

	w = s.do(t, http.MethodPut, "/api/users/profile", userToken(user.ID),
		gin.H{"phone_number": "+5511900001111", "emergency_contact_name": "Ana"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "+5511900001111", updated.PhoneNumber)
	assert.Equal(t, "Ana", updated.EmergencyContactName)
	assert.Equal(t, user.FullName, updated.FullName)

	w = s.do(t, http.MethodPut, "/api/responders/profile", responderToken(r.ID),
		gin.H{"coverage_radius_km": 25.0, "push_token": "ExponentPushToken[xyz]"})
	require.Equal(t, http.StatusOK, w.Code)
	var responder models.Responder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &responder))
	assert.Equal(t, 25.0, responder.CoverageRadiusKM)
	assert.Equal(t, "ExponentPushToken[xyz]", responder.PushToken)

	// role fences between the two profile surfaces
	w = s.do(t, http.MethodGet, "/api/users/profile", responderToken(r.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, "/api/responders/profile", userToken(user.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/system/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
