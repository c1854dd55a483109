/*
handlers_test.go - HTTP tests for the API

Tests for:
- Identity (tokens, fallback user, auth status)
- Vacation lifecycle over HTTP
- Error kind to status mapping
- Day-set submission and read-back
- Approval queue names
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/vacation-tracker/calendar"
	"github.com/warp/vacation-tracker/store/sqlite"
	"github.com/warp/vacation-tracker/vacation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const testSecret = "test-secret"

type testServer struct {
	t       *testing.T
	store   *sqlite.Store
	handler *Handler
	auth    *Authenticator
	router  http.Handler
}

func newTestServer(t *testing.T, fallbackUser string) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zap.NewNop()
	_, err = SeedUsers(context.Background(), store, logger)
	require.NoError(t, err)

	h := NewHandler(store, logger)
	auth := NewAuthenticator(testSecret, fallbackUser, store, logger)
	return &testServer{
		t:       t,
		store:   store,
		handler: h,
		auth:    auth,
		router:  NewRouter(h, auth, Options{CORSOrigins: []string{"http://localhost:5173"}, Logger: logger, Ping: store.Ping}),
	}
}

// do sends a request as user ("" = no token).
func (s *testServer) do(method, path, user string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := s.auth.Token(user, "")
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) create(user, start, end string) vacation.Vacation {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/vacation", user, map[string]string{"startDate": start, "endDate": end})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[vacation.Vacation](s.t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func path(id vacation.ID, action string) string {
	p := "/api/vacation/" + strconv.FormatInt(int64(id), 10)
	if action != "" {
		p += "/" + action
	}
	return p
}

// =============================================================================
// IDENTITY
// =============================================================================

func TestAuthStatus_Unauthenticated(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodGet, "/api/auth/status", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode[AuthStatusResponse](t, rec)
	assert.False(t, resp.Authenticated)
	assert.Equal(t, LoginURL, resp.LoginURL)
}

func TestAuthStatus_TokenNameUpsertsUser(t *testing.T) {
	s := newTestServer(t, "")
	token, err := s.auth.Token("user9", "Nina Novak")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AuthStatusResponse](t, rec)
	assert.True(t, resp.Authenticated)
	require.NotNil(t, resp.User)
	assert.Equal(t, "Nina Novak", resp.User.Name)

	u, err := s.store.FindUser(context.Background(), "user9")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Nina Novak", u.Name)
}

func TestIdentity_RequiredForVacationRoutes(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodGet, "/api/vacation", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentity_WrongSecretRejected(t *testing.T) {
	s := newTestServer(t, "")
	other := NewAuthenticator("another-secret", "", nil, zap.NewNop())
	token, err := other.Token("user1", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/vacation", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentity_TokenWithoutValidExpiryRejected(t *testing.T) {
	s := newTestServer(t, "")
	sign := func(claims jwt.RegisteredClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: claims}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return token
	}
	cases := map[string]string{
		"no expiry": sign(jwt.RegisteredClaims{Subject: "user1"}),
		"expired":   sign(jwt.RegisteredClaims{Subject: "user1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/vacation", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	issued, err := s.auth.Token("user1", "")
	require.NoError(t, err)
	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(issued, claims)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestIdentity_FallbackUser(t *testing.T) {
	s := newTestServer(t, "test-employee")

	rec := s.do(http.MethodPost, "/api/vacation", "", map[string]string{"startDate": "2024-07-01", "endDate": "2024-07-01"})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "test-employee", decode[vacation.Vacation](t, rec).EmployeeID)
}

// =============================================================================
// VACATIONS
// =============================================================================

func TestCreateVacation_ForcesPendingAndUsesCaller(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodPost, "/api/vacation", "user1", map[string]any{
		"employeeId": "someone-else",
		"startDate":  "2024-07-01",
		"endDate":    "2024-07-05",
		"status":     "APPROVED",
		"assignedTo": "user2",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "user1", raw["employeeId"])
	assert.Equal(t, "2024-07-01", raw["startDate"])
	assert.Equal(t, "2024-07-05", raw["endDate"])
	assert.Equal(t, "PENDING", raw["status"])
	assert.Equal(t, "user2", raw["assignedTo"])
	assert.NotContains(t, raw, "deletionReason")
}

func TestCreateVacation_Validation(t *testing.T) {
	s := newTestServer(t, "")

	cases := map[string]any{
		"missing end":    map[string]string{"startDate": "2024-07-01"},
		"bad format":     map[string]string{"startDate": "07/01/2024", "endDate": "2024-07-02"},
		"impossible day": map[string]string{"startDate": "2024-02-30", "endDate": "2024-03-02"},
		"inverted range": map[string]string{"startDate": "2024-07-05", "endDate": "2024-07-01"},
		"not json":       "{",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/vacation", "user1", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, string(vacation.KindValidation), decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestLifecycle_OverHTTP(t *testing.T) {
	s := newTestServer(t, "")
	v := s.create("user1", "2024-07-01", "2024-07-05")

	rec := s.do(http.MethodPost, path(v.ID, "approve"), "user2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, vacation.StatusApproved, decode[vacation.Vacation](t, rec).Status)

	rec = s.do(http.MethodPost, path(v.ID, "request-deletion"), "user1", map[string]string{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[vacation.Vacation](t, rec)
	assert.Equal(t, vacation.StatusPendingDeletion, got.Status)
	assert.Equal(t, "plans changed", *got.DeletionReason)

	rec = s.do(http.MethodPost, path(v.ID, "approve-deletion"), "user2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, vacation.StatusDeleted, decode[vacation.Vacation](t, rec).Status)

	// DELETED is terminal
	rec = s.do(http.MethodPost, path(v.ID, "approve"), "user2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(vacation.KindInvalidState), decode[ErrorResponse](t, rec).Code)
}

func TestRejectAndRejectDeletion(t *testing.T) {
	s := newTestServer(t, "")

	rejected := s.create("user1", "2024-07-01", "2024-07-01")
	rec := s.do(http.MethodPost, path(rejected.ID, "reject"), "user2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vacation.StatusRejected, decode[vacation.Vacation](t, rec).Status)

	kept := s.create("user1", "2024-08-01", "2024-08-01")
	s.do(http.MethodPost, path(kept.ID, "approve"), "user2", nil)
	s.do(http.MethodPost, path(kept.ID, "request-deletion"), "user1", nil)
	rec = s.do(http.MethodPost, path(kept.ID, "reject-deletion"), "user2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, vacation.StatusDeletionRejected, decode[vacation.Vacation](t, rec).Status)
}

func TestRequestDeletion_NonOwnerForbidden(t *testing.T) {
	s := newTestServer(t, "")
	v := s.create("user1", "2024-07-01", "2024-07-05")
	s.do(http.MethodPost, path(v.ID, "approve"), "user2", nil)

	rec := s.do(http.MethodPost, path(v.ID, "request-deletion"), "user2", map[string]string{"reason": "x"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(vacation.KindForbidden), decode[ErrorResponse](t, rec).Code)
}

func TestRequestDeletion_PendingIsInvalidState(t *testing.T) {
	s := newTestServer(t, "")
	v := s.create("user1", "2024-07-01", "2024-07-05")

	rec := s.do(http.MethodPost, path(v.ID, "request-deletion"), "user1", map[string]string{"reason": "x"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(vacation.KindInvalidState), decode[ErrorResponse](t, rec).Code)
}

func TestTransitions_NotFoundAndBadID(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodPost, "/api/vacation/999/approve", "user1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(vacation.KindNotFound), decode[ErrorResponse](t, rec).Code)

	rec = s.do(http.MethodPost, "/api/vacation/abc/approve", "user1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestServer(t, "")
	v := s.create("user1", "2024-07-01", "2024-07-05")

	rec := s.do(http.MethodPut, path(v.ID, ""), "user1", map[string]any{
		"startDate":  "2024-07-02",
		"endDate":    "2024-07-03",
		"assignedTo": "user3",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[vacation.Vacation](t, rec)
	assert.Equal(t, "2024-07-02", updated.StartDate.String())
	assert.Equal(t, "user3", *updated.AssignedTo)

	rec = s.do(http.MethodPut, path(v.ID, ""), "user1", map[string]any{
		"startDate": "2024-07-02",
		"endDate":   "2024-07-03",
		"status":    "pending_deletion",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(vacation.KindInvalidState), decode[ErrorResponse](t, rec).Code)

	rec = s.do(http.MethodDelete, path(v.ID, ""), "user1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/vacation", "user1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]vacation.Vacation](t, rec))
}

func TestUpdate_DeletionRequestOnlyByOwner(t *testing.T) {
	s := newTestServer(t, "")
	v := s.create("user1", "2024-07-01", "2024-07-05")
	s.do(http.MethodPost, path(v.ID, "approve"), "user2", nil)
	body := map[string]any{
		"startDate":      "2024-07-01",
		"endDate":        "2024-07-05",
		"status":         "PENDING_DELETION",
		"deletionReason": "not mine to cancel",
	}

	// GIVEN: user1's approved vacation
	// WHEN: user2 asks for its deletion through PUT
	rec := s.do(http.MethodPut, path(v.ID, ""), "user2", body)

	// THEN: forbidden, the owner can still do it
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.Equal(t, string(vacation.KindForbidden), decode[ErrorResponse](t, rec).Code)

	body["deletionReason"] = "plans changed"
	rec = s.do(http.MethodPut, path(v.ID, ""), "user1", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[vacation.Vacation](t, rec)
	assert.Equal(t, vacation.StatusPendingDeletion, updated.Status)
	require.NotNil(t, updated.DeletionReason)
	assert.Equal(t, "plans changed", *updated.DeletionReason)
}

func TestDays_SubmitAndReadBack(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodPost, "/api/vacation/days", "user1", map[string]any{
		"days": []string{"2024-03-17", "2024-03-15", "2024-03-16", "2024-03-20", "2024-03-25"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]vacation.Vacation](t, rec), 3)

	rec = s.do(http.MethodGet, "/api/vacation/days", "user1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Days   []string `json:"days"`
		Ranges []struct {
			StartDate string `json:"startDate"`
			EndDate   string `json:"endDate"`
		} `json:"ranges"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"2024-03-15", "2024-03-16", "2024-03-17", "2024-03-20", "2024-03-25"}, resp.Days)
	require.Len(t, resp.Ranges, 3)
	assert.Equal(t, "2024-03-15", resp.Ranges[0].StartDate)
	assert.Equal(t, "2024-03-17", resp.Ranges[0].EndDate)

	rec = s.do(http.MethodPost, "/api/vacation/days", "user1", map[string]any{"days": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/vacation/days", "user1", map[string]any{"days": []string{"2024-13-01"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPendingApprovals_ResolvesNames(t *testing.T) {
	s := newTestServer(t, "")
	pending := s.create("user1", "2024-07-01", "2024-07-05")
	approved := s.create("user2", "2024-08-01", "2024-08-01")
	s.do(http.MethodPost, path(approved.ID, "approve"), "user1", nil)

	rec := s.do(http.MethodGet, "/api/vacation/pending-approvals", "user3", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]vacation.PendingVacation](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, pending.ID, list[0].ID)
	assert.Equal(t, "John Doe", list[0].EmployeeName)
}

func TestListForEmployeeAndUsers(t *testing.T) {
	s := newTestServer(t, "")
	s.create("user2", "2024-07-01", "2024-07-01")

	rec := s.do(http.MethodGet, "/api/vacation/employee/user2", "user1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]vacation.Vacation](t, rec), 1)

	rec = s.do(http.MethodGet, "/api/users", "user1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DemoUsers, decode[[]vacation.User](t, rec))
}

// =============================================================================
// MISC
// =============================================================================

func TestCalendar(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodGet, "/api/calendar/2024", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Year  int         `json:"year"`
		Weeks [][7]string `json:"weeks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Weeks, 53)
	assert.Equal(t, "2024-01-01", resp.Weeks[0][0])

	rec = s.do(http.MethodGet, "/api/calendar/zero", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, "")

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil).Code)

	s.create("user1", "2024-07-01", "2024-07-01")
	rec := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vacation_requests_created_total")
	assert.Contains(t, rec.Body.String(), "vacation_http_requests_total")
}

func TestMetrics_UnmatchedRoutesShareOneLabel(t *testing.T) {
	s := newTestServer(t, "")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/nope-7f3a", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/no/such/page-91c2", "", nil).Code)

	rec := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "nope-7f3a")
	assert.NotContains(t, body, "page-91c2")
	assert.Contains(t, body, `route="unmatched"`)
}

func TestSeedVacations_OnePerLiveStatusAndIdempotent(t *testing.T) {
	s := newTestServer(t, "")
	ctx := context.Background()
	today := calendar.MustParse("2024-07-03")

	require.NoError(t, SeedVacations(ctx, s.store, s.handler.Vacations, today, zap.NewNop()))

	all, err := s.store.FindAll(ctx)
	require.NoError(t, err)
	counts := map[vacation.Status]int{}
	for _, v := range all {
		counts[v.Status]++
		assert.True(t, v.StartDate.After(today), "seeded vacation %d starts %s", v.ID, v.StartDate)
	}
	for _, status := range vacation.AllStatuses() {
		if status == vacation.StatusDeleted {
			assert.Zero(t, counts[status])
			continue
		}
		assert.Equal(t, 1, counts[status], string(status))
	}

	// a populated store is left alone
	require.NoError(t, SeedVacations(ctx, s.store, s.handler.Vacations, today, zap.NewNop()))
	again, err := s.store.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, again, len(all))
}

func TestWriteServiceError_Mapping(t *testing.T) {
	h := NewHandler(nil, zap.NewNop())
	cases := []struct {
		err    error
		status int
	}{
		{&vacation.NotFoundError{ID: 1}, http.StatusNotFound},
		{&vacation.ForbiddenError{ID: 1}, http.StatusForbidden},
		{&vacation.TransitionError{ID: 1, From: vacation.StatusDeleted}, http.StatusBadRequest},
		{&vacation.ValidationError{Field: "x", Message: "bad"}, http.StatusBadRequest},
		{&vacation.ConflictError{ID: 1, Expected: vacation.StatusPending}, http.StatusConflict},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		resp := decode[ErrorResponse](t, rec)
		assert.Equal(t, string(vacation.KindOf(tc.err)), resp.Code)
		if tc.status == http.StatusInternalServerError {
			assert.Nil(t, resp.Details)
		}
	}
}
