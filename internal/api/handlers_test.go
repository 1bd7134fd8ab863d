package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/schedule/internal/auth"
	"example.com/schedule/internal/domain"
	"example.com/schedule/internal/schedule"
)

func TestCreateActivitiesMultiDay(t *testing.T) {
	repo := &mockRepo{}
	handler := NewHandler(domain.NewService(repo), 20, 100)

	body := `{
		"title": "Morning run",
		"category": "fitness",
		"day_of_week": ["Monday", "Wednesday"],
		"time_slot": "7:05",
		"duration_min": 45
	}`
	rr := perform(handler, writeRequest(http.MethodPost, "/v1/activities", body))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp CreateActivitiesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items got %d", len(resp.Items))
	}
	if resp.Items[0].Start != "07:05" {
		t.Fatalf("expected normalized time_slot 07:05 got %s", resp.Items[0].Start)
	}
	if !resp.Items[0].Recurring {
		t.Fatalf("multi-day create must produce recurring activities")
	}
	if resp.Items[0].UserID != "user-1" || resp.Items[0].TenantID != "tenant-1" {
		t.Fatalf("identity must come from the token, got %s/%s", resp.Items[0].TenantID, resp.Items[0].UserID)
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected 2 persisted aggregates got %d", len(repo.created))
	}
}

func TestCreateActivitiesSingleDayString(t *testing.T) {
	repo := &mockRepo{}
	handler := NewHandler(domain.NewService(repo), 20, 100)

	body := `{
		"title": "Dentist",
		"day_of_week": "Friday",
		"time_slot": "14:00",
		"duration_min": 30,
		"specific_date": "2026-09-04"
	}`
	rr := perform(handler, writeRequest(http.MethodPost, "/v1/activities", body))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp CreateActivitiesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item got %d", len(resp.Items))
	}
	if resp.Items[0].Recurring {
		t.Fatalf("dated activity must not be recurring")
	}
	if resp.Items[0].Date == nil || *resp.Items[0].Date != "2026-09-04" {
		t.Fatalf("unexpected specific_date %v", resp.Items[0].Date)
	}
}

func TestCreateActivitiesConflict(t *testing.T) {
	repo := &mockRepo{stored: []domain.ActivityAggregate{storedActivity()}}
	handler := NewHandler(domain.NewService(repo), 20, 100)

	body := `{
		"title": "Stretching",
		"day_of_week": "Monday",
		"time_slot": "09:30",
		"duration_min": 30
	}`
	rr := perform(handler, writeRequest(http.MethodPost, "/v1/activities", body))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Type     string       `json:"type"`
		Conflict ConflictView `json:"conflict"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Type != "scheduling_conflict" {
		t.Fatalf("unexpected error type %s", resp.Type)
	}
	if resp.Conflict.Title != "Morning run" || resp.Conflict.Day != "Monday" {
		t.Fatalf("unexpected conflict %+v", resp.Conflict)
	}
	if resp.Conflict.SuggestedTime != "10:00" {
		t.Fatalf("expected suggested_time 10:00 got %q", resp.Conflict.SuggestedTime)
	}
	if len(repo.created) != 0 {
		t.Fatalf("conflicting create must not persist, got %d aggregates", len(repo.created))
	}
}

func TestCreateActivitiesValidation(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}), 20, 100)

	cases := map[string]string{
		"missing title":    `{"day_of_week": "Monday", "time_slot": "09:00", "duration_min": 30}`,
		"unknown day":      `{"title": "x", "day_of_week": "Funday", "time_slot": "09:00", "duration_min": 30}`,
		"bad clock":        `{"title": "x", "day_of_week": "Monday", "time_slot": "9h00", "duration_min": 30}`,
		"out of range":     `{"title": "x", "day_of_week": "Monday", "time_slot": "24:00", "duration_min": 30}`,
		"zero duration":    `{"title": "x", "day_of_week": "Monday", "time_slot": "09:00", "duration_min": 0}`,
		"bad date":         `{"title": "x", "day_of_week": "Monday", "time_slot": "09:00", "duration_min": 30, "specific_date": "next tuesday"}`,
		"empty day list":   `{"title": "x", "day_of_week": [], "time_slot": "09:00", "duration_min": 30}`,
		"day wrong type":   `{"title": "x", "day_of_week": 5, "time_slot": "09:00", "duration_min": 30}`,
	}
	for name, body := range cases {
		rr := perform(handler, writeRequest(http.MethodPost, "/v1/activities", body))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d: %s", name, rr.Code, rr.Body.String())
		}
	}
}

func TestPreviewScheduleReportsConflictWithoutPersisting(t *testing.T) {
	repo := &mockRepo{stored: []domain.ActivityAggregate{storedActivity()}}
	handler := NewHandler(domain.NewService(repo), 20, 100)

	body := `{
		"title": "Stretching",
		"day_of_week": "Monday",
		"time_slot": "09:30",
		"duration_min": 30
	}`
	rr := perform(handler, readRequest(http.MethodPost, "/v1/schedule/preview", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp PreviewResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OK {
		t.Fatalf("expected conflict verdict")
	}
	if resp.Conflict == nil || resp.Conflict.SuggestedTime != "10:00" {
		t.Fatalf("unexpected conflict payload %+v", resp.Conflict)
	}
	if len(repo.created) != 0 {
		t.Fatalf("preview must not persist")
	}
}

func TestPreviewScheduleClean(t *testing.T) {
	repo := &mockRepo{stored: []domain.ActivityAggregate{storedActivity()}}
	handler := NewHandler(domain.NewService(repo), 20, 100)

	body := `{
		"title": "Stretching",
		"day_of_week": "Monday",
		"time_slot": "10:00",
		"duration_min": 30
	}`
	rr := perform(handler, readRequest(http.MethodPost, "/v1/schedule/preview", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp PreviewResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.Conflict != nil {
		t.Fatalf("expected clean verdict, got %+v", resp)
	}
}

func TestRescheduleClearsDateWithExplicitNull(t *testing.T) {
	stored := storedActivity()
	date := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	stored.Recurring = false
	stored.Date = &date
	repo := &mockRepo{stored: []domain.ActivityAggregate{stored}}
	handler := NewHandler(domain.NewService(repo), 20, 100)

	rr := perform(handler, writeRequest(http.MethodPatch, "/v1/activities/act-1", `{"specific_date": null}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp ActivityView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Recurring || resp.Date != nil {
		t.Fatalf("explicit null date must make the activity recurring, got %+v", resp)
	}
	if repo.updated == nil {
		t.Fatalf("expected repo update")
	}
}

func TestRescheduleAbsentDateKeepsStored(t *testing.T) {
	stored := storedActivity()
	date := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	stored.Recurring = false
	stored.Date = &date
	repo := &mockRepo{stored: []domain.ActivityAggregate{stored}}
	handler := NewHandler(domain.NewService(repo), 20, 100)

	rr := perform(handler, writeRequest(http.MethodPatch, "/v1/activities/act-1", `{"title": "Evening run"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp ActivityView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Title != "Evening run" {
		t.Fatalf("unexpected title %s", resp.Title)
	}
	if resp.Recurring || resp.Date == nil || *resp.Date != "2026-09-07" {
		t.Fatalf("absent specific_date must keep the stored date, got %+v", resp)
	}
}

func TestRescheduleUnknownActivity(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}), 20, 100)

	rr := perform(handler, writeRequest(http.MethodPatch, "/v1/activities/missing", `{"title": "x"}`))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestToggleCompletion(t *testing.T) {
	repo := &mockRepo{stored: []domain.ActivityAggregate{storedActivity()}}
	handler := NewHandler(domain.NewService(repo), 20, 100)

	rr := perform(handler, writeRequest(http.MethodPost, "/v1/activities/act-1/completion", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp ActivityView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Completed {
		t.Fatalf("expected completion toggled on")
	}
	if repo.completedID != "act-1" {
		t.Fatalf("unexpected completion target %s", repo.completedID)
	}
}

func TestListActivitiesByDay(t *testing.T) {
	repo := &mockRepo{stored: []domain.ActivityAggregate{storedActivity()}}
	handler := NewHandler(domain.NewService(repo), 20, 100)

	rr := perform(handler, readRequest(http.MethodGet, "/v1/activities?day=Monday", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp ListActivitiesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ActivityID != "act-1" {
		t.Fatalf("unexpected items %+v", resp.Items)
	}

	rr = perform(handler, readRequest(http.MethodGet, "/v1/activities?day=Blursday", ""))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown day got %d", rr.Code)
	}
}

func TestListActivitiesCapsLimit(t *testing.T) {
	repo := &mockRepo{stored: []domain.ActivityAggregate{storedActivity()}}
	handler := NewHandler(domain.NewService(repo), 20, 100)

	rr := perform(handler, readRequest(http.MethodGet, "/v1/activities?limit=9999", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if repo.lastLimit != 100 {
		t.Fatalf("expected limit capped at 100 got %d", repo.lastLimit)
	}
}

func TestDeleteActivity(t *testing.T) {
	repo := &mockRepo{stored: []domain.ActivityAggregate{storedActivity()}}
	handler := NewHandler(domain.NewService(repo), 20, 100)

	rr := perform(handler, writeRequest(http.MethodDelete, "/v1/activities/act-1", ""))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d: %s", rr.Code, rr.Body.String())
	}
	if repo.deletedID != "act-1" {
		t.Fatalf("unexpected delete target %s", repo.deletedID)
	}
}

func TestMutationsRequireWriteScope(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}), 20, 100)

	body := `{"title": "x", "day_of_week": "Monday", "time_slot": "09:00", "duration_min": 30}`
	rr := perform(handler, readRequest(http.MethodPost, "/v1/activities", body))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}), 20, 100)

	req := httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
	rr := perform(handler, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d: %s", rr.Code, rr.Body.String())
	}
}

func storedActivity() domain.ActivityAggregate {
	now := time.Date(2026, time.August, 31, 8, 0, 0, 0, time.UTC)
	return domain.ActivityAggregate{
		ID:          "act-1",
		TenantID:    "tenant-1",
		UserID:      "user-1",
		Title:       "Morning run",
		Category:    "fitness",
		Day:         schedule.Monday,
		Start:       "09:00",
		DurationMin: 60,
		Recurring:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func perform(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func writeRequest(method, target, body string) *http.Request {
	return authedRequest(method, target, body, auth.ScopeScheduleWrite)
}

func readRequest(method, target, body string) *http.Request {
	return authedRequest(method, target, body, auth.ScopeScheduleRead)
}

func authedRequest(method, target, body string, scopes ...string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	scopeSet := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		scopeSet[scope] = struct{}{}
	}
	claims := &auth.Claims{
		Subject:   "user-1",
		TenantID:  "tenant-1",
		Scopes:    scopeSet,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

type mockRepo struct {
	stored      []domain.ActivityAggregate
	created     []domain.ActivityAggregate
	updated     *domain.ActivityAggregate
	completedID string
	deletedID   string
	lastLimit   int
}

func (m *mockRepo) CreateAll(ctx context.Context, aggregates []domain.ActivityAggregate) error {
	m.created = append(m.created, aggregates...)
	return nil
}

func (m *mockRepo) Get(ctx context.Context, tenantID, activityID string) (*domain.ActivityAggregate, error) {
	for _, agg := range m.stored {
		if agg.TenantID == tenantID && agg.ID == activityID {
			copied := agg
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) ListByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityAggregate, *domain.Cursor, error) {
	m.lastLimit = limit
	out := make([]domain.ActivityAggregate, 0, len(m.stored))
	for _, agg := range m.stored {
		if agg.TenantID == tenantID && agg.UserID == userID {
			out = append(out, agg)
		}
	}
	return out, nil, nil
}

func (m *mockRepo) ListByDay(ctx context.Context, tenantID, userID string, day schedule.Weekday) ([]domain.ActivityAggregate, error) {
	out := make([]domain.ActivityAggregate, 0)
	for _, agg := range m.stored {
		if agg.TenantID == tenantID && agg.UserID == userID && agg.Day == day {
			out = append(out, agg)
		}
	}
	return out, nil
}

func (m *mockRepo) Update(ctx context.Context, aggregate domain.ActivityAggregate) error {
	copied := aggregate
	m.updated = &copied
	return nil
}

func (m *mockRepo) SetCompleted(ctx context.Context, tenantID, activityID string, completed bool, updatedAt time.Time) error {
	m.completedID = activityID
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, tenantID, activityID string) error {
	m.deletedID = activityID
	return nil
}
