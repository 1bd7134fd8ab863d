// Package api exposes HTTP handlers for the scheduling service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/schedule/internal/auth"
	"example.com/schedule/internal/domain"
	"example.com/schedule/internal/persistence"
	"example.com/schedule/internal/schedule"
)

const dateLayout = "2006-01-02"

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service      *domain.Service
	defaultLimit int
	maxLimit     int
}

// NewHandler builds a Handler. Zero limits fall back to 20/100.
func NewHandler(service *domain.Service, defaultLimit, maxLimit int) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &Handler{service: service, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/v1/activities/", h.activityByID)
	mux.HandleFunc("/v1/schedule/preview", h.previewSchedule)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createActivities(w, r)
	case http.MethodGet:
		h.listActivities(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/activities/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing activity id")
		return
	}

	if id, ok := strings.CutSuffix(rest, "/completion"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.toggleCompletion(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getActivity(w, r, rest)
	case http.MethodPatch:
		h.rescheduleActivity(w, r, rest)
	case http.MethodDelete:
		h.deleteActivity(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeScheduleWrite)
	if !ok {
		return
	}

	var req CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	date, err := req.date()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	accepted, conflict, err := h.service.ScheduleActivities(r.Context(), domain.ScheduleInput{
		TenantID:    claims.TenantID,
		UserID:      claims.Subject,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Days:        req.Days.weekdays(),
		Start:       req.Start,
		DurationMin: req.DurationMin,
		Date:        date,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if conflict != nil {
		writeConflict(w, conflict)
		return
	}

	items := make([]ActivityView, 0, len(accepted))
	for _, agg := range accepted {
		items = append(items, toActivityView(agg))
	}
	writeJSON(w, http.StatusCreated, CreateActivitiesResponse{Items: items})
}

func (h *Handler) previewSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeScheduleRead, auth.ScopeScheduleWrite)
	if !ok {
		return
	}

	var req CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	date, err := req.date()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	conflict, err := h.service.PreviewSchedule(r.Context(), domain.ScheduleInput{
		TenantID:    claims.TenantID,
		UserID:      claims.Subject,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Days:        req.Days.weekdays(),
		Start:       req.Start,
		DurationMin: req.DurationMin,
		Date:        date,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	resp := PreviewResponse{OK: conflict == nil}
	if conflict != nil {
		view := toConflictView(conflict)
		resp.Conflict = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeScheduleRead, auth.ScopeScheduleWrite)
	if !ok {
		return
	}

	agg, err := h.service.GetActivity(r.Context(), claims.TenantID, claims.Subject, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*agg))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeScheduleRead, auth.ScopeScheduleWrite)
	if !ok {
		return
	}

	var day *schedule.Weekday
	if raw := r.URL.Query().Get("day"); raw != "" {
		parsed := schedule.Weekday(raw)
		if !parsed.Valid() {
			writeError(w, http.StatusBadRequest, "validation_failed", fmt.Sprintf("unknown day %q", raw))
			return
		}
		day = &parsed
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	aggregates, next, err := h.service.ListActivities(r.Context(), claims.TenantID, claims.Subject, day, cursor, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]ActivityView, 0, len(aggregates))
	for _, agg := range aggregates {
		items = append(items, toActivityView(agg))
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) rescheduleActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeScheduleWrite)
	if !ok {
		return
	}

	var req UpdateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	input, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	updated, conflict, err := h.service.RescheduleActivity(r.Context(), claims.TenantID, claims.Subject, id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if conflict != nil {
		writeConflict(w, conflict)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*updated))
}

func (h *Handler) toggleCompletion(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeScheduleWrite)
	if !ok {
		return
	}

	updated, err := h.service.ToggleCompleted(r.Context(), claims.TenantID, claims.Subject, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*updated))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeScheduleWrite)
	if !ok {
		return
	}

	if err := h.service.DeleteActivity(r.Context(), claims.TenantID, claims.Subject, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", fmt.Sprintf("scope %s required", scopes[0]))
	return nil, false
}

// DayList accepts either a single weekday name or a list of names, the
// two shapes the planner UI sends for day_of_week.
type DayList []string

// UnmarshalJSON implements the string-or-array contract.
func (d *DayList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*d = DayList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("day_of_week must be a weekday name or a list of names")
	}
	*d = DayList(many)
	return nil
}

func (d DayList) weekdays() []schedule.Weekday {
	out := make([]schedule.Weekday, 0, len(d))
	for _, name := range d {
		out = append(out, schedule.Weekday(name))
	}
	return out
}

// CreateActivityRequest is the payload for POST /v1/activities and
// POST /v1/schedule/preview.
type CreateActivityRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Days        DayList `json:"day_of_week"`
	Start       string  `json:"time_slot"`
	DurationMin int     `json:"duration_min"`
	Date        *string `json:"specific_date"`
}

// Validate ensures request correctness.
func (r CreateActivityRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if len(r.Days) == 0 {
		return errors.New("day_of_week is required")
	}
	for _, name := range r.Days {
		if !schedule.Weekday(name).Valid() {
			return fmt.Errorf("unknown day %q", name)
		}
	}
	if _, err := schedule.ParseClock(r.Start); err != nil {
		return errors.New("time_slot must be a valid HH:MM value")
	}
	if r.DurationMin <= 0 {
		return errors.New("duration_min must be > 0")
	}
	return nil
}

func (r CreateActivityRequest) date() (*time.Time, error) {
	if r.Date == nil {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, *r.Date)
	if err != nil {
		return nil, fmt.Errorf("specific_date must be a %s date", dateLayout)
	}
	return &parsed, nil
}

// UpdateActivityRequest is the payload for PATCH /v1/activities/{id}.
// Absent fields keep stored values. specific_date is raw so that an
// explicit null (clear the date, make the activity recurring) can be
// told apart from the field being absent.
type UpdateActivityRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Day         *string         `json:"day_of_week"`
	Start       *string         `json:"time_slot"`
	DurationMin *int            `json:"duration_min"`
	Date        json.RawMessage `json:"specific_date"`
}

func (r UpdateActivityRequest) toInput() (domain.RescheduleInput, error) {
	input := domain.RescheduleInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Start:       r.Start,
		DurationMin: r.DurationMin,
	}

	if r.Day != nil {
		day := schedule.Weekday(*r.Day)
		if !day.Valid() {
			return domain.RescheduleInput{}, fmt.Errorf("unknown day %q", *r.Day)
		}
		input.Day = &day
	}
	if r.Start != nil {
		if _, err := schedule.ParseClock(*r.Start); err != nil {
			return domain.RescheduleInput{}, errors.New("time_slot must be a valid HH:MM value")
		}
	}
	if r.DurationMin != nil && *r.DurationMin <= 0 {
		return domain.RescheduleInput{}, errors.New("duration_min must be > 0")
	}

	if len(r.Date) > 0 {
		input.DateSet = true
		if string(r.Date) != "null" {
			var raw string
			if err := json.Unmarshal(r.Date, &raw); err != nil {
				return domain.RescheduleInput{}, fmt.Errorf("specific_date must be a %s date or null", dateLayout)
			}
			parsed, err := time.Parse(dateLayout, raw)
			if err != nil {
				return domain.RescheduleInput{}, fmt.Errorf("specific_date must be a %s date or null", dateLayout)
			}
			input.Date = &parsed
		}
	}
	return input, nil
}

// ActivityView exposes full details about an activity.
type ActivityView struct {
	ActivityID  string    `json:"activity_id"`
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Day         string    `json:"day_of_week"`
	Start       string    `json:"time_slot"`
	DurationMin int       `json:"duration_min"`
	Recurring   bool      `json:"recurring"`
	Date        *string   `json:"specific_date,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateActivitiesResponse lists the persisted candidates, one per
// requested day.
type CreateActivitiesResponse struct {
	Items []ActivityView `json:"items"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ConflictView names the blocking activity and the optional suggested
// alternative start.
type ConflictView struct {
	Title         string `json:"title"`
	Day           string `json:"day_of_week"`
	Start         string `json:"time_slot"`
	SuggestedTime string `json:"suggested_time,omitempty"`
}

// PreviewResponse is the live draft verdict.
type PreviewResponse struct {
	OK       bool          `json:"ok"`
	Conflict *ConflictView `json:"conflict,omitempty"`
}

func toConflictView(c *schedule.Conflict) ConflictView {
	return ConflictView{
		Title:         c.With.Title,
		Day:           string(c.Day),
		Start:         c.With.Start,
		SuggestedTime: c.Suggestion,
	}
}

func writeConflict(w http.ResponseWriter, c *schedule.Conflict) {
	view := toConflictView(c)
	payload := struct {
		Type     string       `json:"type"`
		Detail   string       `json:"detail"`
		Conflict ConflictView `json:"conflict"`
	}{
		Type:     "scheduling_conflict",
		Detail:   fmt.Sprintf("%q already occupies %s at %s", view.Title, view.Day, view.Start),
		Conflict: view,
	}
	writeJSON(w, http.StatusConflict, payload)
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidClock),
		errors.Is(err, schedule.ErrInvalidDay),
		errors.Is(err, schedule.ErrInvalidDuration),
		errors.Is(err, schedule.ErrNoDays):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "not_found", "activity not found")
	case errors.Is(err, schedule.ErrInvalidClock),
		errors.Is(err, schedule.ErrInvalidDay),
		errors.Is(err, schedule.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toActivityView(agg domain.ActivityAggregate) ActivityView {
	var date *string
	if agg.Date != nil {
		formatted := agg.Date.Format(dateLayout)
		date = &formatted
	}
	return ActivityView{
		ActivityID:  agg.ID,
		TenantID:    agg.TenantID,
		UserID:      agg.UserID,
		Title:       agg.Title,
		Description: agg.Description,
		Category:    agg.Category,
		Day:         string(agg.Day),
		Start:       agg.Start,
		DurationMin: agg.DurationMin,
		Recurring:   agg.Recurring,
		Date:        date,
		Completed:   agg.Completed,
		CreatedAt:   agg.CreatedAt,
		UpdatedAt:   agg.UpdatedAt,
	}
}
