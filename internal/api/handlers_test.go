// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/engine"
	"github.com/tomtom215/tablemates/internal/recommend/recordtest"
)

var midtown = recommend.Location{Latitude: 40.7580, Longitude: -73.9855}

func near(dLat float64) recommend.Location {
	return recommend.Location{Latitude: midtown.Latitude + dLat, Longitude: midtown.Longitude}
}

func testStore() *recordtest.Store {
	loc := midtown
	italian := &recommend.Preferences{Cuisines: []string{"italian"}, PriceMin: 1, PriceMax: 3, MaxDistanceKm: 10}
	s := &recordtest.Store{
		Users: []recommend.User{
			{ID: 1, Name: "ana", Location: &loc, ActivityScore: 1, OpenToMeet: true, Preferences: italian},
			{ID: 2, Name: "ben", Location: &loc, ActivityScore: 1, OpenToMeet: true, Preferences: italian},
			{ID: 3, Name: "cy", ActivityScore: 0},
		},
		Venues: []recommend.Venue{
			{ID: 10, Name: "Trattoria", Category: "restaurant", Cuisine: "italian", Location: near(0.005), PriceLevel: 2, Rating: 4.5, Popularity: 0.8, Capacity: 20},
			{ID: 11, Name: "Osteria", Category: "restaurant", Cuisine: "italian", Location: near(0.01), PriceLevel: 2, Rating: 4.0, Popularity: 0.5, Capacity: 4},
			{ID: 12, Name: "Dive", Category: "bar", Location: near(0.015), PriceLevel: 1, Rating: 3.0, Capacity: 100},
		},
		Friendships: []recommend.Friendship{{UserID: 1, FriendID: 2}, {UserID: 2, FriendID: 1}},
	}
	for _, u := range []int64{1, 2} {
		s.Interact(u, 10, recommend.InteractionLike)
		s.Interact(u, 11, recommend.InteractionSave)
	}
	s.Interact(3, 12, recommend.InteractionView)
	return s
}

func testEngine(t *testing.T, s *recordtest.Store) *engine.Engine {
	t.Helper()
	cfg := recommend.DefaultConfig()
	cfg.Model.EmbeddingDim = 8
	cfg.Model.NumLayers = 2
	cfg.Training.Epochs = 5
	cfg.Training.BatchSize = 4
	e, err := engine.New(cfg, s, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	return e
}

type fakeTrainer struct{ err error }

func (f *fakeTrainer) Trigger(context.Context) error { return f.err }

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

func newTestRouter(t *testing.T, trainer ModelTrainer, db Pinger) http.Handler {
	t.Helper()
	h := NewHandler(testEngine(t, testStore()), trainer, db, "test")
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true, RateLimitWindow: time.Minute})
	return NewRouter(h, mw, 5*time.Second).Setup()
}

type testResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *APIError       `json:"error"`
}

func do(t *testing.T, h http.Handler, method, target, body string) (int, testResponse) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp testResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: decode response: %v (%s)", method, target, err, rec.Body.String())
		}
	}
	return rec.Code, resp
}

func TestVenueRecommendations(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil, &fakePinger{})

	tests := []struct {
		name     string
		target   string
		wantCode int
		wantErr  string
	}{
		{"ok", "/api/v1/users/1/venues", http.StatusOK, ""},
		{"category filter", "/api/v1/users/1/venues?category=bar&limit=5", http.StatusOK, ""},
		{"unknown user", "/api/v1/users/99/venues", http.StatusNotFound, "NOT_FOUND"},
		{"bad id", "/api/v1/users/abc/venues", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"limit too large", "/api/v1/users/1/venues?limit=100", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad min rating", "/api/v1/users/1/venues?min_rating=9", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"non-numeric limit", "/api/v1/users/1/venues?limit=ten", http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, resp := do(t, router, http.MethodGet, tt.target, "")
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d", code, tt.wantCode)
			}
			if tt.wantErr != "" {
				if resp.Error == nil || resp.Error.Code != tt.wantErr {
					t.Errorf("error = %+v, want code %s", resp.Error, tt.wantErr)
				}
			}
		})
	}
}

func TestVenueRecommendations_Rounded(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil, &fakePinger{})
	code, resp := do(t, router, http.MethodGet, "/api/v1/users/1/venues", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	var data struct {
		Recommendations []recommend.VenueRecommendation `json:"recommendations"`
		Count           int                             `json:"count"`
		ModelLoaded     bool                            `json:"model_loaded"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.ModelLoaded {
		t.Error("model_loaded = true before training")
	}
	if data.Count == 0 || len(data.Recommendations) != data.Count {
		t.Fatalf("count = %d, len = %d", data.Count, len(data.Recommendations))
	}
	for _, rec := range data.Recommendations {
		if rec.FinalScore != roundTo(rec.FinalScore, scorePlaces) {
			t.Errorf("final score %v not rounded to 3 places", rec.FinalScore)
		}
		if rec.DistanceKm == nil {
			t.Errorf("venue %d: distance missing for located user", rec.Venue.ID)
		} else if *rec.DistanceKm != roundTo(*rec.DistanceKm, distancePlaces) {
			t.Errorf("distance %v not rounded to 2 places", *rec.DistanceKm)
		}
		if rec.GNNScore != nil {
			t.Errorf("venue %d: gnn score set without a model", rec.Venue.ID)
		}
	}
}

func TestCompatibleUsers(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil, &fakePinger{})

	code, resp := do(t, router, http.MethodGet, "/api/v1/users/1/companions?limit=5", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", code, resp.Error)
	}
	var data struct {
		Companions []recommend.CompatibleUser `json:"companions"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Companions) == 0 || data.Companions[0].User.ID != 2 || !data.Companions[0].IsFriend {
		t.Errorf("companions = %+v, want friend 2 first", data.Companions)
	}
	for _, c := range data.Companions {
		if c.User.ID == 1 {
			t.Error("requester listed as own companion")
		}
	}

	if code, _ := do(t, router, http.MethodGet, "/api/v1/users/1/companions?venue_id=999", ""); code != http.StatusNotFound {
		t.Errorf("unknown venue status = %d, want 404", code)
	}
	if code, _ := do(t, router, http.MethodGet, "/api/v1/users/1/companions?venue_id=-3", ""); code != http.StatusBadRequest {
		t.Errorf("negative venue status = %d, want 400", code)
	}
}

func TestExpressInterestAndInterestedUsers(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil, &fakePinger{})

	code, resp := do(t, router, http.MethodPost, "/api/v1/venues/10/interest", `{"user_id":2,"preferred_time_slot":"dinner"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", code, resp.Error)
	}
	var first struct {
		Interest recommend.VenueInterest `json:"interest"`
	}
	if err := json.Unmarshal(resp.Data, &first); err != nil {
		t.Fatal(err)
	}
	if first.Interest.InterestScore != recommend.NewInterestScore || !first.Interest.Explicit {
		t.Errorf("interest = %+v", first.Interest)
	}

	code, resp = do(t, router, http.MethodGet, "/api/v1/venues/10/interested?user_id=1", "")
	if code != http.StatusOK {
		t.Fatalf("interested status = %d", code)
	}
	var data struct {
		Users []recommend.InterestedUser `json:"users"`
		Count int                        `json:"count"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Count != 1 || data.Users[0].User.ID != 2 || data.Users[0].PreferredTimeSlot != "dinner" {
		t.Errorf("interested = %+v", data.Users)
	}
	if data.Users[0].Compatibility == nil {
		t.Error("compatibility missing with requester set")
	}

	tests := []struct {
		name     string
		target   string
		body     string
		wantCode int
	}{
		{"unknown field", "/api/v1/venues/10/interest", `{"user_id":1,"color":"red"}`, http.StatusBadRequest},
		{"missing user", "/api/v1/venues/10/interest", `{}`, http.StatusBadRequest},
		{"bad slot", "/api/v1/venues/10/interest", `{"user_id":1,"preferred_time_slot":"midnight"}`, http.StatusBadRequest},
		{"malformed", "/api/v1/venues/10/interest", `{"user_id":`, http.StatusBadRequest},
		{"unknown venue", "/api/v1/venues/999/interest", `{"user_id":1}`, http.StatusNotFound},
		{"unknown user", "/api/v1/venues/10/interest", `{"user_id":99}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		if code, _ := do(t, router, http.MethodPost, tt.target, tt.body); code != tt.wantCode {
			t.Errorf("%s: status = %d, want %d", tt.name, code, tt.wantCode)
		}
	}
}

func TestRecordInteraction(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil, &fakePinger{})

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"view with duration", `{"user_id":1,"venue_id":12,"interaction_type":"view","duration_seconds":30}`, http.StatusCreated},
		{"like", `{"user_id":1,"venue_id":12,"interaction_type":"like"}`, http.StatusCreated},
		{"unknown type", `{"user_id":1,"venue_id":12,"interaction_type":"poke"}`, http.StatusBadRequest},
		{"negative duration", `{"user_id":1,"venue_id":12,"interaction_type":"view","duration_seconds":-1}`, http.StatusBadRequest},
		{"unknown venue", `{"user_id":1,"venue_id":999,"interaction_type":"view"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := do(t, router, http.MethodPost, "/api/v1/interactions", tt.body)
			if code != tt.wantCode {
				t.Errorf("status = %d, want %d (error %+v)", code, tt.wantCode, resp.Error)
			}
		})
	}
}

func TestGroupVenues(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil, &fakePinger{})

	code, resp := do(t, router, http.MethodPost, "/api/v1/groups/venues", `{"user_ids":[1,2,2]}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", code, resp.Error)
	}
	var res engine.GroupResult
	if err := json.Unmarshal(resp.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.GroupSize != 2 {
		t.Errorf("group_size = %d, want 2", res.GroupSize)
	}
	for _, v := range res.Venues {
		if v.GroupScore <= 0 {
			t.Errorf("venue %d has non-positive score %v", v.Venue.ID, v.GroupScore)
		}
	}

	for _, body := range []string{`{"user_ids":[]}`, `{"user_ids":[0]}`, `{}`} {
		if code, _ := do(t, router, http.MethodPost, "/api/v1/groups/venues", body); code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, code)
		}
	}
	code, resp = do(t, router, http.MethodPost, "/api/v1/groups/venues", `{"user_ids":[1,99]}`)
	if code != http.StatusOK {
		t.Fatalf("unknown member status = %d, want 200", code)
	}
	if err := json.Unmarshal(resp.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.GroupSize != 2 {
		t.Errorf("group_size with unknown member = %d, want 2", res.GroupSize)
	}
}

func TestTrainModel_Trigger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"queued", nil, http.StatusAccepted, ""},
		{"in progress", recommend.ErrTrainingInProgress, http.StatusConflict, "TRAINING_IN_PROGRESS"},
		{"throttled", recommend.ErrTrainingThrottled, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"internal", errors.New("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newTestRouter(t, &fakeTrainer{err: tt.err}, &fakePinger{})
			code, resp := do(t, router, http.MethodPost, "/api/v1/model/train", "")
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d", code, tt.wantCode)
			}
			if tt.wantErr != "" && (resp.Error == nil || resp.Error.Code != tt.wantErr) {
				t.Errorf("error = %+v, want %s", resp.Error, tt.wantErr)
			}
		})
	}
}

func TestTrainModel_Synchronous(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil, &fakePinger{})
	code, resp := do(t, router, http.MethodPost, "/api/v1/model/train", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", code, resp.Error)
	}
	var st engine.Status
	if err := json.Unmarshal(resp.Data, &st); err != nil {
		t.Fatal(err)
	}
	if !st.HasModel || st.NumUsers == 0 || len(st.EpochLosses) != 5 {
		t.Errorf("status = %+v", st)
	}

	code, resp = do(t, router, http.MethodGet, "/api/v1/model/status", "")
	if code != http.StatusOK {
		t.Fatalf("status endpoint = %d", code)
	}
	if err := json.Unmarshal(resp.Data, &st); err != nil {
		t.Fatal(err)
	}
	if !st.HasModel {
		t.Error("status after training reports no model")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		pingErr   error
		target    string
		wantCode  int
		wantState string
	}{
		{"healthy", nil, "/api/v1/health/", http.StatusOK, "healthy"},
		{"degraded", errors.New("down"), "/api/v1/health/", http.StatusOK, "degraded"},
		{"ready", nil, "/api/v1/health/ready", http.StatusOK, "healthy"},
		{"not ready", errors.New("down"), "/api/v1/health/ready", http.StatusServiceUnavailable, ""},
		{"live", errors.New("down"), "/api/v1/health/live", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newTestRouter(t, nil, &fakePinger{err: tt.pingErr})
			code, resp := do(t, router, http.MethodGet, tt.target, "")
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d", code, tt.wantCode)
			}
			if tt.wantState == "" {
				return
			}
			var hs HealthStatus
			if err := json.Unmarshal(resp.Data, &hs); err != nil {
				t.Fatal(err)
			}
			if hs.Status != tt.wantState || hs.Version != "test" {
				t.Errorf("health = %+v, want %s", hs, tt.wantState)
			}
		})
	}
}

func TestRouter_MetricsAndRequestID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil, &fakePinger{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/model/status", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
	if !strings.Contains(rec.Body.String(), `"request_id":"abc-123"`) {
		t.Errorf("response metadata missing request id: %s", rec.Body.String())
	}
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()

	h := NewHandler(testEngine(t, testStore()), nil, &fakePinger{}, "test")
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute})
	router := NewRouter(h, mw, 0).Setup()

	var codes []int
	for range 3 {
		code, _ := do(t, router, http.MethodGet, "/api/v1/model/status", "")
		codes = append(codes, code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
}

func TestRoundTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     float64
		places int
		want   float64
	}{
		{0.12345, 3, 0.123},
		{0.9996, 3, 1},
		{12.345678, 2, 12.35},
		{1, 3, 1},
	}
	for _, tt := range tests {
		if got := roundTo(tt.in, tt.places); got != tt.want {
			t.Errorf("roundTo(%v, %d) = %v, want %v", tt.in, tt.places, got, tt.want)
		}
	}
	if roundPtr(nil, 2) != nil {
		t.Error("roundPtr(nil) != nil")
	}
}
