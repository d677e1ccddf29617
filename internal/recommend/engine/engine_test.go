// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package engine

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/graph"
	"github.com/tomtom215/tablemates/internal/recommend/model"
	"github.com/tomtom215/tablemates/internal/recommend/recordtest"
	"github.com/tomtom215/tablemates/internal/recommend/scoring"
	"github.com/tomtom215/tablemates/internal/recommend/storage"
	"github.com/tomtom215/tablemates/internal/recommend/trainer"
)

var midtown = recommend.Location{Latitude: 40.7580, Longitude: -73.9855}

func testConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.Model.EmbeddingDim = 8
	cfg.Model.NumLayers = 2
	cfg.Training.Epochs = 10
	cfg.Training.BatchSize = 4
	cfg.Training.LearningRate = 0.1
	return cfg
}

func near(dLat float64) recommend.Location {
	return recommend.Location{Latitude: midtown.Latitude + dLat, Longitude: midtown.Longitude}
}

// testStore has four users and four venues. Users 1 and 2 are friends with
// similar habits; user 3 is a closed, inactive stranger; user 4 is a
// friend of user 2 only.
func testStore() *recordtest.Store {
	loc := midtown
	italian := &recommend.Preferences{Cuisines: []string{"italian"}, PriceMin: 1, PriceMax: 3, MaxDistanceKm: 10}
	s := &recordtest.Store{
		Users: []recommend.User{
			{ID: 1, Name: "ana", Location: &loc, ActivityScore: 1, OpenToMeet: true, Preferences: italian},
			{ID: 2, Name: "ben", Location: &loc, ActivityScore: 1, OpenToMeet: true, Preferences: italian},
			{ID: 3, Name: "cy", ActivityScore: 0},
			{ID: 4, Name: "dee", Location: &loc, ActivityScore: 1, OpenToMeet: true, Preferences: italian},
		},
		Venues: []recommend.Venue{
			{ID: 10, Name: "Trattoria", Category: "restaurant", Cuisine: "italian", Location: near(0.005), PriceLevel: 2, Rating: 4.5, Popularity: 0.8, Capacity: 20},
			{ID: 11, Name: "Osteria", Category: "restaurant", Cuisine: "italian", Location: near(0.01), PriceLevel: 2, Rating: 4.0, Popularity: 0.5, Capacity: 4},
			{ID: 12, Name: "Bistro", Category: "restaurant", Cuisine: "french", Location: near(0.02), PriceLevel: 4, Rating: 3.0, Popularity: 0.2, Capacity: 40},
			{ID: 13, Name: "Dive", Category: "bar", Cuisine: "", Location: near(2), PriceLevel: 1, Rating: 2.0, Capacity: 100},
		},
		Friendships: []recommend.Friendship{
			{UserID: 1, FriendID: 2},
			{UserID: 2, FriendID: 1},
			{UserID: 4, FriendID: 2},
		},
	}
	for _, u := range []int64{1, 2, 4} {
		s.Interact(u, 10, recommend.InteractionLike)
		s.Interact(u, 11, recommend.InteractionSave)
	}
	s.Interact(3, 12, recommend.InteractionView)
	s.Interact(3, 13, recommend.InteractionView)
	return s
}

func newEngine(t *testing.T, s *recordtest.Store) *Engine {
	t.Helper()
	e, err := New(testConfig(), s, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	bad := testConfig()
	bad.Hybrid.RuleWeight = -1

	tests := []struct {
		name  string
		cfg   *recommend.Config
		store Store
	}{
		{"invalid config", bad, &recordtest.Store{}},
		{"nil store", testConfig(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg, tt.store, nil, nil, zerolog.Nop()); !errors.Is(err, recommend.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRecommendVenues_RuleOnly(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testStore())

	recs, err := e.RecommendVenues(context.Background(), VenueRequest{UserID: 1, Limit: 3})
	if err != nil {
		t.Fatalf("RecommendVenues() error = %v", err)
	}
	if len(recs) == 0 || len(recs) > 3 {
		t.Fatalf("RecommendVenues() returned %d results, want 1..3", len(recs))
	}
	if recs[0].Venue.ID != 10 {
		t.Errorf("top venue = %d, want 10", recs[0].Venue.ID)
	}
	for i, r := range recs {
		if r.GNNScore != nil {
			t.Errorf("recs[%d].GNNScore = %v, want nil without a model", i, *r.GNNScore)
		}
		if r.FinalScore != r.RuleScore {
			t.Errorf("recs[%d] final %v != rule %v", i, r.FinalScore, r.RuleScore)
		}
		if r.FinalScore <= 0 {
			t.Errorf("recs[%d].FinalScore = %v, want > 0", i, r.FinalScore)
		}
		if i > 0 && r.FinalScore > recs[i-1].FinalScore {
			t.Errorf("results not sorted at %d", i)
		}
	}
}

func TestRecommendVenues_Filters(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testStore())

	recs, err := e.RecommendVenues(context.Background(), VenueRequest{UserID: 1, Category: "restaurant", MinRating: 4})
	if err != nil {
		t.Fatalf("RecommendVenues() error = %v", err)
	}
	for _, r := range recs {
		if r.Venue.Category != "restaurant" || r.Venue.Rating < 4 {
			t.Errorf("venue %d violates filter", r.Venue.ID)
		}
	}
}

func TestRecommendVenues_UnknownUser(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testStore())

	if _, err := e.RecommendVenues(context.Background(), VenueRequest{UserID: 99}); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("RecommendVenues() error = %v, want ErrNotFound", err)
	}
}

func TestTrain_ServesModel(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testStore())
	ctx := context.Background()

	// Prime the cache with a rule-only result.
	if _, err := e.RecommendVenues(ctx, VenueRequest{UserID: 1}); err != nil {
		t.Fatalf("RecommendVenues() error = %v", err)
	}

	st, err := e.Train(ctx)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if !st.HasModel || st.Training || st.LastError != "" {
		t.Errorf("status = %+v, want serving and idle", st)
	}
	if st.NumUsers != 4 || st.NumVenues != 4 {
		t.Errorf("status graph = %d users / %d venues, want 4 / 4", st.NumUsers, st.NumVenues)
	}
	if len(st.EpochLosses) != 10 {
		t.Errorf("len(EpochLosses) = %d, want 10", len(st.EpochLosses))
	}
	if !e.HasModel() {
		t.Error("HasModel() = false after training")
	}

	recs, err := e.RecommendVenues(ctx, VenueRequest{UserID: 1})
	if err != nil {
		t.Fatalf("RecommendVenues() error = %v", err)
	}
	for _, r := range recs {
		if r.GNNScore == nil {
			t.Errorf("venue %d has no model score after training", r.Venue.ID)
			continue
		}
		want := 0.7*r.RuleScore + 0.3**r.GNNScore
		if diff := r.FinalScore - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("venue %d final = %v, want %v", r.Venue.ID, r.FinalScore, want)
		}
	}
}

func TestTrain_FailureKeepsPreviousModel(t *testing.T) {
	t.Parallel()
	s := testStore()
	e := newEngine(t, s)
	ctx := context.Background()

	if _, err := e.Train(ctx); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	s.Err = errors.New("database gone")
	st, err := e.Train(ctx)
	if err == nil {
		t.Fatal("Train() error = nil, want failure")
	}
	if !st.HasModel || st.LastError == "" || st.Training {
		t.Errorf("status = %+v, want previous model and recorded error", st)
	}
	if !e.HasModel() {
		t.Error("previous model was unloaded")
	}
}

func TestServe_KeepsNewerModel(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testStore())

	if _, err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	before := e.Status()

	result := func(trainedAt time.Time) *trainer.Result {
		m, err := model.FromWeights(1, 1, 2, 0, []float64{1, 0, 1, 0})
		if err != nil {
			t.Fatalf("FromWeights() error = %v", err)
		}
		return &trainer.Result{
			Model: m,
			Metadata: &storage.Metadata{
				Version:   before.Version + 7,
				TrainedAt: trainedAt,
				Graph:     graph.NewMetadata([]int64{1}, []int64{10}),
			},
		}
	}

	if err := e.serve(result(before.TrainedAt.Add(-time.Hour))); err != nil {
		t.Fatalf("serve(stale) error = %v", err)
	}
	if st := e.Status(); st.NumUsers != before.NumUsers || !st.TrainedAt.Equal(before.TrainedAt) {
		t.Errorf("stale result replaced serving model: status = %+v", st)
	}

	newer := before.TrainedAt.Add(time.Hour)
	if err := e.serve(result(newer)); err != nil {
		t.Fatalf("serve(newer) error = %v", err)
	}
	if st := e.Status(); st.NumUsers != 1 || !st.TrainedAt.Equal(newer) {
		t.Errorf("newer result not published: status = %+v", st)
	}
}

func TestTrain_EmptyGraph(t *testing.T) {
	t.Parallel()
	e := newEngine(t, &recordtest.Store{})

	_, err := e.Train(context.Background())
	if !errors.Is(err, recommend.ErrEmptyGraph) {
		t.Errorf("Train() error = %v, want ErrEmptyGraph", err)
	}
	if !errors.Is(err, recommend.ErrInvalidConfig) {
		t.Errorf("Train() error = %v, want wrapping ErrInvalidConfig", err)
	}
	if e.HasModel() {
		t.Error("HasModel() = true after failed training")
	}
}

func TestLoadLatest_NotPersisted(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testStore())

	if err := e.LoadLatest(context.Background()); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("LoadLatest() error = %v, want ErrNotFound", err)
	}
}

func TestCompatibleUsers(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testStore())

	got, err := e.CompatibleUsers(context.Background(), CompanionRequest{UserID: 1})
	if err != nil {
		t.Fatalf("CompatibleUsers() error = %v", err)
	}

	ids := make([]int64, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.User.ID)
		if c.CompatibilityScore < 0.5 {
			t.Errorf("user %d below threshold: %v", c.User.ID, c.CompatibilityScore)
		}
	}
	// User 3 is a closed stranger with opposite activity and falls below
	// the threshold.
	if !slices.Equal(ids, []int64{2, 4}) {
		t.Fatalf("CompatibleUsers() ids = %v, want [2 4]", ids)
	}
	if !got[0].IsFriend || !slices.Contains(got[0].Reasons, scoring.ReasonFriend) {
		t.Errorf("user 2 = %+v, want friend", got[0])
	}
	if got[1].IsFriend || !slices.Contains(got[1].Reasons, "1 mutual friend(s)") {
		t.Errorf("user 4 = %+v, want one mutual friend", got[1])
	}
}

func TestCompatibleUsers_SharedVenue(t *testing.T) {
	t.Parallel()
	s := testStore()
	s.Interests = []recommend.VenueInterest{
		{UserID: 4, VenueID: 10, InterestScore: 0.8, Explicit: true},
		{UserID: 2, VenueID: 10, InterestScore: 0.4, Explicit: false},
	}
	e := newEngine(t, s)
	venue := int64(10)

	got, err := e.CompatibleUsers(context.Background(), CompanionRequest{UserID: 1, VenueID: &venue})
	if err != nil {
		t.Fatalf("CompatibleUsers() error = %v", err)
	}
	for _, c := range got {
		shared := slices.Contains(c.Reasons, scoring.ReasonSameVenue)
		if shared != (c.User.ID == 4) {
			t.Errorf("user %d shared-venue reason = %v", c.User.ID, shared)
		}
	}

	missing := int64(999)
	if _, err := e.CompatibleUsers(context.Background(), CompanionRequest{UserID: 1, VenueID: &missing}); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("CompatibleUsers(unknown venue) error = %v, want ErrNotFound", err)
	}
}

func TestCompatibleUsers_Limit(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testStore())

	got, err := e.CompatibleUsers(context.Background(), CompanionRequest{UserID: 1, Limit: 1})
	if err != nil {
		t.Fatalf("CompatibleUsers() error = %v", err)
	}
	if len(got) != 1 || got[0].User.ID != 2 {
		t.Errorf("CompatibleUsers(limit 1) = %+v, want only user 2", got)
	}
}

func TestInterestedUsers(t *testing.T) {
	t.Parallel()
	s := testStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Interests = []recommend.VenueInterest{
		{UserID: 2, VenueID: 10, InterestScore: 0.8, Explicit: true, CreatedAt: base},
		{UserID: 4, VenueID: 10, InterestScore: 0.9, Explicit: true, CreatedAt: base.Add(time.Hour), PreferredTimeSlot: "dinner"},
		{UserID: 3, VenueID: 10, InterestScore: 0.5, Explicit: false, CreatedAt: base.Add(2 * time.Hour)},
		{UserID: 1, VenueID: 10, InterestScore: 0.8, Explicit: true, CreatedAt: base.Add(3 * time.Hour)},
	}
	e := newEngine(t, s)
	ctx := context.Background()

	got, err := e.InterestedUsers(ctx, 10, nil, 0)
	if err != nil {
		t.Fatalf("InterestedUsers() error = %v", err)
	}
	ids := make([]int64, 0, len(got))
	for _, u := range got {
		ids = append(ids, u.User.ID)
		if u.Compatibility != nil {
			t.Errorf("user %d has compatibility without a requester", u.User.ID)
		}
	}
	if !slices.Equal(ids, []int64{1, 4, 2}) {
		t.Errorf("InterestedUsers() ids = %v, want newest explicit first [1 4 2]", ids)
	}

	requester := int64(1)
	got, err = e.InterestedUsers(ctx, 10, &requester, 1)
	if err != nil {
		t.Fatalf("InterestedUsers() error = %v", err)
	}
	if len(got) != 1 || got[0].User.ID != 4 {
		t.Fatalf("InterestedUsers(requester, limit 1) = %+v, want user 4", got)
	}
	if got[0].Compatibility == nil || got[0].PreferredTimeSlot != "dinner" {
		t.Errorf("row = %+v, want compatibility and time slot", got[0])
	}

	if _, err := e.InterestedUsers(ctx, 999, nil, 0); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("InterestedUsers(unknown venue) error = %v, want ErrNotFound", err)
	}
}

func TestExpressInterest(t *testing.T) {
	t.Parallel()
	s := testStore()
	s.Interests = []recommend.VenueInterest{
		{UserID: 2, VenueID: 11, InterestScore: 0.8, Explicit: true, OpenToInvites: true},
	}
	e := newEngine(t, s)
	ctx := context.Background()
	before := len(s.Interactions)

	vi, others, err := e.ExpressInterest(ctx, recommend.InterestUpdate{UserID: 1, VenueID: 11, PreferredTimeSlot: "lunch"})
	if err != nil {
		t.Fatalf("ExpressInterest() error = %v", err)
	}
	if vi.InterestScore != recommend.NewInterestScore || !vi.Explicit || vi.PreferredTimeSlot != "lunch" {
		t.Errorf("first interest = %+v", vi)
	}
	if len(others) != 1 || others[0].User.ID != 2 || others[0].Compatibility == nil {
		t.Errorf("others = %+v, want user 2 with compatibility", others)
	}

	vi, _, err = e.ExpressInterest(ctx, recommend.InterestUpdate{UserID: 1, VenueID: 11})
	if err != nil {
		t.Fatalf("ExpressInterest() error = %v", err)
	}
	if diff := vi.InterestScore - 0.9; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("repeated interest score = %v, want 0.9", vi.InterestScore)
	}
	if vi.PreferredTimeSlot != "lunch" {
		t.Errorf("time slot = %q, want kept", vi.PreferredTimeSlot)
	}

	saves := 0
	for _, in := range s.Interactions[before:] {
		if in.UserID == 1 && in.VenueID == 11 && in.Type == recommend.InteractionSave {
			saves++
		}
	}
	if saves != 2 {
		t.Errorf("save interactions = %d, want 2", saves)
	}

	if _, _, err := e.ExpressInterest(ctx, recommend.InterestUpdate{UserID: 1, VenueID: 999}); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("ExpressInterest(unknown venue) error = %v, want ErrNotFound", err)
	}
}

func TestRecordInteraction(t *testing.T) {
	t.Parallel()

	negative := -5
	tests := []struct {
		name    string
		in      recommend.Interaction
		wantErr error
	}{
		{"valid", recommend.Interaction{UserID: 1, VenueID: 12, Type: recommend.InteractionView}, nil},
		{"unknown type", recommend.Interaction{UserID: 1, VenueID: 12, Type: "poke"}, recommend.ErrInvalidConfig},
		{"negative duration", recommend.Interaction{UserID: 1, VenueID: 12, Type: recommend.InteractionView, DurationSeconds: &negative}, recommend.ErrInvalidConfig},
		{"unknown user", recommend.Interaction{UserID: 99, VenueID: 12, Type: recommend.InteractionView}, recommend.ErrNotFound},
		{"unknown venue", recommend.Interaction{UserID: 1, VenueID: 99, Type: recommend.InteractionView}, recommend.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := testStore()
			e := newEngine(t, s)
			before := len(s.Interactions)

			err := e.RecordInteraction(context.Background(), tt.in)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("RecordInteraction() error = %v", err)
				}
				last := s.Interactions[len(s.Interactions)-1]
				if len(s.Interactions) != before+1 || last.CreatedAt.IsZero() {
					t.Errorf("interaction not appended with timestamp: %+v", last)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RecordInteraction() error = %v, want %v", err, tt.wantErr)
			}
			if len(s.Interactions) != before {
				t.Error("rejected interaction was appended")
			}
		})
	}
}

func TestGroupVenues(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testStore())
	ctx := context.Background()

	res, err := e.GroupVenues(ctx, []int64{1, 2, 4, 2})
	if err != nil {
		t.Fatalf("GroupVenues() error = %v", err)
	}
	if res.GroupSize != 3 {
		t.Errorf("GroupSize = %d, want 3 (duplicates collapsed)", res.GroupSize)
	}
	if len(res.Venues) == 0 || res.Venues[0].Venue.ID != 10 {
		t.Fatalf("Venues = %+v, want venue 10 first", res.Venues)
	}
	for _, v := range res.Venues {
		if v.Venue.Capacity < 3 {
			t.Errorf("venue %d capacity %d below group size", v.Venue.ID, v.Venue.Capacity)
		}
		if v.Venue.ID == 13 {
			t.Error("venue 13 lies outside the group radius")
		}
		if v.GroupScore <= 0 {
			t.Errorf("venue %d score %v, want > 0", v.Venue.ID, v.GroupScore)
		}
	}
}

func TestGroupVenues_Edges(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testStore())
	ctx := context.Background()

	res, err := e.GroupVenues(ctx, nil)
	if err != nil {
		t.Fatalf("GroupVenues(nil) error = %v", err)
	}
	if res.GroupSize != 0 || res.Venues == nil || len(res.Venues) != 0 {
		t.Errorf("GroupVenues(nil) = %+v, want empty", res)
	}

	// Venue 11 seats 4: enough for members 1 and 2 alone, not once the
	// unknown IDs are counted.
	res, err = e.GroupVenues(ctx, []int64{1, 2, 97, 98, 99, 99})
	if err != nil {
		t.Fatalf("GroupVenues(unknown members) error = %v", err)
	}
	if res.GroupSize != 5 {
		t.Errorf("GroupSize = %d, want 5 (unknown members counted)", res.GroupSize)
	}
	if res.Centroid != midtown {
		t.Errorf("Centroid = %+v, want known members' location %+v", res.Centroid, midtown)
	}
	if len(res.Venues) == 0 || res.Venues[0].Venue.ID != 10 {
		t.Fatalf("Venues = %+v, want venue 10 first", res.Venues)
	}
	for _, v := range res.Venues {
		if v.Venue.ID == 11 {
			t.Error("venue 11 is too small for five invitees")
		}
	}

	res, err = e.GroupVenues(ctx, []int64{98, 99})
	if err != nil {
		t.Fatalf("GroupVenues(only unknown) error = %v", err)
	}
	if res.GroupSize != 2 {
		t.Errorf("GroupSize = %d, want 2", res.GroupSize)
	}
}
