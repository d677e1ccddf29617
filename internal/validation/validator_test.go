// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	UserIDs []int64 `json:"user_ids" validate:"required,min=1,max=3,dive,gt=0"`
	Type    string  `json:"type" validate:"interaction_type"`
	Slot    string  `json:"preferred_time_slot" validate:"omitempty,max=5"`
	Limit   int     `json:"limit" validate:"gte=0,lte=50"`
}

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	valid := sampleRequest{UserIDs: []int64{1, 2}, Type: "like", Limit: 10}

	tests := []struct {
		name      string
		mutate    func(*sampleRequest)
		wantField string
		wantMsg   string
	}{
		{"valid", func(*sampleRequest) {}, "", ""},
		{"missing ids", func(r *sampleRequest) { r.UserIDs = nil }, "user_ids", "user_ids is required"},
		{"too many ids", func(r *sampleRequest) { r.UserIDs = []int64{1, 2, 3, 4} }, "user_ids", "at most 3 items"},
		{"non-positive id", func(r *sampleRequest) { r.UserIDs = []int64{1, 0} }, "user_ids[1]", "greater than 0"},
		{"bad type", func(r *sampleRequest) { r.Type = "poke" }, "type", "must be one of: view"},
		{"long slot", func(r *sampleRequest) { r.Slot = "midnight" }, "preferred_time_slot", "at most 5 characters"},
		{"limit too big", func(r *sampleRequest) { r.Limit = 51 }, "limit", "less than or equal to 50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := valid
			req.UserIDs = append([]int64(nil), valid.UserIDs...)
			tt.mutate(&req)

			verr := ValidateStruct(&req)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if len(verr.Fields) != 1 || verr.Fields[0].Field != tt.wantField {
				t.Fatalf("Fields = %+v, want one error on %s", verr.Fields, tt.wantField)
			}
			if !strings.Contains(verr.Error(), tt.wantMsg) {
				t.Errorf("Error() = %q, want %q", verr.Error(), tt.wantMsg)
			}
			apiErr := verr.ToAPIError()
			if apiErr.Code != "VALIDATION_ERROR" || apiErr.Details["fields"] == nil {
				t.Errorf("ToAPIError() = %+v", apiErr)
			}
		})
	}
}
