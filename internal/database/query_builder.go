// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package database

import (
	"fmt"
	"strings"

	"github.com/tomtom215/tablemates/internal/recommend"
)

// buildInClause creates a parameterized IN clause.
//
//	placeholders, args := buildInClause([]int64{1, 2, 3})
//	// placeholders = "?,?,?"
func buildInClause(items []int64) (string, []any) {
	placeholders := make([]string, len(items))
	args := make([]any, len(items))
	for i, item := range items {
		placeholders[i] = "?"
		args[i] = item
	}
	return strings.Join(placeholders, ","), args
}

// whereBuilder accumulates AND-joined conditions.
type whereBuilder struct {
	conditions []string
	args       []any
}

func (w *whereBuilder) add(cond string, args ...any) {
	w.conditions = append(w.conditions, cond)
	w.args = append(w.args, args...)
}

// in adds "column IN (...)" when ids is non-empty.
func (w *whereBuilder) in(column string, ids []int64) {
	if len(ids) == 0 {
		return
	}
	placeholders, args := buildInClause(ids)
	w.add(fmt.Sprintf("%s IN (%s)", column, placeholders), args...)
}

// clause returns the WHERE clause, or "" with no conditions.
func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func recordWhere(f recommend.RecordFilter) *whereBuilder {
	w := &whereBuilder{}
	w.in("user_id", f.UserIDs)
	w.in("venue_id", f.VenueIDs)
	return w
}

func venueWhere(f recommend.VenueFilter) *whereBuilder {
	w := &whereBuilder{}
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	if f.MinRating > 0 {
		w.add("rating >= ?", f.MinRating)
	}
	if f.MinCapacity > 0 {
		w.add("capacity >= ?", f.MinCapacity)
	}
	if b := f.Within; b != nil {
		w.add("latitude BETWEEN ? AND ?", b.MinLat, b.MaxLat)
		if b.CrossesAntimeridian() {
			w.add("(longitude >= ? OR longitude <= ?)", b.MinLon, b.MaxLon)
		} else {
			w.add("longitude BETWEEN ? AND ?", b.MinLon, b.MaxLon)
		}
	}
	return w
}
