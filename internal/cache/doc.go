// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
Package cache provides a thread-safe in-memory LRU cache with TTL support.

The recommendation engine caches ranked venue lists per user, serving model
version, and request filters. Keys include the model version, so swapping in
a newly trained model makes stale entries unreachable; they age out through
LRU eviction and lazy TTL expiration.

# Usage Example

	c := cache.NewLRU[[]recommend.VenueRecommendation](1000, time.Minute)
	if recs, ok := c.Get(key); ok {
	    return recs
	}
	recs := rank()
	c.Add(key, recs)

# Thread Safety

All operations hold a mutex. Get mutates recency order, so it takes the
write lock.
*/
package cache
