// Package domain models traffic-congestion predictions and the canonical
// geospatial entities derived from an external mapping provider.
//
// # Text canonicalization
//
// Incident descriptions are canonicalized before classification and historical
// lookup:
//
//	NFKC fold → lowercase → strip ASCII punctuation → drop English stop-words
//	→ rejoin surviving tokens with single spaces.
//
// The punctuation set is the 32 ASCII punctuation characters; the stop-word
// set is the frozen English list in normalize.go. Normalization is total and
// idempotent, so it is safe to apply to already-normalized text. A description
// consisting entirely of punctuation and stop-words normalizes to the empty
// string, which is a legal classifier input, not an error.
//
// # Prediction blending
//
// The final score for an incident is the classifier score alone, or the
// arithmetic mean of the classifier score and the historical mean when a
// historical match exists. Historical matching is exact: byte equality of
// normalized text. Near-duplicate descriptions that differ by a single token
// bypass the blend entirely; this coarse policy is intentional and documented,
// not a defect to be fixed with fuzzy matching.
//
// A final score >= 0.5 labels the incident "heavy", anything below "smooth".
//
// # Degradation policy
//
// All external capabilities degrade rather than fail:
//
//   - Classifier absent or erroring → neutral default score of 0, with the
//     Degraded flag set on the result for observability.
//   - Mapping provider failures (network, non-OK status, malformed payload)
//     → empty results or a formatted "lat, lon" fallback, absorbed at the
//     functions in geo.go. Provider error shapes never cross this package's
//     boundary.
//
// # Route point encodings
//
// The routing provider emits leg points in one of two shapes depending on
// response detail level: explicit latitude/longitude objects, or compact
// "lat,lon" strings. Both decode to the same ordered []GeoPoint; see the
// provider adapter. Alternative ordering is preserved exactly as returned
// (assumed fastest-first) and never re-sorted here.
package domain
