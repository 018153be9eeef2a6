// Package textmerge computes the minimal append for possibly overlapping or
// duplicated text fragments arriving on a stream destination.
package textmerge

import "strings"

// Result of merging an incoming fragment into previously emitted text.
type Result struct {
	// Next is the full text after the merge.
	Next string
	// Delta is the suffix such that previous + Delta == Next, always.
	Delta string
}

// Merge reconciles incoming against previous. Upstream streams are allowed to
// resend text, so four cases are handled:
//
//  1. incoming extends previous (incoming has previous as prefix): the stream
//     resent the full text with additional content; the delta is the tail.
//  2. previous already contains incoming: pure duplicate, empty delta.
//  3. a suffix of previous equals a prefix of incoming: boundary overlap;
//     only the non-overlapping remainder is appended. Overlap lengths are
//     scanned longest first and the first match wins.
//  4. none of the above: strict continuation, the whole fragment is the delta.
//
// Merge is deterministic and never emits a delta that would not reconstruct
// Next exactly when appended to previous.
func Merge(previous, incoming string) Result {
	if previous == "" {
		return Result{Next: incoming, Delta: incoming}
	}
	if incoming == "" {
		return Result{Next: previous, Delta: ""}
	}

	if strings.HasPrefix(incoming, previous) {
		delta := incoming[len(previous):]
		return Result{Next: incoming, Delta: delta}
	}

	if strings.Contains(previous, incoming) {
		return Result{Next: previous, Delta: ""}
	}

	maxOverlap := len(incoming)
	if len(previous) < maxOverlap {
		maxOverlap = len(previous)
	}
	for l := maxOverlap; l > 0; l-- {
		if strings.HasSuffix(previous, incoming[:l]) {
			delta := incoming[l:]
			return Result{Next: previous + delta, Delta: delta}
		}
	}

	return Result{Next: previous + incoming, Delta: incoming}
}
