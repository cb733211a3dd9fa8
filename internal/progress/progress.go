// Package progress derives request statuses, per-group completion rollups
// and stage gating from raw request records. Every function here is pure:
// no I/O, no shared state, safe for concurrent callers. Inputs are assumed
// validated at the boundary (enum parsing, non-negative counts).
package progress

import "math"

// GroupBy selects the aggregation key.
type GroupBy int

const (
	GroupByCategory GroupBy = iota
	GroupByStage
)

// StageUnassigned is the sentinel group key for requests with no stage.
const StageUnassigned = "unassigned"

// Classify maps a request's stored fields to its derived status.
// Priority-ordered, first match wins; unknown approval values are treated
// as not approved, so the function is total over its input domain.
func Classify(it Item) Status {
	if it.Approval == ApprovalApproved {
		return StatusAccepted
	}
	if it.DocumentCount > 0 || it.HasResponse {
		return StatusReviewPending
	}
	return StatusIncomplete
}

// Aggregate groups items by category or stage and computes completion per
// group in a single pass. Output order is insertion order of the first
// occurrence of each key. Groups only exist for keys present in the input,
// so a zero-total group is never emitted. When grouping by stage, items
// without a stage land in the StageUnassigned group, which callers may
// surface or suppress.
func Aggregate(items []Item, by GroupBy) []GroupProgress {
	type counter struct {
		total     int
		completed int
	}

	order := make([]string, 0)
	counts := make(map[string]*counter)

	for _, it := range items {
		key := groupKey(it, by)
		c, ok := counts[key]
		if !ok {
			c = &counter{}
			counts[key] = c
			order = append(order, key)
		}
		c.total++
		if Classify(it) == StatusAccepted {
			c.completed++
		}
	}

	out := make([]GroupProgress, 0, len(order))
	for _, key := range order {
		c := counts[key]
		out = append(out, GroupProgress{
			Key:        key,
			Total:      c.total,
			Completed:  c.completed,
			Percentage: percentage(c.completed, c.total),
		})
	}
	return out
}

func groupKey(it Item, by GroupBy) string {
	if by == GroupByStage {
		if it.StageID == nil {
			return StageUnassigned
		}
		return *it.StageID
	}
	return string(it.Category)
}

// percentage rounds half-up at zero decimal places: 1 of 3 is 33, 1 of 2 is 50.
func percentage(completed, total int) int {
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// IsUnlocked reports whether a stage is reachable given the progress of the
// stage immediately before it by position. ordered must already be filtered
// to active stages and sorted by SortOrder ascending. The first stage is
// always unlocked. A predecessor with no progress entry counts as 0%, so a
// stage behind an empty predecessor stays locked unless that predecessor's
// threshold is 0. An out-of-range index panics: that is a caller bug, not a
// runtime condition.
//
// Unlocking is recomputed from current data on every call and is never
// persisted, so a stage can flip back to locked when the underlying request
// set changes.
func IsUnlocked(stage StageRef, index int, ordered []StageRef, byID map[string]GroupProgress) bool {
	_ = ordered[index] // fail loudly on contract violation

	if index == 0 {
		return true
	}

	prev := ordered[index-1]
	pct := 0
	if gp, ok := byID[prev.ID]; ok {
		pct = gp.Percentage
	}
	return pct >= prev.CompletionThreshold
}

// ProgressByID indexes aggregation output by group key for gate evaluation.
func ProgressByID(groups []GroupProgress) map[string]GroupProgress {
	byID := make(map[string]GroupProgress, len(groups))
	for _, g := range groups {
		byID[g.Key] = g
	}
	return byID
}
