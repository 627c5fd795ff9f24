// Package resolver decides which plan block is running "now" and which one
// comes next. It is pure: blocks plus a minute offset in, pointers out, no
// store access.
package resolver

import (
	"fmt"

	"dayplanner/internal/models"
	"dayplanner/internal/timeutil"
)

// Result holds the outcome of a resolution. Either field may be nil; both nil
// means the day's schedule is over or empty, which is a normal state.
type Result struct {
	Current *models.PlanBlock
	Next    *models.PlanBlock
}

// Resolve scans blocks sorted by start time. Current is the first block whose
// [start, end) interval contains nowMinutes; Next is the first block starting
// strictly after nowMinutes, whether or not a current block exists.
// Overlapping blocks are not deduplicated, so the sort order keeps the result
// deterministic.
func Resolve(blocks []models.PlanBlock, nowMinutes int) (Result, error) {
	var res Result
	for i := range blocks {
		b := &blocks[i]
		start, err := timeutil.ToMinutes(b.StartTime)
		if err != nil {
			return Result{}, fmt.Errorf("block %s start: %w", b.ID, err)
		}
		end, err := timeutil.ToMinutes(b.EndTime)
		if err != nil {
			return Result{}, fmt.Errorf("block %s end: %w", b.ID, err)
		}

		if start > nowMinutes {
			if res.Next == nil {
				res.Next = b
			}
			continue
		}
		if nowMinutes < end && res.Current == nil {
			res.Current = b
		}
	}
	return res, nil
}
