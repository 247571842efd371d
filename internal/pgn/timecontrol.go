package pgn

import (
	"strconv"
	"strings"

	"github.com/chess-tracker/internal/types"
)

// TimeControl is the structured form of a compact time-control descriptor.
// Live games carry base and increment; daily games carry a per-move
// correspondence budget. The two field sets are mutually exclusive.
type TimeControl struct {
	Daily                 bool
	BaseSeconds           *int
	IncrementSeconds      *int
	CorrespondenceSeconds *int
}

// ParseTimeControl normalizes a descriptor such as "180+2", "600" or
// "1/86400". Unparseable numeric fragments yield a nil field, never an
// error.
func ParseTimeControl(descriptor string, timeClass types.TimeClass) TimeControl {
	descriptor = strings.TrimSpace(descriptor)

	if idx := strings.Index(descriptor, "/"); idx >= 0 {
		// Correspondence: "moves/seconds", the value after the slash is
		// the per-move budget.
		return TimeControl{
			Daily:                 true,
			CorrespondenceSeconds: parseSeconds(descriptor[idx+1:]),
		}
	}

	tc := TimeControl{Daily: timeClass == types.TimeClassDaily}

	if idx := strings.Index(descriptor, "+"); idx >= 0 {
		tc.BaseSeconds = parseSeconds(descriptor[:idx])
		tc.IncrementSeconds = parseSeconds(descriptor[idx+1:])
		return tc
	}

	zero := 0
	tc.BaseSeconds = parseSeconds(descriptor)
	tc.IncrementSeconds = &zero
	return tc
}

func parseSeconds(s string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &v
}
