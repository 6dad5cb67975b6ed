// Package schedule maps a posts-per-day setting to fixed wall-clock
// posting slots.
package schedule

import "fmt"

// Slot is one time-of-day posting trigger.
type Slot struct {
	Hour   int
	Minute int
}

func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// Matches reports whether the slot fires at the given wall-clock minute.
func (s Slot) Matches(hour, minute int) bool {
	return s.Hour == hour && s.Minute == minute
}

// Fixed slot sets for the small counts. Kept as an enumerated table, not a
// formula; these exact times are part of the contract.
var fixedSlots = map[int][]Slot{
	1: {{9, 0}},
	2: {{9, 0}, {17, 0}},
	3: {{9, 0}, {14, 0}, {19, 0}},
	4: {{8, 0}, {12, 0}, {16, 0}, {20, 0}},
	5: {{8, 0}, {11, 0}, {14, 0}, {17, 0}, {20, 0}},
	6: {{8, 0}, {10, 30}, {13, 0}, {15, 30}, {18, 0}, {20, 30}},
}

// halfHourMarks is the fallback sequence for counts above six: every
// half-hour mark from 08:00 through 21:30, in order.
var halfHourMarks = buildHalfHourMarks()

func buildHalfHourMarks() []Slot {
	var marks []Slot
	for h := 8; h < 22; h++ {
		marks = append(marks, Slot{h, 0}, Slot{h, 30})
	}
	return marks
}

// ForDailyCount returns the posting slots for a posts-per-day setting,
// sorted by time of day. Zero (or negative) means posting is paused and
// yields no slots. Counts above six take the first N half-hour marks;
// counts beyond the 28 available marks are capped at all of them.
func ForDailyCount(postsPerDay int) []Slot {
	if postsPerDay <= 0 {
		return nil
	}
	if slots, ok := fixedSlots[postsPerDay]; ok {
		out := make([]Slot, len(slots))
		copy(out, slots)
		return out
	}
	if postsPerDay > len(halfHourMarks) {
		postsPerDay = len(halfHourMarks)
	}
	out := make([]Slot, postsPerDay)
	copy(out, halfHourMarks[:postsPerDay])
	return out
}
