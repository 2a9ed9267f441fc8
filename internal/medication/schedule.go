package medication

import (
	"sort"
	"strings"
)

type frequencyRule struct {
	phrases []string
	slots   []TimeSlot
}

// frequencyRules is checked in order. The bare "daily" rule is last so it
// cannot shadow "twice daily" or "three times daily".
var frequencyRules = []frequencyRule{
	{[]string{"twice daily", "every 12 hours"}, []TimeSlot{"09:00", "21:00"}},
	{[]string{"three times daily", "every 8 hours"}, []TimeSlot{"01:00", "09:00", "17:00"}},
	{[]string{"four times", "every 6 hours"}, []TimeSlot{"00:00", "06:00", "12:00", "18:00"}},
	{[]string{"every 4-6 hours", "every 4 hours"}, []TimeSlot{"06:00", "10:00", "14:00", "18:00", "22:00"}},
	{[]string{"once daily", "daily"}, []TimeSlot{"09:00"}},
}

var defaultSlots = []TimeSlot{"09:00"}

// ExpandFrequency maps a free-text frequency to daily time slots in clock
// order. Unrecognized text gets a single morning slot; the result is never
// empty.
func ExpandFrequency(text string) []TimeSlot {
	lower := strings.ToLower(text)
	for _, rule := range frequencyRules {
		for _, p := range rule.phrases {
			if strings.Contains(lower, p) {
				return append([]TimeSlot(nil), rule.slots...)
			}
		}
	}
	return append([]TimeSlot(nil), defaultSlots...)
}

func orderSlots(in []TimeSlot) []TimeSlot {
	seen := make(map[TimeSlot]bool, len(in))
	out := make([]TimeSlot, 0, len(in))
	for _, s := range in {
		s = TimeSlot(strings.TrimSpace(string(s)))
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DailySchedule groups active medication names by slot.
type DailySchedule map[TimeSlot][]string

func BuildDailySchedule(meds []Medication) DailySchedule {
	out := DailySchedule{}
	for _, m := range meds {
		if !m.Active {
			continue
		}
		for _, s := range m.TimeSlots {
			out[s] = append(out[s], m.Name)
		}
	}
	return out
}

// Slots returns the schedule's keys in clock order.
func (d DailySchedule) Slots() []TimeSlot {
	out := make([]TimeSlot, 0, len(d))
	for s := range d {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
