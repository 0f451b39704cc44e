package eligibility

import "time"

// Slot is one raw availability entry from the PMS feed. Date is ISO
// "YYYY-MM-DD", Time is zero-padded "HH:MM".
type Slot struct {
	Date string
	Time string
}

// Eligible reports whether a slot at (date, hhmm) falls inside one of the
// category's opening windows for that weekday. It is a pure function of the
// static schedule: no remote state, no side effects.
//
// Unparseable dates are accepted. A bad date must never read as "closed",
// otherwise a feed glitch would silently hide real availability.
func Eligible(cat Category, date, hhmm string) bool {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return true
	}

	windows := windowsFor(cat, mondayIndexed(day.Weekday()))
	if len(windows) == 0 {
		return false
	}

	for _, w := range windows {
		if hhmm >= w.Start && hhmm <= w.End {
			return true
		}
	}
	return false
}

// FilterSlots applies Eligible to each slot, preserving order. When resolved
// is false the appointment type has no known category and every slot passes:
// the filter only hides what it can positively map to a schedule. The
// rejected count is always reported so callers can expose it.
func FilterSlots(cat Category, resolved bool, slots []Slot) (accepted []Slot, rejected int) {
	if !resolved {
		return slots, 0
	}

	accepted = make([]Slot, 0, len(slots))
	for _, s := range slots {
		if Eligible(cat, s.Date, s.Time) {
			accepted = append(accepted, s)
		} else {
			rejected++
		}
	}
	return accepted, rejected
}

// mondayIndexed converts time.Weekday (Sunday = 0) to the Monday = 0 indexing
// used by the opening-hours tables.
func mondayIndexed(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
