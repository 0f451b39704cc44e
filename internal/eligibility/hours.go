package eligibility

// Weekday indexes run Monday = 0 through Sunday = 6.
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Window is an inclusive opening interval on one weekday. Both bounds are
// zero-padded 24-hour "HH:MM" strings, which makes lexicographic comparison
// equivalent to chronological comparison.
type Window struct {
	Start string
	End   string
}

// openingHours is the office's weekly schedule per care category. A missing
// weekday entry means the category is closed that day.
var openingHours = map[Category]map[int][]Window{
	CategoryConsultation: {
		Monday:    {{"09:00", "12:30"}, {"14:00", "18:30"}},
		Tuesday:   {{"09:00", "12:30"}, {"14:00", "18:30"}},
		Wednesday: {{"09:00", "12:30"}},
		Thursday:  {{"09:00", "12:30"}, {"14:00", "18:30"}},
		Friday:    {{"09:00", "12:30"}, {"14:00", "17:00"}},
	},
	CategoryCleaning: {
		Monday:   {{"09:30", "14:00"}},
		Tuesday:  {{"09:30", "14:00"}},
		Thursday: {{"09:30", "14:00"}},
		Friday:   {{"09:30", "12:30"}},
	},
	CategoryProsthetics: {
		Tuesday:  {{"14:00", "18:00"}},
		Thursday: {{"14:00", "18:00"}},
	},
	CategoryScaling: {
		Monday:    {{"09:30", "12:30"}},
		Wednesday: {{"09:30", "12:30"}},
		Friday:    {{"09:30", "12:30"}},
	},
	CategoryAligners: {
		Wednesday: {{"09:00", "12:30"}, {"14:00", "17:30"}},
	},
	CategorySurgery: {
		Tuesday:  {{"09:00", "12:00"}},
		Thursday: {{"09:00", "12:00"}},
	},
}

func windowsFor(cat Category, weekday int) []Window {
	byDay, ok := openingHours[cat]
	if !ok {
		return nil
	}
	return byDay[weekday]
}
