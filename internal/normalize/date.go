package normalize

import "regexp"

var (
	isoDate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slashDate  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	dashedDate = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
)

// Date converts a date string to ISO form (YYYY-MM-DD). Accepted inputs are
// "DD/MM/YYYY", "DD-MM-YYYY" and already-ISO dates. Anything else passes
// through unchanged; callers treat unparseable dates as fail-open.
func Date(raw string) string {
	if raw == "" {
		return raw
	}

	if isoDate.MatchString(raw) {
		return raw
	}

	if slashDate.MatchString(raw) {
		return raw[6:10] + "-" + raw[3:5] + "-" + raw[0:2]
	}

	if dashedDate.MatchString(raw) {
		return raw[6:10] + "-" + raw[3:5] + "-" + raw[0:2]
	}

	return raw
}

// Hour converts a compact "HHMM" slot time into "HH:MM". Inputs that are not
// four digits pass through unchanged.
func Hour(raw string) string {
	if len(raw) == 4 {
		return raw[:2] + ":" + raw[2:]
	}
	return raw
}

// DisplayHour formats an "HH:MM" or "HHMM" time the way the voice agent
// reads it back, e.g. "09h30".
func DisplayHour(raw string) string {
	hhmm := Hour(raw)
	if len(hhmm) == 5 && hhmm[2] == ':' {
		return hhmm[:2] + "h" + hhmm[3:]
	}
	return raw
}

// IsPlaceholder reports whether a value is an unreplaced template variable
// from the voice platform, e.g. "{appointment_date}" or "<date>". Such values
// must be treated as absent rather than as literal input.
func IsPlaceholder(raw string) bool {
	return len(raw) > 0 && (raw[0] == '{' || raw[0] == '<')
}
