package clinical

import (
	"strings"
	"time"
)

const (
	// Placeholders substituted for absent dates.
	UnknownDate = "Unknown"
	PendingDate = "TBD"

	displayDate     = "Jan 2, 2006"
	displayDateTime = "Jan 2, 2006 3:04 PM"
	displayMonth    = "Jan 2006"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// FormatDate renders a FHIR date or dateTime as a calendar date. Partial dates
// keep their precision, unparseable values are returned unchanged.
func FormatDate(value, placeholder string) string {
	return formatFHIRTime(value, placeholder, false)
}

// FormatDateTime renders a FHIR dateTime with its time of day, in the offset it carries.
func FormatDateTime(value, placeholder string) string {
	return formatFHIRTime(value, placeholder, true)
}

func formatFHIRTime(value, placeholder string, withTime bool) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return placeholder
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			if withTime {
				return t.Format(displayDateTime)
			}
			return t.Format(displayDate)
		}
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.Format(displayDate)
	}
	if t, err := time.Parse("2006-01", value); err == nil {
		return t.Format(displayMonth)
	}
	return value
}
