package format

import "time"

// Formatter binds a locale and time zone for repeated formatting.
type Formatter struct {
	Locale   Locale
	Location *time.Location
}

// NewFormatter creates a Formatter. A nil location means time.Local.
func NewFormatter(loc Locale, tz *time.Location) Formatter {
	if _, ok := layouts[loc]; !ok {
		loc = DefaultLocale
	}
	if tz == nil {
		tz = time.Local
	}
	return Formatter{Locale: loc, Location: tz}
}

// Time renders an epoch-seconds timestamp.
func (f Formatter) Time(timestamp int64) string {
	return FormatTime(timestamp, f.Locale, f.Location)
}

// Instant renders t.
func (f Formatter) Instant(t time.Time) string {
	return formatInstant(t, f.Locale, f.Location)
}

// Duration renders elapsed seconds with the locale's relative labels.
func (f Formatter) Duration(seconds int64) string {
	if f.Locale == LocaleZhCN {
		return durationLabel(seconds, chineseLabels)
	}
	return durationLabel(seconds, englishLabels)
}

// Since renders the time elapsed between t and now.
func (f Formatter) Since(t, now time.Time) string {
	return f.Duration(int64(now.Sub(t) / time.Second))
}
