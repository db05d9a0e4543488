// Package format renders timestamps and elapsed durations for the dashboard.
package format

import (
	"fmt"
	"time"
)

// Locale selects the date layout and relative-time labels.
type Locale string

const (
	LocaleZhCN Locale = "zh-CN"
	LocaleEnUS Locale = "en-US"
)

// DefaultLocale is used when no locale, or an unknown one, is configured.
const DefaultLocale = LocaleZhCN

// InvalidDate is rendered for timestamps outside the representable date range.
const InvalidDate = "Invalid Date"

// maxEpochMillis is the largest absolute epoch offset a browser Date accepts.
const maxEpochMillis = 8.64e15

var layouts = map[Locale]string{
	LocaleZhCN: "2006/1/2 15:04:05",
	LocaleEnUS: "1/2/2006, 3:04:05 PM",
}

// ParseLocale returns the matching Locale, or DefaultLocale.
func ParseLocale(s string) Locale {
	l := Locale(s)
	if _, ok := layouts[l]; ok {
		return l
	}
	return DefaultLocale
}

// FormatTime renders an epoch-seconds timestamp as a locale date-time string.
// A nil tz means time.Local.
func FormatTime(timestamp int64, loc Locale, tz *time.Location) string {
	if float64(timestamp)*1000 > maxEpochMillis || float64(timestamp)*1000 < -maxEpochMillis {
		return InvalidDate
	}
	return formatInstant(time.Unix(timestamp, 0), loc, tz)
}

func formatInstant(t time.Time, loc Locale, tz *time.Location) string {
	if tz == nil {
		tz = time.Local
	}
	layout, ok := layouts[loc]
	if !ok {
		layout = layouts[DefaultLocale]
	}
	return t.In(tz).Format(layout)
}

// FormatDuration renders elapsed seconds as an English relative label:
// "just now", "N minutes ago", "N hours ago" or "N days ago".
func FormatDuration(seconds int64) string {
	return durationLabel(seconds, englishLabels)
}

type relativeLabels struct {
	justNow string
	minutes func(n int64) string
	hours   func(n int64) string
	days    func(n int64) string
}

var englishLabels = relativeLabels{
	justNow: "just now",
	minutes: func(n int64) string { return plural(n, "minute") },
	hours:   func(n int64) string { return plural(n, "hour") },
	days:    func(n int64) string { return plural(n, "day") },
}

var chineseLabels = relativeLabels{
	justNow: "刚刚",
	minutes: func(n int64) string { return fmt.Sprintf("%d分钟前", n) },
	hours:   func(n int64) string { return fmt.Sprintf("%d小时前", n) },
	days:    func(n int64) string { return fmt.Sprintf("%d天前", n) },
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func durationLabel(seconds int64, l relativeLabels) string {
	switch {
	case seconds < 60:
		return l.justNow
	case seconds < 3600:
		return l.minutes(seconds / 60)
	case seconds < 86400:
		return l.hours(seconds / 3600)
	default:
		return l.days(seconds / 86400)
	}
}
