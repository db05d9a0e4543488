package airquality

import "github.com/breatheroute/aqdash/internal/format"

// Category is an ordered PM2.5 air-quality bucket, best first.
type Category int

const (
	Excellent Category = iota
	Good
	LightPollution
	ModeratePollution
	SeverePollution
)

var categoryNames = [...]string{
	"EXCELLENT",
	"GOOD",
	"LIGHT_POLLUTION",
	"MODERATE_POLLUTION",
	"SEVERE_POLLUTION",
}

// String returns the wire name of the category.
func (c Category) String() string {
	if c < Excellent || c > SeverePollution {
		return "UNKNOWN"
	}
	return categoryNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Level is the display form of a Category.
type Level struct {
	Category Category `json:"category"`
	Label    string   `json:"level"`
	LabelZH  string   `json:"levelZh"`
	Class    string   `json:"class"`
}

// LabelFor returns the label for the given locale.
func (l Level) LabelFor(loc format.Locale) string {
	if loc == format.LocaleZhCN {
		return l.LabelZH
	}
	return l.Label
}

// Threshold is an inclusive upper PM2.5 bound (µg/m³) for a category.
type Threshold struct {
	Max      float64
	Category Category
}

var thresholds = [...]Threshold{
	{Max: 35, Category: Excellent},
	{Max: 75, Category: Good},
	{Max: 115, Category: LightPollution},
	{Max: 150, Category: ModeratePollution},
}

var levels = [...]Level{
	Excellent:         {Category: Excellent, Label: "Excellent", LabelZH: "优", Class: "air-quality-excellent"},
	Good:              {Category: Good, Label: "Good", LabelZH: "良", Class: "air-quality-good"},
	LightPollution:    {Category: LightPollution, Label: "Light pollution", LabelZH: "轻度污染", Class: "air-quality-moderate"},
	ModeratePollution: {Category: ModeratePollution, Label: "Moderate pollution", LabelZH: "中度污染", Class: "air-quality-unhealthy"},
	SeverePollution:   {Category: SeverePollution, Label: "Severe pollution", LabelZH: "重度污染", Class: "air-quality-hazardous"},
}

// Thresholds returns the ascending category boundaries.
func Thresholds() []Threshold {
	out := make([]Threshold, len(thresholds))
	copy(out, thresholds[:])
	return out
}

// LevelOf returns the Level for a category.
func LevelOf(c Category) Level {
	if c < Excellent || c > SeverePollution {
		return levels[SeverePollution]
	}
	return levels[c]
}

// Classify maps a PM2.5 concentration to its Level. A value equal to a
// boundary belongs to the better category. Anything above the last
// boundary, including NaN, is SeverePollution.
func Classify(pm25 float64) Level {
	for _, t := range thresholds {
		if pm25 <= t.Max {
			return levels[t.Category]
		}
	}
	return levels[SeverePollution]
}
