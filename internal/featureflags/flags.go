// Package featureflags holds runtime switches for the dashboard.
package featureflags

import (
	"encoding/json"
	"time"
)

// Dashboard flag keys.
const (
	// FlagRawNotificationMarkup lets API clients post notifications whose
	// message is inserted as markup.
	FlagRawNotificationMarkup = "allow_raw_notification_markup"

	// FlagCachedOnlyAirQuality serves station levels from the snapshot cache
	// without calling the provider.
	FlagCachedOnlyAirQuality = "cached_only_air_quality"
)

// Flag is a feature flag and its current value.
type Flag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BoolValue returns the flag value as a boolean, or def when the flag is
// missing or holds another type.
func (f *Flag) BoolValue(def bool) bool {
	if f == nil {
		return def
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v == "true" || v == "1"
	default:
		return def
	}
}

// JSONValue decodes the flag value into target.
func (f *Flag) JSONValue(target any) error {
	if f == nil {
		return nil
	}
	data, err := json.Marshal(f.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func (f *Flag) clone() *Flag {
	c := *f
	return &c
}

// DefaultFlags returns the flags a fresh deployment starts with.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	return map[string]*Flag{
		FlagRawNotificationMarkup: {Key: FlagRawNotificationMarkup, Value: false, UpdatedAt: now},
		FlagCachedOnlyAirQuality:  {Key: FlagCachedOnlyAirQuality, Value: false, UpdatedAt: now},
	}
}
