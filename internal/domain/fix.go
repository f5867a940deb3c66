package domain

import (
	"fmt"
	"time"
)

// fixTimeLayout renders fix timestamps as HH:mm:ss.SSS.
const fixTimeLayout = "15:04:05.000"

// Fix is a single reported geographic position.
// It is copied by value everywhere; nothing holds a pointer into a Fix.
type Fix struct {
	Time      time.Time `json:"time" yaml:"time"`
	Latitude  float64   `json:"lat" yaml:"lat"`
	Longitude float64   `json:"lon" yaml:"lon"`
}

// Text formats the fix as "(HH:mm:ss.SSS - lat, lon)".
func (f Fix) Text() string {
	return fmt.Sprintf("(%s - %v, %v)", f.Time.Format(fixTimeLayout), f.Latitude, f.Longitude)
}

// UnavailableText is shown by the persistent indicator before any fix arrives.
const UnavailableText = "Location info is unavailable"

// IndicatorText returns the persistent indicator body for an optional fix.
func IndicatorText(f *Fix) string {
	if f == nil {
		return UnavailableText
	}
	return f.Text()
}
