package astro

import "time"

// Body enumerates the nine tracked celestial points.
type Body string

const (
	Sun     Body = "SUN"
	Moon    Body = "MOON"
	Mercury Body = "MERCURY"
	Venus   Body = "VENUS"
	Mars    Body = "MARS"
	Jupiter Body = "JUPITER"
	Saturn  Body = "SATURN"
	// Rahu is the mean ascending lunar node; Ketu tracks the true
	// (osculating) ascending node. The pair is intentionally asymmetric.
	Rahu Body = "RAHU"
	Ketu Body = "KETU"
)

// Bodies lists every tracked body; a chart is complete only with all nine.
var Bodies = []Body{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Rahu, Ketu}

// BirthDescriptor is the input to the chart pipeline. All five fields must
// be present and valid before any computation proceeds. Lat and Lng are
// pointers so that an absent coordinate is distinguishable from 0 degrees.
type BirthDescriptor struct {
	Date string   `json:"date"`
	Time string   `json:"time"`
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	Zone string   `json:"zone"`
}

// Complete reports whether every field of the descriptor was supplied.
// Fortune requests use it to decide if chart enrichment is possible at all.
func (b BirthDescriptor) Complete() bool {
	return b.Date != "" && b.Time != "" && b.Zone != "" && b.Lat != nil && b.Lng != nil
}

// NormalizedInstant is the birth moment with all zone ambiguity resolved.
type NormalizedInstant struct {
	UTC       time.Time
	JulianDay float64
}

// Houses carries the Placidus house cusps for one chart.
type Houses struct {
	// Cusps[0] is the first house cusp (the ascendant), in ecliptic degrees.
	Cusps     [12]float64
	Ascendant float64
	MC        float64
}

// ChartResult is the pipeline output, already shaped for the wire.
type ChartResult struct {
	Status    string           `json:"status"`
	Message   string           `json:"message,omitempty"`
	UTC       string           `json:"utc,omitempty"`
	JulianDay float64          `json:"julianDay,omitempty"`
	Planets   map[Body]float64 `json:"planets,omitempty"`
	Ascendant float64          `json:"ascendant,omitempty"`
	Houses    []float64        `json:"houses,omitempty"`
}
