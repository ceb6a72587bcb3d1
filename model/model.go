package model

import (
	"strconv"
	"strings"
)

// Holds the typed entities parsed from a static schedule dump, plus
// the derived ScheduleIndex. Rows are parsed into these types once at
// load time; nothing downstream re-reads raw CSV records.

type ExceptionType int8

const (
	ServiceAdded   ExceptionType = 1
	ServiceRemoved ExceptionType = 2
)

// Occupancy ordinals as reported by the realtime vehicle feed. The
// congestion store sums these directly, which assumes the feed uses
// the standard 0..6 scale.
const (
	OccupancyEmpty = iota
	OccupancyManySeats
	OccupancyFewSeats
	OccupancyStandingRoom
	OccupancyCrushedStandingRoom
	OccupancyFull
	OccupancyNotAccepting
)

type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

type Trip struct {
	ID        string
	RouteID   string
	ServiceID string
	Headsign  string
}

type Route struct {
	ID        string
	ShortName string
	LongName  string
}

// DisplayName prefers the long name, falls back to the short name,
// and strips leading zeros either way.
func (r Route) DisplayName() string {
	name := r.LongName
	if name == "" {
		name = r.ShortName
	}
	return strings.TrimLeft(name, "0")
}

type StopTime struct {
	TripID       string
	StopID       string
	StopSequence uint32
	Departure    string // HH:MM:SS, hours may exceed 23
	PickupType   int8
	Headsign     string
}

// DepartureSeconds converts the departure time to seconds since the
// service day's midnight. Past-midnight hours (24+) carry through.
func (st StopTime) DepartureSeconds() int {
	parts := strings.SplitN(st.Departure, ":", 3)
	if len(parts) != 3 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.Atoi(parts[2])
	return h*3600 + m*60 + s
}

type Calendar struct {
	ServiceID string
	StartDate string // YYYYMMDD
	EndDate   string // YYYYMMDD
	Weekday   int8   // bitmask, bit N set when time.Weekday(N) is active
}

type CalendarDate struct {
	ServiceID     string
	Date          string // YYYYMMDD
	ExceptionType ExceptionType
}

type Translation struct {
	Language    string
	FieldValue  string
	Translation string
}

// StaticData is one operator's full static schedule file set, parsed.
type StaticData struct {
	Stops         []Stop
	Routes        []Route
	Trips         []Trip
	StopTimes     []StopTime
	Calendars     []Calendar
	CalendarDates []CalendarDate
	Translations  []Translation
}

type Location struct {
	Lat float64
	Lon float64
}

type TripInfo struct {
	RouteID  string
	Headsign string
}

// ScheduleIndex is the searchable structure derived from a StaticData
// set. It is rebuilt wholesale on each static refresh and never
// mutated afterwards; queries treat it as an immutable snapshot.
type ScheduleIndex struct {
	// Normalized stop name to stop IDs, orthographic and phonetic.
	StopsByName     map[string]map[string]bool
	StopsByKanaName map[string]map[string]bool

	StopNames     map[string]string
	StopLocations map[string]Location

	// Stop ID to the trips that pass through it, with trips that
	// terminate at the stop removed.
	TripsByStop map[string]map[string]bool

	TripInfo   map[string]TripInfo
	RouteNames map[string]string

	// Trip ID to stop_sequence to stop display name.
	StopNameBySequence map[string]map[uint32]string
}

// StopName returns the display name of the stop at the given sequence
// of the given trip, or "" if unknown.
func (idx *ScheduleIndex) StopName(tripID string, seq uint32) string {
	seqs, ok := idx.StopNameBySequence[tripID]
	if !ok {
		return ""
	}
	return seqs[seq]
}

// RealtimeFeeds holds the raw bytes of an operator's two realtime
// feeds from the most recent successful poll. A fetch's bytes are
// swapped in atomically, never partially overwritten.
type RealtimeFeeds struct {
	VehiclePositions []byte
	TripUpdates      []byte
}
