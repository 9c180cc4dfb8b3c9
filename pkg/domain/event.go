package domain

import (
	"encoding/json"
	"strings"
	"unicode"
)

// Event is a single conference entry in the catalog. Field names are the
// wire shape consumed by the map and listing frontends.
type Event struct {
	ID              string   `json:"id"`
	EventName       string   `json:"eventName"`
	Topic           string   `json:"topic"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	City            string   `json:"city"`
	Country         string   `json:"country"`
	LocationRaw     string   `json:"locationRaw"`
	Quarter         string   `json:"quarter"`
	Organizer       string   `json:"organizer"`
	RegistrationURL string   `json:"registrationUrl"`
	Description     string   `json:"description"`
	Tags            string   `json:"tags"`
	Price           string   `json:"price"`
	Lat             *float64 `json:"lat"`
	Lng             *float64 `json:"lng"`
}

// Coordinates is a resolved latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

const (
	DefaultPrice            = "TBD"
	PlaceholderRegistration = "#"
)

// UnmarshalJSON accepts the legacy "location_raw" key written by older
// catalog files in addition to "locationRaw".
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	aux := struct {
		*plain
		LegacyLocationRaw *string `json:"location_raw"`
	}{plain: (*plain)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if e.LocationRaw == "" && aux.LegacyLocationRaw != nil {
		e.LocationRaw = *aux.LegacyLocationRaw
	}
	return nil
}

func (e *Event) HasCoordinates() bool {
	return e.Lat != nil && e.Lng != nil
}

// Coordinates returns the event position, if resolved.
func (e *Event) Coordinates() (Coordinates, bool) {
	if !e.HasCoordinates() {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *e.Lat, Lng: *e.Lng}, true
}

// SetCoordinates stores c on the event; nil clears both fields.
func (e *Event) SetCoordinates(c *Coordinates) {
	if c == nil {
		e.Lat, e.Lng = nil, nil
		return
	}
	lat, lng := c.Lat, c.Lng
	e.Lat, e.Lng = &lat, &lng
}

// RefreshID recomputes the stable id from the event's own fields.
func (e *Event) RefreshID() {
	e.ID = GenerateID(e.EventName, e.StartDate, e.LocationRaw)
}

const idStripChars = "<>:\"/\\|?*'`"

// GenerateID derives the stable identifier used to de-duplicate events
// across re-ingestions. Rows with the same name, start date and raw
// location always collide.
func GenerateID(eventName, startDate, locationRaw string) string {
	id := strings.TrimSpace(eventName) + "_" + strings.TrimSpace(startDate) + "_" + strings.TrimSpace(locationRaw)

	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		if strings.ContainsRune(idStripChars, r) {
			return -1
		}
		return r
	}, id)
}
