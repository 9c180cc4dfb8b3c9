// Package location splits free-text venue strings into city and country.
package location

import "strings"

// knownCountries are the trailing tokens accepted as a country in
// space-separated locations such as "Amsterdam Netherlands". Matching is
// case-sensitive.
var knownCountries = map[string]bool{
	"India": true, "USA": true, "UK": true, "Japan": true, "China": true,
	"Korea": true, "France": true, "Germany": true, "Spain": true, "Italy": true,
	"Canada": true, "Australia": true, "Netherlands": true, "Singapore": true,
	"Malaysia": true, "Taiwan": true, "Morocco": true, "Sweden": true,
	"Romania": true, "UAE": true, "UAE.": true,
}

// Parse extracts a best-effort city and country from raw. Rules, in order:
//
//	"Venue, City, Country"   -> first and last comma segments
//	"Venue | Venue | City"   -> last pipe segment
//	"City Country"           -> trailing token when it is a known country
//
// Anything else is returned whole as the city with an empty country.
func Parse(raw string) (city, country string) {
	raw = strings.TrimSpace(raw)

	switch {
	case strings.Contains(raw, ","):
		return extremes(raw)

	case strings.Contains(raw, "|"):
		parts := strings.Split(raw, "|")
		city = strings.TrimSpace(parts[len(parts)-1])
		// never true while the comma rule above runs first
		if strings.Contains(city, ",") {
			return extremes(city)
		}
		return city, ""

	default:
		tokens := strings.Fields(raw)
		if len(tokens) >= 2 && knownCountries[tokens[len(tokens)-1]] {
			last := tokens[len(tokens)-1]
			return strings.Join(tokens[:len(tokens)-1], " "), strings.TrimSuffix(last, ".")
		}
		return raw, ""
	}
}

func extremes(s string) (string, string) {
	parts := strings.Split(s, ",")
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[len(parts)-1])
}
