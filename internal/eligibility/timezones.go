package eligibility

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// countryZones maps ISO codes and common country names to a representative business zone.
var countryZones = map[string]string{
	"us": "America/New_York", "usa": "America/New_York", "united states": "America/New_York",
	"ca": "America/Toronto", "canada": "America/Toronto",
	"mx": "America/Mexico_City", "mexico": "America/Mexico_City",
	"br": "America/Sao_Paulo", "brazil": "America/Sao_Paulo",
	"ar": "America/Argentina/Buenos_Aires", "argentina": "America/Argentina/Buenos_Aires",
	"gb": "Europe/London", "uk": "Europe/London", "united kingdom": "Europe/London",
	"ie": "Europe/Dublin", "ireland": "Europe/Dublin",
	"pt": "Europe/Lisbon", "portugal": "Europe/Lisbon",
	"es": "Europe/Madrid", "spain": "Europe/Madrid",
	"fr": "Europe/Paris", "france": "Europe/Paris",
	"be": "Europe/Brussels", "belgium": "Europe/Brussels",
	"nl": "Europe/Amsterdam", "netherlands": "Europe/Amsterdam",
	"de": "Europe/Berlin", "germany": "Europe/Berlin",
	"ch": "Europe/Zurich", "switzerland": "Europe/Zurich",
	"at": "Europe/Vienna", "austria": "Europe/Vienna",
	"it": "Europe/Rome", "italy": "Europe/Rome",
	"dk": "Europe/Copenhagen", "denmark": "Europe/Copenhagen",
	"se": "Europe/Stockholm", "sweden": "Europe/Stockholm",
	"no": "Europe/Oslo", "norway": "Europe/Oslo",
	"fi": "Europe/Helsinki", "finland": "Europe/Helsinki",
	"pl": "Europe/Warsaw", "poland": "Europe/Warsaw",
	"cz": "Europe/Prague", "czechia": "Europe/Prague", "czech republic": "Europe/Prague",
	"gr": "Europe/Athens", "greece": "Europe/Athens",
	"ro": "Europe/Bucharest", "romania": "Europe/Bucharest",
	"tr": "Europe/Istanbul", "turkey": "Europe/Istanbul",
	"il": "Asia/Jerusalem", "israel": "Asia/Jerusalem",
	"ae": "Asia/Dubai", "uae": "Asia/Dubai", "united arab emirates": "Asia/Dubai",
	"za": "Africa/Johannesburg", "south africa": "Africa/Johannesburg",
	"ng": "Africa/Lagos", "nigeria": "Africa/Lagos",
	"ke": "Africa/Nairobi", "kenya": "Africa/Nairobi",
	"eg": "Africa/Cairo", "egypt": "Africa/Cairo",
	"in": "Asia/Kolkata", "india": "Asia/Kolkata",
	"sg": "Asia/Singapore", "singapore": "Asia/Singapore",
	"hk": "Asia/Hong_Kong", "hong kong": "Asia/Hong_Kong",
	"jp": "Asia/Tokyo", "japan": "Asia/Tokyo",
	"kr": "Asia/Seoul", "south korea": "Asia/Seoul",
	"cn": "Asia/Shanghai", "china": "Asia/Shanghai",
	"ph": "Asia/Manila", "philippines": "Asia/Manila",
	"id": "Asia/Jakarta", "indonesia": "Asia/Jakarta",
	"au": "Australia/Sydney", "australia": "Australia/Sydney",
	"nz": "Pacific/Auckland", "new zealand": "Pacific/Auckland",
}

var (
	zoneMu    sync.Mutex
	zoneCache = map[string]*time.Location{}
)

// locationFor resolves a prospect country to a zone, or returns nil when the country is unknown.
func locationFor(country string) *time.Location {
	name, ok := countryZones[strings.ToLower(strings.TrimSpace(country))]
	if !ok {
		return nil
	}

	zoneMu.Lock()
	defer zoneMu.Unlock()
	if loc, ok := zoneCache[name]; ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil
	}
	zoneCache[name] = loc
	return loc
}
