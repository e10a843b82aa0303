package export

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// UnknownCountry groups nodes without a resolvable country, onions included.
const UnknownCountry = "TOR Node/Unknown"

// Location is one lat/lng bucket within a country.
type Location struct {
	City      *string `json:"City"`
	Count     int     `json:"Count"`
	Latitude  float64 `json:"Latitude"`
	Longitude float64 `json:"Longitude"`
}

// Aggregates is the visualization summary of one snapshot.
type Aggregates struct {
	Countries     map[string]int                    `json:"Countries"`
	Versions      map[string]int                    `json:"Versions"`
	CountryLatLng map[string]map[string]*Location `json:"CountryLatLng"`
}

// Aggregate counts nodes per country, per user agent, and per coordinate
// bucket within each country.
func Aggregate(rows []Row) Aggregates {
	agg := Aggregates{
		Countries:     make(map[string]int),
		Versions:      make(map[string]int),
		CountryLatLng: make(map[string]map[string]*Location),
	}

	for _, r := range rows {
		country := CountryName(r.GeoIP.CountryCode)
		version := strings.Trim(r.Node.UserAgent, "/")
		lat, lng := r.GeoIP.Latitude, r.GeoIP.Longitude
		bucket := formatCoord(lat) + "#" + formatCoord(lng)

		agg.Countries[country]++
		agg.Versions[version]++

		buckets, ok := agg.CountryLatLng[country]
		if !ok {
			buckets = make(map[string]*Location)
			agg.CountryLatLng[country] = buckets
		}
		loc, ok := buckets[bucket]
		if !ok {
			loc = &Location{}
			buckets[bucket] = loc
		}
		loc.City = r.GeoIP.City
		loc.Count++
		loc.Latitude = lat
		loc.Longitude = lng
	}
	return agg
}

// isoNames holds the ISO 3166-1 short names where CLDR display names differ.
// Exported aggregates have always been keyed by the ISO form.
var isoNames = map[string]string{
	"AG": "Antigua and Barbuda",
	"BA": "Bosnia and Herzegovina",
	"BL": "Saint Barthélemy",
	"BN": "Brunei Darussalam",
	"BO": "Bolivia, Plurinational State of",
	"BQ": "Bonaire, Sint Eustatius and Saba",
	"CD": "Congo, The Democratic Republic of the",
	"CG": "Congo",
	"CI": "Côte d'Ivoire",
	"CV": "Cabo Verde",
	"FK": "Falkland Islands (Malvinas)",
	"FM": "Micronesia, Federated States of",
	"GS": "South Georgia and the South Sandwich Islands",
	"HK": "Hong Kong",
	"HM": "Heard Island and McDonald Islands",
	"IR": "Iran, Islamic Republic of",
	"KN": "Saint Kitts and Nevis",
	"KP": "Korea, Democratic People's Republic of",
	"KR": "Korea, Republic of",
	"LA": "Lao People's Democratic Republic",
	"LC": "Saint Lucia",
	"MD": "Moldova, Republic of",
	"MF": "Saint Martin (French part)",
	"MM": "Myanmar",
	"MO": "Macao",
	"PM": "Saint Pierre and Miquelon",
	"PN": "Pitcairn",
	"PS": "Palestine, State of",
	"RU": "Russian Federation",
	"SH": "Saint Helena, Ascension and Tristan da Cunha",
	"SJ": "Svalbard and Jan Mayen",
	"ST": "Sao Tome and Principe",
	"SX": "Sint Maarten (Dutch part)",
	"SY": "Syrian Arab Republic",
	"TC": "Turks and Caicos Islands",
	"TT": "Trinidad and Tobago",
	"TW": "Taiwan, Province of China",
	"TZ": "Tanzania, United Republic of",
	"UM": "United States Minor Outlying Islands",
	"VA": "Holy See (Vatican City State)",
	"VC": "Saint Vincent and the Grenadines",
	"VE": "Venezuela, Bolivarian Republic of",
	"VG": "Virgin Islands, British",
	"VI": "Virgin Islands, U.S.",
	"VN": "Viet Nam",
	"WF": "Wallis and Futuna",
}

// CountryName maps an ISO 3166-1 alpha-2 code to its English short name.
func CountryName(code *string) string {
	if code == nil {
		return UnknownCountry
	}
	if name, ok := isoNames[strings.ToUpper(*code)]; ok {
		return name
	}
	region, err := language.ParseRegion(*code)
	if err != nil {
		return UnknownCountry
	}
	name := display.English.Regions().Name(region)
	if name == "" {
		return UnknownCountry
	}
	return name
}

// formatCoord renders a coordinate the way bucket keys have always been
// written: shortest decimal form, whole numbers keeping a ".0".
func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
