// Package codes holds the GeoNames reference vocabularies: region (country)
// codes and feature codes.
package codes

import (
	"slices"
	"strings"
)

// regions are ISO 3166-1 alpha-2 codes plus the legacy and user-assigned codes
// (AN, CS, XK, YU) that GeoNames still publishes dumps for.
var regions = []string{
	"AD", "AE", "AF", "AG", "AI", "AL", "AM", "AN", "AO", "AQ", "AR", "AS", "AT", "AU", "AW",
	"AX", "AZ", "BA", "BB", "BD", "BE", "BF", "BG", "BH", "BI", "BJ", "BL", "BM", "BN", "BO",
	"BQ", "BR", "BS", "BT", "BV", "BW", "BY", "BZ", "CA", "CC", "CD", "CF", "CG", "CH", "CI",
	"CK", "CL", "CM", "CN", "CO", "CR", "CS", "CU", "CV", "CW", "CX", "CY", "CZ", "DE", "DJ",
	"DK", "DM", "DO", "DZ", "EC", "EE", "EG", "EH", "ER", "ES", "ET", "FI", "FJ", "FK", "FM",
	"FO", "FR", "GA", "GB", "GD", "GE", "GF", "GG", "GH", "GI", "GL", "GM", "GN", "GP", "GQ",
	"GR", "GS", "GT", "GU", "GW", "GY", "HK", "HM", "HN", "HR", "HT", "HU", "ID", "IE", "IL",
	"IM", "IN", "IO", "IQ", "IR", "IS", "IT", "JE", "JM", "JO", "JP", "KE", "KG", "KH", "KI",
	"KM", "KN", "KP", "KR", "KW", "KY", "KZ", "LA", "LB", "LC", "LI", "LK", "LR", "LS", "LT",
	"LU", "LV", "LY", "MA", "MC", "MD", "ME", "MF", "MG", "MH", "MK", "ML", "MM", "MN", "MO",
	"MP", "MQ", "MR", "MS", "MT", "MU", "MV", "MW", "MX", "MY", "MZ", "NA", "NC", "NE", "NF",
	"NG", "NI", "NL", "NO", "NP", "NR", "NU", "NZ", "OM", "PA", "PE", "PF", "PG", "PH", "PK",
	"PL", "PM", "PN", "PR", "PS", "PT", "PW", "PY", "QA", "RE", "RO", "RS", "RU", "RW", "SA",
	"SB", "SC", "SD", "SE", "SG", "SH", "SI", "SJ", "SK", "SL", "SM", "SN", "SO", "SR", "SS",
	"ST", "SV", "SX", "SY", "SZ", "TC", "TD", "TF", "TG", "TH", "TJ", "TK", "TL", "TM", "TN",
	"TO", "TR", "TT", "TV", "TW", "TZ", "UA", "UG", "UM", "US", "UY", "UZ", "VA", "VC", "VE",
	"VG", "VI", "VN", "VU", "WF", "WS", "XK", "YE", "YT", "YU", "ZA", "ZM", "ZW",
}

var regionSet = toSet(regions)

// IsValidRegion reports whether code names a region GeoNames publishes a dump for.
func IsValidRegion(code string) bool {
	_, ok := regionSet[normalize(code)]
	return ok
}

// AllRegions returns every known region code in alphabetical order.
func AllRegions() []string {
	return slices.Clone(regions)
}

// Split normalizes each code and partitions them into the ones accepted by
// valid and the rejected remainder, keeping input order and dropping repeats.
func Split(in []string, valid func(string) bool) (ok, rejected []string) {
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		code := normalize(raw)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		if valid(code) {
			ok = append(ok, code)
		} else {
			rejected = append(rejected, code)
		}
	}
	return ok, rejected
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func toSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, c := range list {
		set[c] = struct{}{}
	}
	return set
}
