// Package address resolves a parcel's situs string into the
// street/city/state/zip tuple the USPS Address API requires, and falls
// back to Nominatim when city/zip are missing. Grounded verbatim on
// original_source/src/usps/vacancy.py (split_situs) and
// original_source/src/usps/geocode.py (resolve_city_zip).
package address

import "strings"

// stateCodes is the set of US state/territory abbreviations recognized as
// the trailing token of a situs string.
var stateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "FL": true, "GA": true, "HI": true, "ID": true,
	"IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true,
	"ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true,
	"OR": true, "PA": true, "RI": true, "SC": true, "SD": true, "TN": true,
	"TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true,
}

// ambiguousStateSuffix are codes that are both a state abbreviation and a
// common street suffix (CT=Court/Connecticut, IN=Indiana/preposition, ...).
var ambiguousStateSuffix = map[string]bool{"CT": true, "IN": true, "AL": true, "ME": true, "OR": true}

var streetSuffixes = map[string]bool{
	"ST": true, "AVE": true, "AV": true, "RD": true, "DR": true, "LN": true,
	"CT": true, "CIR": true, "BLVD": true, "WAY": true, "PL": true, "TRL": true,
	"LOOP": true, "HWY": true, "PKY": true, "PKWY": true, "COVE": true, "CV": true,
	"RUN": true, "PATH": true, "PASS": true, "PT": true, "PIKE": true, "SQ": true,
	"TER": true, "TERR": true, "ALY": true, "ROW": true, "WALK": true, "XING": true,
	"EXT": true, "BND": true, "CRES": true, "GRV": true, "HOLW": true, "IS": true,
	"KNL": true, "LK": true, "LNDG": true, "MALL": true, "MNR": true, "MDW": true,
	"MDWS": true, "ML": true, "MLS": true, "OVAL": true, "PARK": true, "PLZ": true,
	"RIDGE": true, "RDG": true, "SHR": true, "SPG": true, "SPUR": true, "TRCE": true,
	"VLY": true, "VW": true, "VISTA": true,
}

var skipCityWords = map[string]bool{
	"UNINC": true, "UNINCORP": true, "UNINCORPORATED": true, "COUNTY": true,
	"TWP": true, "TOWNSHIP": true,
}

// Situs is the parsed address tuple split_situs produces.
type Situs struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

// SplitSitus parses a situs string into street/city/state/zip, falling
// back to fallbackCity/fallbackState whenever the string itself doesn't
// carry enough information. See original_source/src/usps/vacancy.py's
// split_situs docstring for the worked examples this grammar handles.
func SplitSitus(situs, fallbackState, fallbackCity string) Situs {
	parts := strings.Fields(strings.TrimSpace(situs))
	if len(parts) == 0 {
		return Situs{Street: situs, City: fallbackCity, State: fallbackState}
	}

	var zip string
	last := parts[len(parts)-1]
	if isFiveDigitZip(last) {
		zip = last
		parts = parts[:len(parts)-1]
	} else if isZipPlus4(last) {
		zip = last[:5]
		parts = parts[:len(parts)-1]
	}

	if len(parts) == 0 {
		return Situs{Street: strings.TrimSpace(situs), City: fallbackCity, State: fallbackState, ZipCode: zip}
	}

	if len(parts) >= 3 && stateCodes[strings.ToUpper(parts[len(parts)-1])] {
		state := strings.ToUpper(parts[len(parts)-1])

		if ambiguousStateSuffix[state] && fallbackState != "" && state != strings.ToUpper(fallbackState) {
			return Situs{Street: strings.Join(parts, " "), City: fallbackCity, State: fallbackState, ZipCode: zip}
		}

		cityCandidate := strings.ToUpper(parts[len(parts)-2])
		if skipCityWords[cityCandidate] || isAllDigits(cityCandidate) {
			street := strings.Join(parts[:len(parts)-2], " ")
			return Situs{Street: street, City: fallbackCity, State: state, ZipCode: zip}
		}

		var cityParts []string
		idx := len(parts) - 2
		for idx > 0 {
			token := strings.TrimRight(strings.ToUpper(parts[idx]), ",.")
			if streetSuffixes[token] {
				break
			}
			cityParts = append([]string{parts[idx]}, cityParts...)
			idx--
		}

		if len(cityParts) > 0 {
			street := strings.Join(parts[:idx+1], " ")
			city := strings.Join(cityParts, " ")
			return Situs{Street: street, City: city, State: state, ZipCode: zip}
		}
		street := strings.Join(parts[:len(parts)-2], " ")
		return Situs{Street: street, City: parts[len(parts)-2], State: state, ZipCode: zip}
	}

	return Situs{Street: strings.Join(parts, " "), City: fallbackCity, State: fallbackState, ZipCode: zip}
}

func isFiveDigitZip(s string) bool { return len(s) == 5 && isAllDigits(s) }

func isZipPlus4(s string) bool {
	return len(s) == 10 && s[5] == '-' && isAllDigits(s[:5]) && isAllDigits(s[6:])
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DetectMismatch reports whether USPS's normalized street address differs
// meaningfully from the input, mirroring _detect_mismatch's
// contained-substring and matching-house-number heuristics.
func DetectMismatch(input, uspsAddr string) bool {
	if uspsAddr == "" {
		return false
	}
	a := strings.Join(strings.Fields(strings.ToUpper(input)), " ")
	b := strings.Join(strings.Fields(strings.ToUpper(uspsAddr)), " ")
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return false
	}
	aParts := strings.Fields(a)
	bParts := strings.Fields(b)
	if len(aParts) > 0 && len(bParts) > 0 && aParts[0] == bParts[0] {
		return false
	}
	return true
}
