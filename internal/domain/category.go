package domain

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// windDigitsRe matches the first run of digits in a wind description,
// e.g. "120 mph" -> "120".
var windDigitsRe = regexp.MustCompile(`\d+`)

// IsHurricane reports whether an NHC classification is hurricane-type
// ("Hurricane", "Major Hurricane", ...).
func IsHurricane(classification string) bool {
	return strings.Contains(strings.ToLower(classification), "hurricane")
}

// DeriveCategory maps a classification and wind description to a
// Saffir-Simpson category. Non-hurricanes are 0 and the wind is not parsed.
// A hurricane with no digits in its wind description is treated as 0 mph,
// which yields category 1.
func DeriveCategory(classification, wind string) int {
	if !IsHurricane(classification) {
		return 0
	}
	return categoryForWind(parseWindMPH(wind))
}

func parseWindMPH(wind string) int {
	digits := windDigitsRe.FindString(wind)
	if digits == "" {
		return 0
	}
	mph, err := strconv.Atoi(digits)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt
	}
	if err != nil {
		return 0
	}
	return mph
}

func categoryForWind(mph int) int {
	switch {
	case mph > 156:
		return 5
	case mph > 129:
		return 4
	case mph > 110:
		return 3
	case mph > 95:
		return 2
	default:
		return 1
	}
}
