package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// atcfRe matches an ATCF identifier such as "AL132023".
	atcfRe = regexp.MustCompile(`^([A-Z]{2})(\d{2})(\d{4})$`)

	// walletRe matches a feed wallet such as "AT9" or "AT13".
	walletRe = regexp.MustCompile(`^([A-Z]{2})(\d{1,2})$`)
)

// walletBasins maps ATCF basin codes to the prefixes used in NHC wallets.
var walletBasins = map[string]string{
	"AL": "AT",
	"EP": "EP",
	"CP": "CP",
}

// IsATCFID reports whether s looks like an ATCF identifier.
func IsATCFID(s string) bool {
	return atcfRe.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// SeasonalID derives the wallet identifier used in storm_graphics URLs.
// The ATCF id wins when it parses; the feed wallet is only a fallback.
func SeasonalID(atcfID, wallet string) string {
	if m := atcfRe.FindStringSubmatch(strings.ToUpper(atcfID)); m != nil {
		prefix, ok := walletBasins[m[1]]
		if !ok {
			prefix = m[1]
		}
		return prefix + m[2]
	}
	if m := walletRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(wallet))); m != nil {
		n, err := strconv.Atoi(m[2])
		if err == nil {
			return fmt.Sprintf("%s%02d", m[1], n)
		}
	}
	return ""
}
