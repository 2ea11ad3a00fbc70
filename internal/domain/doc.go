// Package domain models National Hurricane Center (NHC) tropical cyclone data
// and the per-run reconciliation rules that decide what gets relayed.
//
// # Data Source
//
// Active storms come from the NHC basin RSS feeds, e.g.
// https://www.nhc.noaa.gov/index-at.xml (Atlantic) and index-ep.xml (Eastern
// Pacific). Each storm has one summary item carrying an <nhc:Cyclone> element;
// the feed adapter maps those child elements onto [CycloneRecord].
//
// # NHC Conventions
//
// ATCF identifier:
//
//	"<basin><number><year>"  →  e.g. "AL132023"
//	Basin codes: AL (Atlantic), EP (Eastern Pacific), CP (Central Pacific).
//	Unique for the storm's lifetime. The primary key everywhere in this service.
//
// Wallet (seasonal identifier):
//
//	"<wallet basin><number>"  →  e.g. "AT13"
//	Wallet basins: AT, EP, CP. The number is reused across seasons, so it is
//	only used to build storm_graphics URLs. The feed sometimes drops the
//	leading zero ("AT9"); [SeasonalID] always pads to two digits.
//
// Wind:
//
//	Free text such as "120 mph". Only the first run of digits is used.
//
// Update token:
//
//	The summary item's <guid>. NHC rotates it whenever the entry is revised,
//	including cosmetic revisions. Token inequality is the only change signal.
//
// # Category
//
// Saffir-Simpson category from sustained wind (mph), hurricanes only:
//
//	>156 → 5 | >129 → 4 | >110 → 3 | >95 → 2 | otherwise 1
//
// Tropical storms, depressions and post-tropical systems are category 0.
// See [DeriveCategory].
package domain
