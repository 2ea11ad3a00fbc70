package nhc

import (
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/cyclone-relay/internal/domain"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

const (
	nhcPrefix      = "nhc"
	cycloneElement = "Cyclone"
	advisoryMarker = "public advisory"
)

// cycloneFields maps <nhc:Cyclone> child elements onto typed record fields.
// "wallet" is handled separately because it is only a fallback for the
// seasonal id.
var cycloneFields = map[string]func(rec *domain.CycloneRecord, value string){
	"atcf":     func(rec *domain.CycloneRecord, v string) { rec.ATCFID = strings.ToUpper(v) },
	"type":     func(rec *domain.CycloneRecord, v string) { rec.Classification = v },
	"name":     func(rec *domain.CycloneRecord, v string) { rec.Name = v },
	"wind":     func(rec *domain.CycloneRecord, v string) { rec.Wind = v },
	"movement": func(rec *domain.CycloneRecord, v string) { rec.Movement = v },
	"pressure": func(rec *domain.CycloneRecord, v string) { rec.Pressure = v },
	"headline": func(rec *domain.CycloneRecord, v string) { rec.Headline = v },
	"center":   func(rec *domain.CycloneRecord, v string) { rec.Center = parseCenter(v) },
}

// Normalize turns a parsed basin feed into cyclone records in feed order.
// Items without an <nhc:Cyclone> element or ATCF id are skipped. Each record's
// AdvisoryPublishedAt comes from the first "Public Advisory" item whose title
// names the storm.
func Normalize(feed *gofeed.Feed, basin string) []domain.CycloneRecord {
	records := []domain.CycloneRecord{}
	if feed == nil {
		return records
	}

	for _, item := range feed.Items {
		cyclone, ok := cycloneExtension(item)
		if !ok {
			continue
		}
		rec := normalizeItem(item, cyclone, basin)
		if rec.ATCFID == "" {
			continue
		}
		rec.AdvisoryPublishedAt = findAdvisory(feed.Items, rec.Name)
		records = append(records, rec)
	}
	return records
}

func normalizeItem(item *gofeed.Item, cyclone ext.Extension, basin string) domain.CycloneRecord {
	rec := domain.CycloneRecord{Basin: basin}
	for name, set := range cycloneFields {
		if v := childValue(cyclone, name); v != "" {
			set(&rec, v)
		}
	}

	rec.SeasonalID = domain.SeasonalID(rec.ATCFID, childValue(cyclone, "wallet"))
	rec.Category = domain.DeriveCategory(rec.Classification, rec.Wind)
	rec.UpdateToken = item.GUID
	if rec.UpdateToken == "" {
		rec.UpdateToken = item.Link
	}
	return rec
}

func cycloneExtension(item *gofeed.Item) (ext.Extension, bool) {
	if item == nil || item.Extensions == nil {
		return ext.Extension{}, false
	}
	elems := item.Extensions[nhcPrefix][cycloneElement]
	if len(elems) == 0 {
		return ext.Extension{}, false
	}
	return elems[0], true
}

func childValue(e ext.Extension, name string) string {
	children := e.Children[name]
	if len(children) == 0 {
		return ""
	}
	return strings.TrimSpace(children[0].Value)
}

// findAdvisory returns the publish time of the public advisory for a storm.
func findAdvisory(items []*gofeed.Item, name string) *time.Time {
	if name == "" {
		return nil
	}
	lowerName := strings.ToLower(name)
	for _, item := range items {
		title := strings.ToLower(item.Title)
		if !strings.Contains(title, advisoryMarker) || !strings.Contains(title, lowerName) {
			continue
		}
		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			return &t
		}
	}
	return nil
}

// parseCenter parses "21.7, -61.9" into a coordinate pair. Unparseable
// values yield the zero Geo.
func parseCenter(s string) domain.Geo {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.Geo{}
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil {
		return domain.Geo{}
	}
	return domain.Geo{Lat: lat, Lon: lon}
}
