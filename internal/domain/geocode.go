package domain

import "context"

// EnrichWithPlace sets Place from the storm centre when a geocoder is
// configured. A nil geocoder, missing coordinates or an empty result leave the
// record untouched. The returned error is informational; the record is always
// usable (graceful degradation).
func EnrichWithPlace(ctx context.Context, rec CycloneRecord, geocoder Geocoder) (CycloneRecord, error) {
	if geocoder == nil {
		return rec, nil
	}
	if rec.Center.Lat == 0 && rec.Center.Lon == 0 {
		return rec, nil
	}

	result, err := geocoder.ReverseGeocode(ctx, rec.Center.Lat, rec.Center.Lon)
	if err != nil {
		return rec, err
	}
	if result.FormattedAddress != "" {
		rec.Place = result.FormattedAddress
	}
	return rec, nil
}
