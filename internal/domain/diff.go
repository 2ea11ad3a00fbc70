package domain

// DiffResult is the outcome of comparing two snapshots for a tracked set.
type DiffResult struct {
	// Updated holds the current record of every tracked storm that is new or
	// whose update token changed, in tracked-set order.
	Updated []CycloneRecord
	// StillTrackable holds the tracked ids still present in the current snapshot.
	StillTrackable []string
}

// Diff compares previous and current snapshots for the given tracked ids.
// Ids missing from current are dropped. Updated follows the iteration order of
// tracked, not feed order. Repeated tracked ids count once. Duplicate ids
// within a snapshot are tolerated; the later record wins.
func Diff(tracked []string, previous, current []CycloneRecord) DiffResult {
	prev := indexByID(previous)
	cur := indexByID(current)

	result := DiffResult{
		Updated:        []CycloneRecord{},
		StillTrackable: []string{},
	}
	done := make(map[string]bool, len(tracked))
	for _, id := range tracked {
		if done[id] {
			continue
		}
		done[id] = true

		rec, ok := cur[id]
		if !ok {
			continue
		}
		result.StillTrackable = append(result.StillTrackable, id)
		if old, seen := prev[id]; !seen || old.UpdateToken != rec.UpdateToken {
			result.Updated = append(result.Updated, rec)
		}
	}
	return result
}

// Dissipated lists ids present in previous but absent from current, in the
// order of previous.
func Dissipated(previous, current []CycloneRecord) []string {
	cur := indexByID(current)
	seen := make(map[string]bool, len(previous))
	var gone []string
	for _, rec := range previous {
		if _, ok := cur[rec.ATCFID]; ok || seen[rec.ATCFID] {
			continue
		}
		seen[rec.ATCFID] = true
		gone = append(gone, rec.ATCFID)
	}
	return gone
}

// IDs returns the ATCF ids of a snapshot in feed order.
func IDs(records []CycloneRecord) []string {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ATCFID)
	}
	return ids
}

func indexByID(records []CycloneRecord) map[string]CycloneRecord {
	m := make(map[string]CycloneRecord, len(records))
	for _, rec := range records {
		m[rec.ATCFID] = rec
	}
	return m
}
