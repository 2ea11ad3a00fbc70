package domain

import "strings"

// trackVerb is the operator command that starts tracking a storm.
const trackVerb = "track"

// ParseTrackCommands extracts ATCF ids from operator track commands such as
// "track AL132023" or "TRACK al13 2023 EP052023". Only messages authored by
// operatorID that are not from a bot count. Ids are upper-cased and returned
// in message order without duplicates.
func ParseTrackCommands(messages []ChatMessage, operatorID string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, msg := range messages {
		if msg.AuthorBot || (operatorID != "" && msg.AuthorID != operatorID) {
			continue
		}
		fields := strings.Fields(msg.Content)
		if len(fields) < 2 || !strings.EqualFold(fields[0], trackVerb) {
			continue
		}
		for _, f := range fields[1:] {
			id := strings.ToUpper(strings.Trim(f, ",;."))
			if !IsATCFID(id) || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// TrackingCandidates merges the persisted tracked set with newly commanded
// ids: existing ids first, then commanded ids in command order. Feeding the
// result to [Diff] yields the next tracked set as Diff's StillTrackable, which
// is (tracked ∪ commanded) ∩ current.
func TrackingCandidates(tracked, commanded []string) []string {
	out := make([]string, 0, len(tracked)+len(commanded))
	seen := make(map[string]bool, len(tracked)+len(commanded))
	for _, ids := range [][]string{tracked, commanded} {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
