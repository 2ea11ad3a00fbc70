package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/cyclone-relay/internal/domain"
)

const (
	timestampLayout = "Mon Jan 2 2006 15:04 MST"

	usageHint       = "Reply `track <ATCF id>` (e.g. `track AL132023`) to receive broadcast updates for a storm."
	noActiveMessage = "No active tropical cyclones."
)

// digest posts the rolling digest to the operator channel and returns its
// message id. A non-empty snapshot always gets a fresh message so the
// recipient is notified; an empty one edits the previous digest in place.
func (r *Relay) digest(ctx context.Context, logger *slog.Logger, report *domain.RunReport, channelID, previousID string, current []domain.CycloneRecord, now time.Time) (string, error) {
	if len(current) == 0 {
		body := NoActiveBody(now)
		if previousID != "" {
			err := r.deps.Messenger.EditMessage(ctx, channelID, previousID, body)
			r.recordAction(logger, report, domain.Result(domain.ActionEdit, previousID, err))
			if err == nil {
				return previousID, nil
			}
		}
		id, err := r.deps.Messenger.CreateMessage(ctx, channelID, body)
		if err != nil {
			return "", fmt.Errorf("create digest: %w", err)
		}
		return id, nil
	}

	if previousID != "" {
		err := r.deps.Messenger.DeleteMessage(ctx, channelID, previousID)
		r.recordAction(logger, report, domain.Result(domain.ActionDelete, previousID, err))
	}

	id, err := r.deps.Messenger.CreateMessage(ctx, channelID, DigestBody(current, r.deps.Images.ConeImageURL, now))
	if err != nil {
		return "", fmt.Errorf("create digest: %w", err)
	}
	return id, nil
}

// DigestBody renders the digest for a non-empty snapshot: one title line and
// cone image link per storm, blank-line separated, then the usage hint and
// the generation time.
func DigestBody(records []domain.CycloneRecord, imageURL func(domain.CycloneRecord) string, now time.Time) string {
	sections := make([]string, 0, len(records)+1)
	for _, rec := range records {
		sections = append(sections, fmt.Sprintf("**%s** - %s\n%s", domain.Title(rec), rec.ATCFID, imageURL(rec)))
	}
	sections = append(sections, usageHint+"\n"+generatedLine(now))
	return strings.Join(sections, "\n\n")
}

// NoActiveBody renders the digest for an empty snapshot.
func NoActiveBody(now time.Time) string {
	return noActiveMessage + "\n" + generatedLine(now)
}

func generatedLine(now time.Time) string {
	return "Generated " + now.UTC().Format(timestampLayout)
}
