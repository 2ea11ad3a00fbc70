package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/cyclone-relay/internal/domain"
)

// broadcast posts one pinned image message per updated storm to the
// broadcast channel and returns the new message ids. The previous broadcast
// messages are unpinned before the first new post.
func (r *Relay) broadcast(ctx context.Context, logger *slog.Logger, report *domain.RunReport, previous []string, updated []domain.CycloneRecord) ([]string, error) {
	channel := r.opts.BroadcastChannelID
	pending := previous
	ids := make([]string, 0, len(updated))

	for _, rec := range updated {
		for _, id := range pending {
			err := r.deps.Messenger.UnpinMessage(ctx, channel, id)
			r.recordAction(logger, report, domain.Result(domain.ActionUnpin, id, err))
		}
		pending = nil

		image, err := r.deps.Images.ConeImage(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("fetch cone image for %s: %w", rec.ATCFID, err)
		}

		id, err := r.deps.Messenger.CreateImageMessage(ctx, channel, BroadcastBody(rec), coneFilename(rec), image)
		if err != nil {
			return nil, fmt.Errorf("create broadcast for %s: %w", rec.ATCFID, err)
		}
		logger.Info("broadcast posted", "atcf", rec.ATCFID, "message_id", id)

		// The message is already posted; aborting here would repost it next run.
		err = r.deps.Messenger.PinMessage(ctx, channel, id)
		r.recordAction(logger, report, domain.Result(domain.ActionPin, id, err))

		ids = append(ids, id)
	}
	return ids, nil
}

// BroadcastBody renders the text of a broadcast message. The first line is
// always the bold storm title.
func BroadcastBody(rec domain.CycloneRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", domain.Title(rec))
	if rec.Headline != "" {
		fmt.Fprintf(&b, "\n%s", rec.Headline)
	}

	var details []string
	if rec.Wind != "" {
		details = append(details, "Wind: "+rec.Wind)
	}
	if rec.Movement != "" {
		details = append(details, "Movement: "+rec.Movement)
	}
	if rec.Pressure != "" {
		details = append(details, "Pressure: "+rec.Pressure)
	}
	if len(details) > 0 {
		fmt.Fprintf(&b, "\n%s", strings.Join(details, " | "))
	}

	if rec.Place != "" {
		fmt.Fprintf(&b, "\nNear %s", rec.Place)
	}
	if rec.AdvisoryPublishedAt != nil {
		fmt.Fprintf(&b, "\nAdvisory issued %s", rec.AdvisoryPublishedAt.UTC().Format(timestampLayout))
	}
	return b.String()
}

func coneFilename(rec domain.CycloneRecord) string {
	return rec.ATCFID + "_5day_cone_with_line_and_wind.png"
}
