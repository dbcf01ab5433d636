package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/melvin/internal/client/services"
)

// Export uploads the active conversation's transcript to the archive bucket.
func (a *App) Export(ctx context.Context) error {
	key, err := a.archive.Export(ctx)
	switch {
	case errors.Is(err, services.ErrArchiveDisabled):
		a.say("Transcript archive is not configured (set -b or archive_bucket).")
		return nil
	case errors.Is(err, services.ErrNoActiveConversation):
		a.say("No conversation selected.")
		return nil
	case err != nil:
		a.log.Error(ctx, "export failed", "error", err)
		a.say("Export failed.")
		return err
	}
	a.say("Transcript saved to s3://%s/%s", a.config.ArchiveBucket, key)
	return nil
}
