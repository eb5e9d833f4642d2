package tripzi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/tripzi/functions/contract"
	"github.com/tripzi/functions/log"
)

func init() {
	functions.CloudEvent("WipeOnUserDeleted", wipeOnUserDeleted)
}

// wipeOnUserDeleted handles the Firebase Auth account-deletion event. A
// returned error makes the platform redeliver the event, so only failures
// worth retrying (discovery or flush) propagate.
func wipeOnUserDeleted(ctx context.Context, e event.Event) error {
	logger := log.LoggerFromContext(ctx)
	logger.Info("user deletion event received", slog.String("eventID", e.ID()))

	var payload contract.UserDeletedEvent
	if err := e.DataAs(&payload); err != nil {
		logger.Error("error while decoding event data", slog.String(ErrorMsgLogField, err.Error()))
		return fmt.Errorf("decoding user deletion event: %w", err)
	}

	userID := payload.UserID()
	if userID == "" {
		// malformed event, retrying cannot help
		logger.Error("user deletion event without a user ID")
		return nil
	}
	logger = logger.With(slog.String(userIDLogField, userID))
	ctx = log.WithLogger(ctx, logger)

	if _, err := runWipe(ctx, userID); err != nil {
		logger.Error("error while wiping user data", slog.String(ErrorMsgLogField, err.Error()))
		return err
	}
	return nil
}
