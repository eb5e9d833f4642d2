package tripzi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/tripzi/functions/audit"
	"github.com/tripzi/functions/auth"
	"github.com/tripzi/functions/contract"
	"github.com/tripzi/functions/log"
	"github.com/tripzi/functions/store"
	"github.com/tripzi/functions/wipe"
)

func init() {
	functions.HTTP("Wipe", Wipe)
}

// Wipe is the administrative trigger for the account data wipe. Admin-only:
// the bearer token must carry the admin custom claim.
func Wipe(w http.ResponseWriter, r *http.Request) {
	ctx := log.WithTrace(r.Context(), r)
	logger := log.LoggerFromContext(ctx)
	logger.Info("wipe function called")

	if r.Method != http.MethodPost {
		logger.Error("invalid method: " + r.Method)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	token, err := auth.AuthenticateAdmin(r)
	if err != nil {
		logger.Error("error while authenticating", slog.String(ErrorMsgLogField, err.Error()))
		if auth.IsNotAdmin(err) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req contract.WipeRequest
	data, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("error while reading request body", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Error("error while decoding request", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		logger.Error("missing user_id")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	logger = logger.With(
		slog.String(userIDLogField, req.UserID),
		slog.String("adminID", token.UID),
	)
	ctx = log.WithLogger(ctx, logger)

	sum, err := runWipe(ctx, req.UserID)
	if err != nil {
		logger.Error("error while wiping user data", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(wipeResponse(sum)); err != nil {
		logger.Error("error while encoding response", slog.String(ErrorMsgLogField, err.Error()))
	}
}

// runWipe wires the production stores to the orchestrator and records the
// audit receipt.
func runWipe(ctx context.Context, userID string) (*wipe.Summary, error) {
	st, err := store.NewFirestore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	blobs, err := store.NewBucket(ctx)
	if err != nil {
		return nil, err
	}

	wiper := &wipe.Wiper{Store: st, Blobs: blobs}
	sum, err := wiper.Wipe(ctx, userID)
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, sum)
	return sum, nil
}

func wipeResponse(sum *wipe.Summary) contract.WipeResponse {
	return contract.WipeResponse{
		UserID:          sum.UserID,
		TripsDeleted:    sum.TripsDeleted,
		RatingsDeleted:  sum.RatingsDeleted,
		ReportsDeleted:  sum.ReportsDeleted,
		FeedbackDeleted: sum.FeedbackDeleted,
		ChatsDeleted:    sum.ChatsDeleted,
		ChatsUpdated:    sum.ChatsUpdated,
		MessagesDeleted: sum.MessagesDeleted,
		TripsUpdated:    sum.TripsUpdated,
		UsersUpdated:    sum.UsersUpdated,
		StorageFailures: sum.StorageFailures,
	}
}
