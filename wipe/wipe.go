// Package wipe removes every trace of a deleted account: the user's own
// records, everything the user owned, and references to the user held by
// other users' records. Document mutations are queued into one bulk-write
// session and flushed once at the end; storage deletions run inline and are
// best-effort.
package wipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tripzi/functions/log"
	"github.com/tripzi/functions/store"
)

const (
	usersCollection           = "users"
	tripsCollection           = "trips"
	ratingsCollection         = "ratings"
	reportsCollection         = "reports"
	chatsCollection           = "chats"
	suggestionsCollection     = "suggestions"
	bugsCollection            = "bugs"
	featureRequestsCollection = "featureRequests"
	notificationsCollection   = "notifications"
	pushTokensCollection      = "pushTokens"

	itemsSubcollection        = "items"
	messagesSubcollection     = "messages"
	liveSharesSubcollection   = "live_shares"
	plannerChatsSubcollection = "plannerChats"

	userIDField       = "userId"
	hostIDField       = "hostId"
	reporterIDField   = "reporterId"
	senderIDField     = "senderId"
	mediaURLField     = "mediaUrl"
	chatTypeField     = "type"
	participantsField = "participants"
	likesField        = "likes"
	followersField    = "followers"
	followingField    = "following"
	adminsField       = "admins"
	deletedByField    = "deletedBy"

	chatTypeDirect = "direct"

	errorMsgLogField = "errorMsg"
)

var feedbackCollections = []string{
	suggestionsCollection,
	bugsCollection,
	featureRequestsCollection,
}

// Wiper orchestrates the wipe of one account across the document store and
// the object store.
type Wiper struct {
	Store store.Store
	Blobs store.Blobs
}

// Summary counts what one wipe touched, for logs and audit receipts.
type Summary struct {
	UserID          string
	StartedAt       time.Time
	FinishedAt      time.Time
	TripsDeleted    int
	TripsUpdated    int
	RatingsDeleted  int
	ReportsDeleted  int
	FeedbackDeleted int
	ChatsDeleted    int
	ChatsUpdated    int
	MessagesDeleted int
	UsersUpdated    int
	StorageFailures int
}

// Wipe removes all data owned by uid and strips references to uid from
// records that survive. Discovery or flush failures abort and propagate so
// the trigger can retry; per-object storage failures are logged and
// swallowed. Re-running after a partial failure converges, deletes of
// already-deleted records are treated as success.
func (w *Wiper) Wipe(ctx context.Context, uid string) (*Summary, error) {
	if uid == "" {
		return nil, errors.New("empty user ID")
	}
	logger := log.LoggerFromContext(ctx)
	sum := &Summary{UserID: uid, StartedAt: time.Now()}
	s := newSession(w.Store.Batch(ctx))

	if err := w.deleteOwnRecords(ctx, s, uid); err != nil {
		return nil, err
	}
	if err := w.deleteOwnedTrips(ctx, s, uid, sum); err != nil {
		return nil, err
	}
	if err := w.deleteRatings(ctx, s, uid, sum); err != nil {
		return nil, err
	}
	if err := w.deleteReports(ctx, s, uid, sum); err != nil {
		return nil, err
	}
	if err := w.deleteFeedback(ctx, s, uid, sum); err != nil {
		return nil, err
	}
	if err := w.stripTripReferences(ctx, s, uid, sum); err != nil {
		return nil, err
	}
	if err := w.stripFollowGraph(ctx, s, uid, sum); err != nil {
		return nil, err
	}
	if err := w.wipeChats(ctx, s, uid, sum); err != nil {
		return nil, err
	}

	for _, prefix := range []string{
		"profiles/" + uid + "/",
		"trips/" + uid + "/",
		"groups/" + uid + "/",
		"feedback/" + uid + "/",
	} {
		w.deletePrefix(ctx, prefix, sum)
	}

	// all discovery and decisions are done, flush is the last store operation
	if err := s.flush(ctx); err != nil {
		return nil, fmt.Errorf("flushing wipe batch: %w", err)
	}
	sum.FinishedAt = time.Now()

	logger.Info("user data wiped",
		slog.String("userID", uid),
		slog.Int("tripsDeleted", sum.TripsDeleted),
		slog.Int("ratingsDeleted", sum.RatingsDeleted),
		slog.Int("reportsDeleted", sum.ReportsDeleted),
		slog.Int("feedbackDeleted", sum.FeedbackDeleted),
		slog.Int("chatsDeleted", sum.ChatsDeleted),
		slog.Int("chatsUpdated", sum.ChatsUpdated),
		slog.Int("messagesDeleted", sum.MessagesDeleted),
		slog.Int("storageFailures", sum.StorageFailures),
	)
	return sum, nil
}

// deleteOwnRecords queues the user's profile, notification container with
// its items, push-token record and planner conversations.
func (w *Wiper) deleteOwnRecords(ctx context.Context, s *session, uid string) error {
	s.delete(usersCollection + "/" + uid)
	s.delete(pushTokensCollection + "/" + uid)

	items, err := w.Store.Query(ctx, notificationsCollection+"/"+uid+"/"+itemsSubcollection)
	if err != nil {
		return err
	}
	for _, item := range items {
		s.delete(item.Path)
	}
	s.delete(notificationsCollection + "/" + uid)

	plannerChats, err := w.Store.Query(ctx, usersCollection+"/"+uid+"/"+plannerChatsSubcollection)
	if err != nil {
		return err
	}
	for _, chat := range plannerChats {
		s.delete(chat.Path)
	}
	return nil
}

func (w *Wiper) deleteOwnedTrips(ctx context.Context, s *session, uid string, sum *Summary) error {
	trips, err := w.Store.Query(ctx, tripsCollection, store.Where{Field: userIDField, Op: "==", Value: uid})
	if err != nil {
		return err
	}
	for _, trip := range trips {
		if s.delete(trip.Path) {
			sum.TripsDeleted++
		}
	}
	return nil
}

// deleteRatings removes ratings where the user is the rater or the rated
// host. A rating matching both filters is queued once.
func (w *Wiper) deleteRatings(ctx context.Context, s *session, uid string, sum *Summary) error {
	for _, field := range []string{userIDField, hostIDField} {
		ratings, err := w.Store.Query(ctx, ratingsCollection, store.Where{Field: field, Op: "==", Value: uid})
		if err != nil {
			return err
		}
		for _, rating := range ratings {
			if s.delete(rating.Path) {
				sum.RatingsDeleted++
			}
		}
	}
	return nil
}

func (w *Wiper) deleteReports(ctx context.Context, s *session, uid string, sum *Summary) error {
	reports, err := w.Store.Query(ctx, reportsCollection, store.Where{Field: reporterIDField, Op: "==", Value: uid})
	if err != nil {
		return err
	}
	for _, report := range reports {
		if s.delete(report.Path) {
			sum.ReportsDeleted++
		}
		w.deletePrefix(ctx, "reports/"+report.ID()+"/", sum)
	}
	return nil
}

func (w *Wiper) deleteFeedback(ctx context.Context, s *session, uid string, sum *Summary) error {
	for _, collection := range feedbackCollections {
		docs, err := w.Store.Query(ctx, collection, store.Where{Field: userIDField, Op: "==", Value: uid})
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if s.delete(doc.Path) {
				sum.FeedbackDeleted++
			}
		}
	}
	return nil
}

// stripTripReferences removes the user from participants and likes of trips
// the user does not own. Trips already queued for deletion are skipped, both
// field removals on the same trip merge into one queued update.
func (w *Wiper) stripTripReferences(ctx context.Context, s *session, uid string, sum *Summary) error {
	for _, field := range []string{participantsField, likesField} {
		trips, err := w.Store.Query(ctx, tripsCollection, store.Where{Field: field, Op: "array-contains", Value: uid})
		if err != nil {
			return err
		}
		for _, trip := range trips {
			if s.update(trip.Path, []store.Update{
				{FieldPath: []string{field}, Value: store.ArrayRemove(uid)},
			}) {
				sum.TripsUpdated++
			}
		}
	}
	return nil
}

// stripFollowGraph removes the user from other users' follower and
// following lists. The user's own record is already queued for deletion and
// is skipped by the session.
func (w *Wiper) stripFollowGraph(ctx context.Context, s *session, uid string, sum *Summary) error {
	for _, field := range []string{followersField, followingField} {
		users, err := w.Store.Query(ctx, usersCollection, store.Where{Field: field, Op: "array-contains", Value: uid})
		if err != nil {
			return err
		}
		for _, user := range users {
			if s.update(user.Path, []store.Update{
				{FieldPath: []string{field}, Value: store.ArrayRemove(uid)},
			}) {
				sum.UsersUpdated++
			}
		}
	}
	return nil
}

// wipeChats deletes direct conversations outright and strips the user out
// of group-like ones.
func (w *Wiper) wipeChats(ctx context.Context, s *session, uid string, sum *Summary) error {
	chats, err := w.Store.Query(ctx, chatsCollection, store.Where{Field: participantsField, Op: "array-contains", Value: uid})
	if err != nil {
		return err
	}
	for _, chat := range chats {
		chatType, _ := chat.Data[chatTypeField].(string)
		if chatType == chatTypeDirect {
			if err := w.deleteDirectChat(ctx, s, chat, sum); err != nil {
				return err
			}
			continue
		}
		if err := w.stripGroupChat(ctx, s, chat, uid, sum); err != nil {
			return err
		}
	}
	return nil
}

// deleteDirectChat removes a two-party conversation in full: messages, live
// location shares, the chat record and the chat's media prefix.
func (w *Wiper) deleteDirectChat(ctx context.Context, s *session, chat store.Snapshot, sum *Summary) error {
	messages, err := w.Store.Query(ctx, chat.Path+"/"+messagesSubcollection)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		w.deleteMessageMedia(ctx, msg, sum)
		if s.delete(msg.Path) {
			sum.MessagesDeleted++
		}
	}

	shares, err := w.Store.Query(ctx, chat.Path+"/"+liveSharesSubcollection)
	if err != nil {
		return err
	}
	for _, share := range shares {
		s.delete(share.Path)
	}

	if s.delete(chat.Path) {
		sum.ChatsDeleted++
	}
	w.deletePrefix(ctx, "chats/"+chat.ID()+"/", sum)
	return nil
}

// stripGroupChat keeps the conversation alive but removes every trace of
// the user: membership arrays, the per-user map entries, and all messages
// the user authored.
func (w *Wiper) stripGroupChat(ctx context.Context, s *session, chat store.Snapshot, uid string, sum *Summary) error {
	if s.update(chat.Path, []store.Update{
		{FieldPath: []string{participantsField}, Value: store.ArrayRemove(uid)},
		{FieldPath: []string{adminsField}, Value: store.ArrayRemove(uid)},
		{FieldPath: []string{deletedByField}, Value: store.ArrayRemove(uid)},
		{FieldPath: []string{"participantDetails", uid}, Value: store.DeleteField},
		{FieldPath: []string{"unreadCount", uid}, Value: store.DeleteField},
		{FieldPath: []string{"clearedAt", uid}, Value: store.DeleteField},
	}) {
		sum.ChatsUpdated++
	}

	messages, err := w.Store.Query(ctx, chat.Path+"/"+messagesSubcollection,
		store.Where{Field: senderIDField, Op: "==", Value: uid})
	if err != nil {
		return err
	}
	for _, msg := range messages {
		// media first, its failure must not block the record deletion
		w.deleteMessageMedia(ctx, msg, sum)
		if s.delete(msg.Path) {
			sum.MessagesDeleted++
		}
	}
	return nil
}

func (w *Wiper) deleteMessageMedia(ctx context.Context, msg store.Snapshot, sum *Summary) {
	rawURL, _ := msg.Data[mediaURLField].(string)
	if rawURL == "" {
		return
	}
	logger := log.LoggerFromContext(ctx)
	path, err := storagePathFromURL(rawURL)
	if err != nil {
		logger.Error("failed to parse media URL",
			slog.String("url", rawURL),
			slog.String(errorMsgLogField, err.Error()),
		)
		sum.StorageFailures++
		return
	}
	if err := w.Blobs.Delete(ctx, path); err != nil {
		logger.Error("failed to delete media object",
			slog.String("path", path),
			slog.String(errorMsgLogField, err.Error()),
		)
		sum.StorageFailures++
	}
}

func (w *Wiper) deletePrefix(ctx context.Context, prefix string, sum *Summary) {
	if err := w.Blobs.DeletePrefix(ctx, prefix); err != nil {
		log.LoggerFromContext(ctx).Error("failed to delete storage prefix",
			slog.String("prefix", prefix),
			slog.String(errorMsgLogField, err.Error()),
		)
		sum.StorageFailures++
	}
}
