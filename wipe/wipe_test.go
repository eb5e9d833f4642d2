package wipe

import (
	"context"
	"testing"
)

const uid = "u1"

func seedMinimalUser() map[string]map[string]any {
	return map[string]map[string]any{
		"users/u1":                 {"displayName": "Ann", "followers": []any{}, "following": []any{}},
		"notifications/u1":         {"badge": int64(2)},
		"notifications/u1/items/i": {"title": "welcome"},
		"pushTokens/u1":            {"tokens": map[string]any{"device1": "tok"}},
	}
}

func runWipe(t *testing.T, st *fakeStore, blobs *fakeBlobs) *Summary {
	t.Helper()
	w := &Wiper{Store: st, Blobs: blobs}
	sum, err := w.Wipe(context.Background(), uid)
	if err != nil {
		t.Fatalf("Wipe() error: %v", err)
	}
	return sum
}

func TestWipeEmptyUserID(t *testing.T) {
	w := &Wiper{Store: newFakeStore(nil), Blobs: newFakeBlobs()}
	if _, err := w.Wipe(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user ID")
	}
}

func TestWipeMinimalUser(t *testing.T) {
	docs := seedMinimalUser()
	docs["users/u2"] = map[string]any{"displayName": "Bob", "followers": []any{"u9"}}
	st := newFakeStore(docs)
	blobs := newFakeBlobs()

	runWipe(t, st, blobs)

	for _, path := range []string{"users/u1", "notifications/u1", "notifications/u1/items/i", "pushTokens/u1"} {
		if _, ok := st.docs[path]; ok {
			t.Errorf("%s still exists after wipe", path)
		}
	}
	other, ok := st.docs["users/u2"]
	if !ok {
		t.Fatal("unrelated user deleted")
	}
	if !sliceContains(other["followers"], "u9") {
		t.Error("unrelated user's followers were modified")
	}
}

func TestWipeOwnedTripDeleted(t *testing.T) {
	docs := seedMinimalUser()
	docs["trips/t1"] = map[string]any{"userId": uid, "participants": []any{uid, "u2"}}
	st := newFakeStore(docs)

	sum := runWipe(t, st, newFakeBlobs())

	if _, ok := st.docs["trips/t1"]; ok {
		t.Error("owned trip still exists after wipe")
	}
	if sum.TripsDeleted != 1 {
		t.Errorf("TripsDeleted = %d, want 1", sum.TripsDeleted)
	}
}

func TestWipeParticipantTripStripped(t *testing.T) {
	docs := seedMinimalUser()
	docs["trips/t2"] = map[string]any{
		"userId":       "u2",
		"participants": []any{uid, "u2"},
		"likes":        []any{uid, "u3"},
	}
	st := newFakeStore(docs)

	sum := runWipe(t, st, newFakeBlobs())

	trip, ok := st.docs["trips/t2"]
	if !ok {
		t.Fatal("trip owned by another user was deleted")
	}
	if sliceContains(trip["participants"], uid) {
		t.Error("user still listed in participants")
	}
	if sliceContains(trip["likes"], uid) {
		t.Error("user still listed in likes")
	}
	if !sliceContains(trip["participants"], "u2") || !sliceContains(trip["likes"], "u3") {
		t.Error("other users' references were removed")
	}
	if sum.TripsUpdated != 1 {
		t.Errorf("TripsUpdated = %d, want 1 (participants and likes must merge)", sum.TripsUpdated)
	}
}

func TestWipeFollowGraphStripped(t *testing.T) {
	docs := seedMinimalUser()
	docs["users/u2"] = map[string]any{"followers": []any{uid, "u3"}, "following": []any{"u3"}}
	docs["users/u3"] = map[string]any{"followers": []any{"u2"}, "following": []any{uid}}
	st := newFakeStore(docs)

	runWipe(t, st, newFakeBlobs())

	if sliceContains(st.docs["users/u2"]["followers"], uid) {
		t.Error("user still listed in u2's followers")
	}
	if sliceContains(st.docs["users/u3"]["following"], uid) {
		t.Error("user still listed in u3's following")
	}
	if !sliceContains(st.docs["users/u2"]["followers"], "u3") {
		t.Error("unrelated follower removed")
	}
}

func TestWipeDirectChatDeleted(t *testing.T) {
	docs := seedMinimalUser()
	docs["chats/d1"] = map[string]any{"type": "direct", "participants": []any{uid, "u2"}}
	docs["chats/d1/messages/m1"] = map[string]any{"senderId": uid, "mediaUrl": "chats/d1/a.png"}
	docs["chats/d1/messages/m2"] = map[string]any{"senderId": "u2"}
	docs["chats/d1/live_shares/s1"] = map[string]any{"userId": "u2"}
	st := newFakeStore(docs)
	blobs := newFakeBlobs("chats/d1/a.png", "chats/d1/b.png", "chats/other/keep.png")

	sum := runWipe(t, st, blobs)

	for _, path := range []string{"chats/d1", "chats/d1/messages/m1", "chats/d1/messages/m2", "chats/d1/live_shares/s1"} {
		if _, ok := st.docs[path]; ok {
			t.Errorf("%s still exists after wipe", path)
		}
	}
	if blobs.objects["chats/d1/a.png"] || blobs.objects["chats/d1/b.png"] {
		t.Error("chat media prefix not emptied")
	}
	if !blobs.objects["chats/other/keep.png"] {
		t.Error("media of another chat deleted")
	}
	if sum.ChatsDeleted != 1 || sum.MessagesDeleted != 2 {
		t.Errorf("ChatsDeleted = %d, MessagesDeleted = %d, want 1 and 2", sum.ChatsDeleted, sum.MessagesDeleted)
	}
}

func TestWipeGroupChatStripped(t *testing.T) {
	docs := seedMinimalUser()
	docs["chats/g1"] = map[string]any{
		"type":         "group",
		"participants": []any{uid, "u2", "u3"},
		"admins":       []any{uid, "u2"},
		"deletedBy":    []any{uid},
		"participantDetails": map[string]any{
			uid:  map[string]any{"name": "Ann"},
			"u2": map[string]any{"name": "Bob"},
		},
		"unreadCount": map[string]any{uid: int64(4), "u2": int64(0)},
		"clearedAt":   map[string]any{uid: "2026-01-01"},
	}
	docs["chats/g1/messages/m1"] = map[string]any{"senderId": uid}
	docs["chats/g1/messages/m2"] = map[string]any{"senderId": "u2"}
	st := newFakeStore(docs)

	sum := runWipe(t, st, newFakeBlobs())

	chat, ok := st.docs["chats/g1"]
	if !ok {
		t.Fatal("group chat deleted, should survive with references stripped")
	}
	for _, field := range []string{"participants", "admins", "deletedBy"} {
		if sliceContains(chat[field], uid) {
			t.Errorf("user still listed in %s", field)
		}
	}
	for _, field := range []string{"participantDetails", "unreadCount", "clearedAt"} {
		m, _ := chat[field].(map[string]any)
		if _, ok := m[uid]; ok {
			t.Errorf("per-user entry in %s not deleted", field)
		}
	}
	if _, ok := chat["participantDetails"].(map[string]any)["u2"]; !ok {
		t.Error("other user's participantDetails entry removed")
	}
	if _, ok := st.docs["chats/g1/messages/m1"]; ok {
		t.Error("user-authored message still exists")
	}
	if _, ok := st.docs["chats/g1/messages/m2"]; !ok {
		t.Error("other user's message deleted")
	}
	if sum.ChatsUpdated != 1 {
		t.Errorf("ChatsUpdated = %d, want 1", sum.ChatsUpdated)
	}
}

func TestWipeReportsAndFeedback(t *testing.T) {
	docs := seedMinimalUser()
	docs["reports/r1"] = map[string]any{"reporterId": uid}
	docs["suggestions/s1"] = map[string]any{"userId": uid}
	docs["bugs/b1"] = map[string]any{"userId": uid}
	docs["featureRequests/f1"] = map[string]any{"userId": "u2"}
	st := newFakeStore(docs)
	blobs := newFakeBlobs("reports/r1/shot.png", "feedback/u1/note.png", "profiles/u1/avatar.png")

	sum := runWipe(t, st, blobs)

	if _, ok := st.docs["reports/r1"]; ok {
		t.Error("report still exists")
	}
	if _, ok := st.docs["featureRequests/f1"]; !ok {
		t.Error("another user's feedback deleted")
	}
	if sum.ReportsDeleted != 1 || sum.FeedbackDeleted != 2 {
		t.Errorf("ReportsDeleted = %d, FeedbackDeleted = %d, want 1 and 2", sum.ReportsDeleted, sum.FeedbackDeleted)
	}
	for path := range blobs.objects {
		t.Errorf("storage object %s not deleted", path)
	}
}

func TestWipeRatingMatchingBothFiltersDeletedOnce(t *testing.T) {
	docs := seedMinimalUser()
	docs["ratings/r1"] = map[string]any{"userId": uid, "hostId": uid}
	docs["ratings/r2"] = map[string]any{"userId": uid, "hostId": "u2"}
	docs["ratings/r3"] = map[string]any{"userId": "u2", "hostId": uid}
	st := newFakeStore(docs)

	sum := runWipe(t, st, newFakeBlobs())

	for _, path := range []string{"ratings/r1", "ratings/r2", "ratings/r3"} {
		if _, ok := st.docs[path]; ok {
			t.Errorf("%s still exists after wipe", path)
		}
	}
	if sum.RatingsDeleted != 3 {
		t.Errorf("RatingsDeleted = %d, want 3", sum.RatingsDeleted)
	}
}

func TestWipeIdempotent(t *testing.T) {
	docs := seedMinimalUser()
	docs["trips/t1"] = map[string]any{"userId": uid}
	docs["chats/d1"] = map[string]any{"type": "direct", "participants": []any{uid, "u2"}}
	st := newFakeStore(docs)
	blobs := newFakeBlobs("profiles/u1/avatar.png")

	runWipe(t, st, blobs)
	sum := runWipe(t, st, blobs)

	if sum.TripsDeleted != 0 || sum.ChatsDeleted != 0 {
		t.Errorf("second wipe deleted records again: %+v", sum)
	}
	if sum.StorageFailures != 0 {
		t.Errorf("second wipe reported %d storage failures", sum.StorageFailures)
	}
}

func TestWipeMediaFailureDoesNotBlockMessages(t *testing.T) {
	docs := seedMinimalUser()
	docs["chats/g1"] = map[string]any{"type": "group", "participants": []any{uid, "u2", "u3"}}
	docs["chats/g1/messages/m1"] = map[string]any{"senderId": uid, "mediaUrl": "chats/g1/a.png"}
	docs["chats/g1/messages/m2"] = map[string]any{"senderId": uid, "mediaUrl": "chats/g1/b.png"}
	st := newFakeStore(docs)
	blobs := newFakeBlobs("chats/g1/a.png", "chats/g1/b.png")
	blobs.failures["chats/g1/a.png"] = true

	sum := runWipe(t, st, blobs)

	if _, ok := st.docs["chats/g1/messages/m1"]; ok {
		t.Error("message with failed media deletion still exists")
	}
	if _, ok := st.docs["chats/g1/messages/m2"]; ok {
		t.Error("subsequent message still exists")
	}
	if blobs.objects["chats/g1/b.png"] {
		t.Error("subsequent media object not deleted")
	}
	if sum.StorageFailures != 1 {
		t.Errorf("StorageFailures = %d, want 1", sum.StorageFailures)
	}
	if sum.MessagesDeleted != 2 {
		t.Errorf("MessagesDeleted = %d, want 2", sum.MessagesDeleted)
	}
}

func TestWipePlannerChatsDeleted(t *testing.T) {
	docs := seedMinimalUser()
	docs["users/u1/plannerChats/p1"] = map[string]any{"trip_id": "t1"}
	st := newFakeStore(docs)

	runWipe(t, st, newFakeBlobs())

	if _, ok := st.docs["users/u1/plannerChats/p1"]; ok {
		t.Error("planner chat still exists after wipe")
	}
}
