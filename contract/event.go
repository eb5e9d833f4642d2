package contract

// UserDeletedEvent is the data payload of the Eventarc Firebase Auth deletion
// event. The Identity Toolkit surface spells the user ID "localId", the
// Firebase event spells it "uid"; both are accepted.
type UserDeletedEvent struct {
	UID     string `json:"uid"`
	LocalID string `json:"localId"`
	Email   string `json:"email"`
}

func (e UserDeletedEvent) UserID() string {
	if e.UID != "" {
		return e.UID
	}
	return e.LocalID
}
