package contract

import "time"

type FirestoreTrip struct {
	UserID       string    `firestore:"userId"`
	Name         string    `firestore:"name"`
	Destination  string    `firestore:"destination"`
	StartDate    time.Time `firestore:"startDate"`
	EndDate      time.Time `firestore:"endDate"`
	Participants []string  `firestore:"participants"`
	Likes        []string  `firestore:"likes"`
}
