package trip

import (
	"context"
	"time"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/firestore"

	"github.com/tripzi/functions/contract"
)

const tripsCollection = "trips"

type Trip struct {
	ID          string
	Name        string
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	PartySize   int
}

// Fetch loads one trip record, used to give the planner prompt the trip's
// destination and dates.
func Fetch(ctx context.Context, tripID string) (*Trip, error) {
	projectID, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return nil, err
	}

	firestoreClient, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer firestoreClient.Close()

	doc, err := firestoreClient.Collection(tripsCollection).Doc(tripID).Get(ctx)
	if err != nil {
		return nil, err
	}

	t := contract.FirestoreTrip{}
	if err := doc.DataTo(&t); err != nil {
		return nil, err
	}

	return &Trip{
		ID:          tripID,
		Name:        t.Name,
		Destination: t.Destination,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		PartySize:   len(t.Participants),
	}, nil
}
