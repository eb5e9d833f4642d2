package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/tripzi/functions/store"
	"github.com/tripzi/functions/wipe"
)

// GOOGLE_CLOUD_PROJECT=my-project go run cmd/wipeuser/main.go -uid <uid> -bucket my-project.appspot.com
func main() {
	ctx := context.Background()
	uidPtr := flag.String("uid", "", "user ID to wipe")
	credsPtr := flag.String("credentials", "./service_account_key.json", "path to a service account key file")
	projectPtr := flag.String("project", os.Getenv("GOOGLE_CLOUD_PROJECT"), "GCP project ID")
	bucketPtr := flag.String("bucket", "", "storage bucket name, defaults to <project>.appspot.com")
	flag.Parse()

	if *uidPtr == "" {
		log.Fatalf("Please provide a user UID using the -uid flag")
	}
	if *projectPtr == "" {
		log.Fatalf("Please provide a project ID using the -project flag or GOOGLE_CLOUD_PROJECT")
	}
	bucketName := *bucketPtr
	if bucketName == "" {
		bucketName = *projectPtr + ".appspot.com"
	}

	absPath, err := filepath.Abs(*credsPtr)
	if err != nil {
		log.Fatalf("failed to get absolute path: %v", err)
	}
	opt := option.WithCredentialsFile(absPath)
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     *projectPtr,
		StorageBucket: bucketName,
	}, opt)
	if err != nil {
		log.Fatalf("error initializing app: %v", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		log.Fatalf("error getting Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	storageClient, err := app.Storage(ctx)
	if err != nil {
		log.Fatalf("error getting Storage client: %v", err)
	}
	bucket, err := storageClient.DefaultBucket()
	if err != nil {
		log.Fatalf("error getting default bucket: %v", err)
	}

	wiper := &wipe.Wiper{
		Store: store.NewFirestoreWithClient(firestoreClient),
		Blobs: store.NewBucketWithHandle(bucket),
	}

	log.Printf("wiping data of user %s", *uidPtr)
	sum, err := wiper.Wipe(ctx, *uidPtr)
	if err != nil {
		log.Fatalf("wipe failed: %v", err)
	}

	out, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		log.Fatalf("error marshalling summary: %v", err)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}
