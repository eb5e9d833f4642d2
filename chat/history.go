package chat

import (
	"context"
	"fmt"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/firestore"
	"github.com/tmc/langchaingo/llms"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tripzi/functions/logger"
)

const (
	usersCollection        = "users"
	plannerChatsCollection = "plannerChats"
	fromUser               = "User"
	fromAI                 = "AI"
)

type plannerChat struct {
	TripID   string            `firestore:"trip_id"`
	Messages []*plannerMessage `firestore:"messages"`
}

type plannerMessage struct {
	From    string `firestore:"from"`
	Message string `firestore:"message"`
}

// LoadHistory loads the planner conversation users/{userID}/plannerChats/{chatID}
// as LLM messages. A missing conversation is a new one, not an error.
func LoadHistory(ctx context.Context, userID, chatID string) ([]llms.MessageContent, error) {
	logger := logger.FromContext(ctx)

	var chatHistory []llms.MessageContent

	projectID, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return chatHistory, err
	}

	firestoreClient, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return chatHistory, err
	}
	defer firestoreClient.Close()

	chatDoc, err := firestoreClient.
		Collection(usersCollection).
		Doc(userID).
		Collection(plannerChatsCollection).
		Doc(chatID).
		Get(ctx)
	if status.Code(err) == codes.NotFound {
		logger.Printf("planner chat not found: %s", chatID)
		return chatHistory, nil
	}
	if err != nil {
		return chatHistory, err
	}

	chat := plannerChat{}
	if err := chatDoc.DataTo(&chat); err != nil {
		return chatHistory, err
	}

	return historyFromMessages(chat.Messages)
}

func historyFromMessages(messages []*plannerMessage) ([]llms.MessageContent, error) {
	var chatHistory []llms.MessageContent
	for _, m := range messages {
		switch m.From {
		case fromUser:
			chatHistory = append(chatHistory, llms.TextParts(llms.ChatMessageTypeHuman, m.Message))
		case fromAI:
			chatHistory = append(chatHistory, llms.TextParts(llms.ChatMessageTypeAI, m.Message))
		default:
			return chatHistory, fmt.Errorf("invalid message role: %s", m.From)
		}
	}
	return chatHistory, nil
}
