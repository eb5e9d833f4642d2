package chat

import (
	"testing"

	"github.com/tmc/langchaingo/llms"
)

func TestHistoryFromMessages(t *testing.T) {
	tests := []struct {
		name        string
		messages    []*plannerMessage
		expectedLen int
		expectErr   bool
	}{
		{
			name: "User and AI messages",
			messages: []*plannerMessage{
				{From: fromUser, Message: "plan me a weekend in Rome"},
				{From: fromAI, Message: "Day 1: Colosseum..."},
			},
			expectedLen: 2,
		},
		{
			name:        "Empty messages",
			messages:    []*plannerMessage{},
			expectedLen: 0,
		},
		{
			name:        "nil messages",
			messages:    nil,
			expectedLen: 0,
		},
		{
			name: "Invalid role",
			messages: []*plannerMessage{
				{From: "System", Message: "nope"},
			},
			expectErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			history, err := historyFromMessages(test.messages)
			if test.expectErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("historyFromMessages() error: %v", err)
			}
			if len(history) != test.expectedLen {
				t.Fatalf("got %d messages, want %d", len(history), test.expectedLen)
			}
			if test.expectedLen == 2 {
				if history[0].Role != llms.ChatMessageTypeHuman {
					t.Errorf("first message role = %v, want human", history[0].Role)
				}
				if history[1].Role != llms.ChatMessageTypeAI {
					t.Errorf("second message role = %v, want AI", history[1].Role)
				}
			}
		})
	}
}
