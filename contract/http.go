package contract

type PlannerRequest struct {
	Message  string `json:"message"`
	ChatID   string `json:"chat_id"`
	TripID   string `json:"trip_id"`
	Timezone string `json:"timezone"`
}

type PlannerResponse struct {
	Response     string `json:"response"`
	ResponseHTML string `json:"response_html,omitempty"`
}

type WipeRequest struct {
	UserID string `json:"user_id"`
}

type WipeResponse struct {
	UserID          string `json:"user_id"`
	TripsDeleted    int    `json:"trips_deleted"`
	RatingsDeleted  int    `json:"ratings_deleted"`
	ReportsDeleted  int    `json:"reports_deleted"`
	FeedbackDeleted int    `json:"feedback_deleted"`
	ChatsDeleted    int    `json:"chats_deleted"`
	ChatsUpdated    int    `json:"chats_updated"`
	MessagesDeleted int    `json:"messages_deleted"`
	TripsUpdated    int    `json:"trips_updated"`
	UsersUpdated    int    `json:"users_updated"`
	StorageFailures int    `json:"storage_failures"`
}
