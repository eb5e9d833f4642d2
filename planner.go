package tripzi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/template"
	"time"
	_ "time/tzdata"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/tripzi/functions/auth"
	"github.com/tripzi/functions/chat"
	"github.com/tripzi/functions/contract"
	"github.com/tripzi/functions/filter"
	"github.com/tripzi/functions/log"
	"github.com/tripzi/functions/trip"
)

const (
	ErrorMsgLogField = "errorMsg"
	bodyLogField     = "body"
	userIDLogField   = "userID"
	chatIDLogField   = "chatID"
	tripIDLogField   = "tripID"
	timezoneLogField = "timezone"

	gcloudFuncSourceDir = "serverless_function_source_code"
	openAIModel         = "gpt-4o-mini"
	sseContentType      = "text/event-stream"
)

var (
	openaiAPIKey = os.Getenv("OPENAI_API_KEY")
)

// loggingRoundTripper logs the outgoing request details
type loggingRoundTripper struct {
	rt http.RoundTripper
}

func (lrt *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := log.LoggerFromContext(req.Context())
	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, _ = io.ReadAll(req.Body)
	}
	// reset req.Body so it can be read downstream
	req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	logger.Info("openAI request",
		slog.String("url", req.URL.String()),
		slog.String(bodyLogField, string(bodyBytes)),
	)
	return lrt.rt.RoundTrip(req)
}

func init() {
	functions.HTTP("Planner", Planner)
	fixDir()
}

// in GCP Functions, source code is placed in a directory named "serverless_function_source_code"
// need to change the dir to get access to template file
func fixDir() {
	fileInfo, err := os.Stat(gcloudFuncSourceDir)
	if err == nil && fileInfo.IsDir() {
		_ = os.Chdir(gcloudFuncSourceDir)
	}
}

func setupStreamingFunc(w io.Writer, flusher http.Flusher) func(ctx context.Context, chunk []byte) error {
	// persistent filters per stream
	mlf := filter.NewMarkdownLinkFilter()
	tlf := filter.NewTripLinkFilter()

	return func(ctx context.Context, chunk []byte) error {
		cleanedChunk := tlf.ProcessChunk(
			ctx,
			mlf.ProcessChunk(
				ctx,
				string(chunk),
			),
		)
		if cleanedChunk == "" {
			return nil
		}
		msg := contract.PlannerResponse{Response: cleanedChunk}
		jsonData, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		sseData := fmt.Sprintf("data: %s\n\n", jsonData)
		if _, err := w.Write([]byte(sseData)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
}

// renderHTML converts the planner's markdown answer into sanitized HTML for
// clients that do not stream.
func renderHTML(markdown string) string {
	unsafe := blackfriday.Run([]byte(markdown))
	return string(bluemonday.UGCPolicy().SanitizeBytes(unsafe))
}

func Planner(w http.ResponseWriter, r *http.Request) {
	ctx := log.WithTrace(r.Context(), r)
	logger := log.LoggerFromContext(ctx)
	logger.Info("planner function called")

	if r.Method != http.MethodPost {
		logger.Error("invalid method: " + r.Method)
		http.Error(w, "Method Not Implemented", http.StatusNotImplemented)
		return
	}

	token, err := auth.Authenticate(r)
	if err != nil {
		logger.Error("error while authenticating", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	logger = logger.With(slog.String(userIDLogField, token.UID))

	var msg contract.PlannerRequest
	data, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("error while reading request body", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	logger.Info("incoming request", slog.String(bodyLogField, string(data)))

	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Error("error while decoding request", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	logger = logger.With(
		slog.String(chatIDLogField, msg.ChatID),
		slog.String(tripIDLogField, msg.TripID),
		slog.String(timezoneLogField, msg.Timezone),
	)
	ctx = log.WithLogger(ctx, logger)

	loc, err := time.LoadLocation(msg.Timezone)
	if err != nil {
		logger.Error("error while loading location", slog.String(ErrorMsgLogField, err.Error()))
		loc = time.UTC
	}
	userLocalTime := time.Now().In(loc).Format(time.RFC1123Z)

	t := &trip.Trip{}
	if msg.TripID != "" {
		t, err = trip.Fetch(ctx, msg.TripID)
		if err != nil {
			logger.Error("error while fetching trip", slog.String(ErrorMsgLogField, err.Error()))
			t = &trip.Trip{}
		} else {
			logger.Info("trip fetched", slog.Any("trip", t))
		}
	}

	messages, err := chat.LoadHistory(ctx, token.UID, msg.ChatID)
	if err != nil {
		logger.Error("error while loading planner history", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// append user message at the end of the messages history
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, msg.Message))

	openAIClient, err := openai.New(
		openai.WithModel(openAIModel),
		openai.WithToken(openaiAPIKey),
		openai.WithHTTPClient(
			&http.Client{
				Transport: &loggingRoundTripper{
					rt: http.DefaultTransport,
				},
			},
		),
	)
	if err != nil {
		logger.Error("error while creating openAI client", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	plannerPrompt, err := template.New("planner.tmpl").ParseFiles("prompts/planner.tmpl")
	if err != nil {
		logger.Error("error while parsing plannerPrompt", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var plannerPromptStr strings.Builder
	err = plannerPrompt.Execute(
		&plannerPromptStr,
		struct {
			UserLocalTime string
			Trip          *trip.Trip
		}{
			UserLocalTime: userLocalTime,
			Trip:          t,
		},
	)
	if err != nil {
		logger.Error("error while executing plannerPrompt", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	prompt := append(
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, plannerPromptStr.String()),
		},
		messages...,
	)

	// clients that do not accept SSE get one JSON body with rendered HTML
	if !strings.Contains(r.Header.Get("Accept"), sseContentType) {
		resp, err := openAIClient.GenerateContent(ctx, prompt, llms.WithMaxTokens(1000))
		if err != nil {
			logger.Error("ChatCompletion error", slog.String(ErrorMsgLogField, err.Error()))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if len(resp.Choices) == 0 {
			logger.Error("no openAI response")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		content := resp.Choices[0].Content
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(contract.PlannerResponse{
			Response:     content,
			ResponseHTML: renderHTML(content),
		}); err != nil {
			logger.Error("error while encoding response", slog.String(ErrorMsgLogField, err.Error()))
		}
		return
	}

	// set SSE headers for streaming
	w.Header().Set("Content-Type", sseContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming unsupported!")
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	resp, err := openAIClient.GenerateContent(
		ctx,
		prompt,
		llms.WithStreamingFunc(setupStreamingFunc(w, flusher)),
		llms.WithMaxTokens(1000),
	)
	if err != nil {
		logger.Error("ChatCompletion error", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if len(resp.Choices) > 0 {
		logger.Info("openAI response", slog.String("response", resp.Choices[0].Content))
	} else {
		logger.Error("no openAI response")
	}
}
