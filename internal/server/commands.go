// Package server exposes the command dispatcher over HTTP so chat runtimes
// other than Telegram can forward messages to the bot.
package server

import (
	"context"
	"net/http"
	"strings"

	"cstats-bot/internal/command"
	"cstats-bot/internal/constants"
	"cstats-bot/internal/middleware"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	CommandsPath = "/v1/commands"
	HealthPath   = "/healthz"
)

// Dispatcher is satisfied by *command.Dispatcher.
type Dispatcher interface {
	Handle(ctx context.Context, inv command.Invocation) command.Reply
}

type CommandRequest struct {
	Text       string `json:"text"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	MentionID  string `json:"mention_id,omitempty"`
}

type CommandResponse struct {
	Reply        string `json:"reply"`
	Handled      bool   `json:"handled"`
	Command      string `json:"command,omitempty"`
	InvocationID string `json:"invocation_id,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type CommandServer struct {
	dispatcher Dispatcher
	logger     zerolog.Logger
}

func NewCommandServer(dispatcher *command.Dispatcher, logger zerolog.Logger) *CommandServer {
	return &CommandServer{dispatcher: dispatcher, logger: logger}
}

// Handler returns the routed mux wrapped in CORS, request ids and panic recovery.
func (s *CommandServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+CommandsPath, s.handleCommand)
	mux.HandleFunc("GET "+HealthPath, s.handleHealth)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return middleware.RequestID(s.logger)(middleware.Recover(c.Handler(mux)))
}

func (s *CommandServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	var req CommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("invalid command body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.SenderID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sender_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	reply := s.dispatcher.Handle(ctx, command.Invocation{
		Text:        req.Text,
		SenderID:    req.SenderID,
		SenderName:  req.SenderName,
		MentionedID: req.MentionID,
	})

	resp := CommandResponse{
		Reply:        reply.Text,
		Handled:      reply.Handled(),
		InvocationID: reply.InvocationID,
		RequestID:    middleware.GetRequestID(r.Context()),
	}
	if reply.Handled() {
		resp.Command = reply.Kind.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *CommandServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
