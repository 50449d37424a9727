package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/draftarena/backend/middleware"
	"github.com/draftarena/backend/models"
	"github.com/draftarena/backend/realtime"
	"github.com/draftarena/backend/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the frontend origin once it is deployed.
		return true
	},
}

type WebSocketHandler struct {
	hub           *realtime.Hub
	draftService  services.DraftService
	authenticator *middleware.Authenticator
	logger        *slog.Logger
}

func NewWebSocketHandler(
	hub *realtime.Hub,
	draftService services.DraftService,
	authenticator *middleware.Authenticator,
	logger *slog.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		draftService:  draftService,
		authenticator: authenticator,
		logger:        logger,
	}
}

// ServeTournament streams bracket and status updates for one tournament.
// Read-only; no authentication required.
func (h *WebSocketHandler) ServeTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	room := realtime.TournamentRoom(tournamentID)
	client := &realtime.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: room,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("tournament viewer connected",
		slog.Int("tournament_id", tournamentID),
		slog.Int("viewers", h.hub.RoomSize(room)))
}

// draftClientMessage is one inbound frame on the draft socket.
type draftClientMessage struct {
	Type   string          `json:"type"`
	Side   models.CoinSide `json:"side,omitempty"`
	HeroID int             `json:"hero_id,omitempty"`
	IsBan  *bool           `json:"is_ban,omitempty"`
}

// ServeDraft joins a draft session room. Spectators connect without a
// token and only listen. Captains authenticate with a token query
// parameter; their connection doubles as presence and their frames drive
// the draft.
func (h *WebSocketHandler) ServeDraft(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getUUIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.draftService.GetSession(r.Context(), sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	userID := 0
	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := h.authenticator.ParseToken(token)
		if err != nil {
			unauthorizedResponse(w, r, "invalid token")
			return
		}
		userID, err = middleware.UserIDFromClaims(claims)
		if err != nil {
			unauthorizedResponse(w, r, "invalid token")
			return
		}
	}
	isCaptain := session.CaptainSlot(userID) != models.SlotNone

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &realtime.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: realtime.DraftRoom(sessionID),
	}

	if isCaptain {
		client.OnMessage = func(data []byte) {
			h.handleDraftFrame(client, sessionID, userID, data)
		}
		client.OnClose = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			h.draftService.Disconnect(ctx, sessionID, userID)
		}
	}

	client.Hub.Register <- client
	go client.WritePump()
	go client.ReadPump()

	// Joining as a captain marks the team present, which may start the
	// coin toss.
	if isCaptain {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := h.draftService.Connect(ctx, sessionID, userID); err != nil {
			h.logger.Warn("captain connect failed",
				slog.String("session_id", sessionID.String()),
				slog.Int("user_id", userID),
				slog.Any("error", err))
		}
	}

	// Every new client gets the current snapshot so it can render without
	// waiting for the next event.
	if snapshot, err := h.draftService.GetSession(r.Context(), sessionID); err == nil {
		client.SendJSON(realtime.Message{Type: "snapshot", Payload: snapshot})
	}
}

func (h *WebSocketHandler) handleDraftFrame(client *realtime.Client, sessionID uuid.UUID, userID int, data []byte) {
	var msg draftClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		client.SendJSON(realtime.Message{Type: "error", Payload: "malformed message"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch msg.Type {
	case "choose_side":
		_, err = h.draftService.ChooseSide(ctx, sessionID, userID, msg.Side)
	case "submit_action":
		_, err = h.draftService.SubmitAction(ctx, sessionID, userID, msg.HeroID, msg.IsBan)
	default:
		client.SendJSON(realtime.Message{Type: "error", Payload: "unknown message type"})
		return
	}

	if err != nil {
		client.SendJSON(realtime.Message{Type: "error", Payload: err.Error()})
	}
}
