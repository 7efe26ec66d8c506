package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/internal/pkg/serverutils"
	"linguabridge-gateway/internal/service"
	internalWS "linguabridge-gateway/internal/websocket"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionHandler serves the widget socket: intents in, snapshots out.
type SessionHandler struct {
	verifier serverutils.TokenVerifier
	sessions service.ISessionService
	intents  service.IIntentService
	hub      *internalWS.Hub
	logger   logger.ILogger
}

func NewSessionHandler(
	verifier serverutils.TokenVerifier,
	sessions service.ISessionService,
	intents service.IIntentService,
	hub *internalWS.Hub,
	log logger.ILogger,
) *SessionHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &SessionHandler{
		verifier: verifier,
		sessions: sessions,
		intents:  intents,
		hub:      hub,
		logger:   log,
	}
}

// ServeWs handles websocket requests from the peer.
func (h *SessionHandler) ServeWs(c *fiber.Ctx) error {
	// Priority 1: Query Param (Browser standard)
	tokenStr := c.Query("token")

	// Priority 2: Authorization Header (Tooling/Non-browser standard)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			tokenStr = strings.TrimSpace(authHeader[7:])
		}
	}
	if tokenStr == "" {
		return apperr.ErrAuthRequired
	}

	claims, err := h.verifier.Verify(tokenStr)
	if err != nil {
		h.logger.Warn("SessionHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	sess := h.sessions.Resolve(c.UserContext(), claims, tokenStr)
	snap := sess.Snapshot()
	stateFrame, err := dto.NewFrame(dto.FrameState, snap.State)
	if err != nil {
		return err
	}
	chatFrame, err := dto.NewFrame(dto.FrameChat, snap.Chat)
	if err != nil {
		return err
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SessionHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sess.ID})
		internalWS.ServeWs(h.hub, conn, sess.ID, h.onMessage(claims, tokenStr), stateFrame, chatFrame)
		h.logger.Info("SessionHandler", "WebSocket session ended", map[string]interface{}{"session_id": sess.ID})
	})(c)
}

// onMessage resolves the session per intent, so a socket that outlives an
// expiry or a re-sign-in keeps talking to the live state.
func (h *SessionHandler) onMessage(claims *identity.Claims, token string) internalWS.MessageHandler {
	return func(payload []byte, reply func([]byte)) {
		var req dto.IntentRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			reply(dto.ErrorFrame(fmt.Errorf("%w: %v", apperr.ErrUnknownIntent, err)))
			return
		}

		ctx := context.Background()
		sess := h.sessions.Resolve(ctx, claims, token)
		onErr := func(err error) {
			reply(dto.ErrorFrame(err))
		}
		if err := h.intents.Submit(ctx, sess, &req, onErr); err != nil {
			h.logger.Debug("SessionHandler", "Intent rejected", map[string]interface{}{
				"session_id": sess.ID,
				"kind":       req.Kind,
				"error":      err.Error(),
			})
			onErr(err)
		}
	}
}

// RegisterRoutes registers the widget socket.
func (h *SessionHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
