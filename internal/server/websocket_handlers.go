package server

import (
	"encoding/json"
	"log"
	"time"

	"rau/internal/cache"
	"rau/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue WebSocket ticket
// @Description Single-use ticket valid for 30 seconds, passed as ?ticket= on /api/ws.
// @Tags realtime
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "WebSocket tickets require Redis; connect with ?token= instead",
			Code:  models.CodeInternal,
		})
	}
	ticket, err := cache.IssueWSTicket(c.UserContext(), s.redis, callerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(cache.WSTicketTTL / time.Second),
	})
}

// ActivityStreamHandler upgrades GET /api/ws and streams the caller's activity
// events. Authentication is handled by WSAuth and userID is read from locals.
func (s *Server) ActivityStreamHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals(localUserID).(uint)
		if !ok || uid == 0 {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			log.Printf("activity socket: failed to register user %d: %v", uid, err)
			msg, _ := json.Marshal(fiber.Map{"type": "error", "payload": fiber.Map{"error": err.Error()}})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}

		hello, _ := json.Marshal(fiber.Map{
			"type":    "connected",
			"payload": fiber.Map{"user_id": uid, "flags": s.featureFlags.Snapshot(uid)},
		})
		client.TrySend(hello)

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.Status(fiber.StatusUpgradeRequired).JSON(models.ErrorResponse{
				Error: "WebSocket upgrade required",
				Code:  models.CodeValidation,
			})
		}
		return upgrade(c)
	}
}
