package gateway

import (
	"context"
	"net/http"
	"time"

	"chakula-delivery/internal/common/auth"
	"chakula-delivery/internal/common/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// inboundFrame is what subscribers send: an auth frame first, then
// join/leave frames.
type inboundFrame struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
	Room  string `json:"room,omitempty"`
}

// WSHandler upgrades the connection, authenticates the first frame and
// then serves join/leave requests until the peer goes away.
func (g *Gateway) WSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("ws_upgrade", "websocket upgrade failed", "", "", err.Error())
		return
	}

	var authFrame inboundFrame
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := conn.ReadJSON(&authFrame); err != nil || authFrame.Type != "auth" {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth frame required"))
		conn.Close()
		return
	}

	actor, err := auth.ActorFromToken("Bearer " + authFrame.Token)
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"))
		conn.Close()
		return
	}

	client := &Client{
		ID:       uuid.NewString(),
		Actor:    actor,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		LastPong: time.Now(),
	}

	// Everyone gets their private topic on connect.
	g.Hub.Join(RoomForUser(actor.ID), client)
	logger.Info("ws_connected", "subscriber connected as "+string(actor.Role), "", "")

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		client.LastPong = time.Now()
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go g.writePump(client)
	go g.readPump(client)
}

func (g *Gateway) readPump(c *Client) {
	defer func() {
		g.Hub.Disconnect(c)
		close(c.Send)
		c.Conn.Close()
	}()

	for {
		var frame inboundFrame
		if err := c.Conn.ReadJSON(&frame); err != nil {
			return
		}
		switch frame.Type {
		case "join":
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := g.Authorize(ctx, c.Actor, frame.Room)
			cancel()
			if err != nil {
				logger.Warn("ws_join", "room join rejected", "", "", err.Error())
				continue
			}
			g.Hub.Join(frame.Room, c)
		case "leave":
			g.Hub.Leave(frame.Room, c)
		}
	}
}

func (g *Gateway) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
