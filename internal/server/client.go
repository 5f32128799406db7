package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"ability-server/internal/domain"
	"ability-server/internal/engine"
	"ability-server/pkg/api"
	"ability-server/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	joinTimeout    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между Websocket и Instance
type Client struct {
	Game    *engine.Instance
	Conn    *websocket.Conn
	Send    chan api.ServerMessage // Личный канал из Hub
	ActorID domain.ActorID
}

func NewClient(game *engine.Instance, conn *websocket.Conn) *Client {
	return &Client{
		Game: game,
		Conn: conn,
	}
}

// readPump читает команды от клиента. writePump стартует после успешного LOGIN.
func (c *Client) readPump() {
	defer func() {
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close websocket connection")
		}
		if c.Send != nil {
			c.leave()
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	// 1. HANDSHAKE (LOGIN)
	res, err := c.handshake()
	if err != nil {
		logger.Log.WithError(err).Warn("Handshake failed")
		c.writeError(err.Error())
		return
	}
	c.ActorID = res.ID
	c.Send = res.Updates

	// 2. С этого момента в соединение пишет только writePump
	go c.writePump()

	// 3. ЦИКЛ ЧТЕНИЯ КОМАНД
	for {
		var cmd api.ClientCommand
		err := c.Conn.ReadJSON(&cmd)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.WithError(err).Warn("WS read error")
			}
			break
		}
		// Токен берем из соединения, а не из сообщения
		cmd.Token = string(c.ActorID)
		c.Game.ProcessCommand(cmd)
	}
}

func (c *Client) handshake() (engine.JoinResult, error) {
	var loginCmd api.ClientCommand
	if err := c.Conn.ReadJSON(&loginCmd); err != nil {
		return engine.JoinResult{}, err
	}
	if domain.ParseCommand(loginCmd.Action) != domain.CommandLogin {
		return engine.JoinResult{}, errLoginRequired
	}

	var payload api.LoginPayload
	if len(loginCmd.Payload) > 0 {
		if err := json.Unmarshal(loginCmd.Payload, &payload); err != nil {
			return engine.JoinResult{}, err
		}
	}
	if err := payload.Validate(); err != nil {
		return engine.JoinResult{}, err
	}

	reply := make(chan engine.JoinResult, 1)
	c.Game.JoinChan <- engine.JoinRequest{
		Token: strings.TrimSpace(loginCmd.Token),
		Name:  strings.TrimSpace(payload.Name),
		Reply: reply,
	}

	select {
	case res := <-reply:
		return res, res.Err
	case <-time.After(joinTimeout):
		return engine.JoinResult{}, errJoinTimeout
	}
}

func (c *Client) leave() {
	select {
	case c.Game.LeaveChan <- engine.LeaveRequest{ID: c.ActorID, Ch: c.Send}:
		logger.Log.WithField("actor", c.ActorID).Info("Client disconnected")
	case <-time.After(joinTimeout):
		logger.Log.WithField("actor", c.ActorID).Warn("Leave request dropped")
	}
}

// writeError - ответ до запуска writePump (handshake).
func (c *Client) writeError(text string) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := c.Conn.WriteJSON(api.ServerMessage{Type: api.MsgError, Error: text}); err != nil {
		logger.Log.WithError(err).Debug("write error message failed")
	}
}

// writePump отправляет данные клиенту + Ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				// Hub закрыл канал (выход или переподключение)
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logger.Log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				logger.Log.WithError(err).WithFields(logrus.Fields{
					"actor": c.ActorID,
					"type":  message.Type,
				}).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
