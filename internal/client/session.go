package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ability-server/internal/catalog"
	"ability-server/internal/domain"
	"ability-server/internal/engine"
	"ability-server/internal/version"
	"ability-server/pkg/api"
	"ability-server/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait     = 10 * time.Second
	handshakeWait = 5 * time.Second
	sendBuffer    = 64
)

var (
	ErrLoginRejected = errors.New("login rejected")
	ErrClosed        = errors.New("session closed")
)

// Options - параметры подключения.
type Options struct {
	// BaseURL - http(s) адрес сервера, например http://localhost:8080.
	BaseURL string
	Name    string
	// Token - ID из прошлой сессии. Пустой - новый игрок.
	Token string
	// FrameRate - как часто двигаются локальные часы прокси между кадрами.
	FrameRate int
}

// Session - одно подключение клиента: WebSocket, прокси мира и очередь команд.
// Прокси трогает только горутина Run; снаружи к нему обращаются через Do.
type Session struct {
	conn  *websocket.Conn
	proxy *engine.Proxy
	opts  Options
	self  domain.ActorID

	inbox chan api.ServerMessage
	send  chan api.ClientCommand
	calls chan func(p *engine.Proxy)
	done  chan struct{}
	stop  chan struct{}
	err   error
}

// Dial проверяет версию протокола, подключается и ждет WELCOME.
func Dial(ctx context.Context, cat *catalog.Catalog, opts Options) (*Session, error) {
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}

	// 1. Версия протокола
	if err := checkVersion(ctx, opts.BaseURL); err != nil {
		return nil, err
	}

	// 2. WebSocket
	wsURL, err := websocketURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	s := &Session{
		conn:  conn,
		opts:  opts,
		inbox: make(chan api.ServerMessage, sendBuffer),
		send:  make(chan api.ClientCommand, sendBuffer),
		calls: make(chan func(p *engine.Proxy)),
		done:  make(chan struct{}),
		stop:  make(chan struct{}),
	}
	s.proxy = engine.NewProxy(cat, forwarder{s: s})

	// 3. LOGIN и WELCOME
	welcome, err := s.login()
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.proxy.Apply(welcome)
	s.self = s.proxy.SelfID()

	s.log().WithField("actor", welcome.YourID).Info("Session established")

	go s.readPump()
	go s.writePump()
	return s, nil
}

func (s *Session) login() (api.ServerMessage, error) {
	payload, err := json.Marshal(api.LoginPayload{Name: s.opts.Name})
	if err != nil {
		return api.ServerMessage{}, err
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(api.ClientCommand{Token: s.opts.Token, Action: "LOGIN", Payload: payload}); err != nil {
		return api.ServerMessage{}, fmt.Errorf("send login: %w", err)
	}

	s.conn.SetReadDeadline(time.Now().Add(handshakeWait))
	var msg api.ServerMessage
	if err := s.conn.ReadJSON(&msg); err != nil {
		return api.ServerMessage{}, fmt.Errorf("read welcome: %w", err)
	}
	s.conn.SetReadDeadline(time.Time{})

	switch msg.Type {
	case api.MsgWelcome:
		return msg, nil
	case api.MsgError:
		return api.ServerMessage{}, fmt.Errorf("%w: %s", ErrLoginRejected, msg.Error)
	default:
		return api.ServerMessage{}, fmt.Errorf("%w: unexpected %s", ErrLoginRejected, msg.Type)
	}
}

// Run применяет кадры к прокси и двигает его часы, пока не отменят ctx или не закроется соединение.
// onFrame вызывается в той же горутине после каждого шага часов.
func (s *Session) Run(ctx context.Context, onFrame func(p *engine.Proxy)) error {
	interval := time.Second / time.Duration(s.opts.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer s.conn.Close()
	defer close(s.stop)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.closeGracefully()
			return nil

		case msg, ok := <-s.inbox:
			if !ok {
				return s.err
			}
			s.proxy.Apply(msg)

		case fn := <-s.calls:
			fn(s.proxy)

		case now := <-ticker.C:
			s.proxy.Advance(now.Sub(last).Seconds())
			last = now
			if onFrame != nil {
				onFrame(s.proxy)
			}
		}
	}
}

// Do выполняет fn с прокси в горутине Run.
func (s *Session) Do(ctx context.Context, fn func(p *engine.Proxy)) error {
	done := make(chan struct{})
	call := func(p *engine.Proxy) {
		fn(p)
		close(done)
	}
	select {
	case s.calls <- call:
	case <-s.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-s.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelfID - актор этой сессии.
func (s *Session) SelfID() domain.ActorID { return s.self }

// Done закрывается, когда соединение оборвалось.
func (s *Session) Done() <-chan struct{} { return s.done }

// Move отправляет MOVE к точке.
func (s *Session) Move(to domain.Vec) error {
	return s.Send("MOVE", api.PositionPayload{X: to.X, Y: to.Y})
}

// Interact отправляет INTERACT.
func (s *Session) Interact(target domain.ActorID) error {
	return s.Send("INTERACT", api.EntityPayload{TargetID: string(target)})
}

// SetTarget отправляет SET_TARGET.
func (s *Session) SetTarget(target domain.ActorID) error {
	return s.Send("SET_TARGET", api.EntityPayload{TargetID: string(target)})
}

// Save просит сервер сохранить мир в слот.
func (s *Session) Save(slot string) error {
	return s.Send("SAVE", api.SavePayload{Slot: slot})
}

// Send ставит команду в очередь отправки. Не блокирует.
func (s *Session) Send(action string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	cmd := api.ClientCommand{Token: string(s.self), Action: action, Payload: raw}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.send <- cmd:
		return nil
	default:
		return fmt.Errorf("send queue full, %s dropped", action)
	}
}

// readPump читает кадры сервера и передает их в Run.
func (s *Session) readPump() {
	defer func() {
		close(s.inbox)
		close(s.done)
	}()
	for {
		var msg api.ServerMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.err = err
			}
			return
		}
		select {
		case s.inbox <- msg:
		case <-s.stop:
			return
		}
	}
}

// writePump - единственный писатель в соединение после LOGIN.
func (s *Session) writePump() {
	for {
		select {
		case cmd := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(cmd); err != nil {
				s.log().WithError(err).WithField("action", cmd.Action).Debug("write command failed")
				return
			}
		case <-s.done:
			return
		case <-s.stop:
			return
		}
	}
}

func (s *Session) closeGracefully() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		s.log().WithError(err).Debug("close message failed")
	}
}

func (s *Session) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{"component": "session", "name": s.opts.Name})
}

// forwarder превращает предсказанные старты/остановки в команды серверу.
type forwarder struct {
	s *Session
}

func (f forwarder) ServerStartAction(owner, _ domain.ActorID, name string) {
	f.forward("START_ACTION", owner, name)
}

func (f forwarder) ServerStopAction(owner, _ domain.ActorID, name string) {
	f.forward("STOP_ACTION", owner, name)
}

func (f forwarder) forward(action string, owner domain.ActorID, name string) {
	if err := f.s.Send(action, api.ActionPayload{Name: name, Owner: string(owner)}); err != nil {
		f.s.log().WithError(err).Warn("Forward failed")
	}
}

func checkVersion(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/version", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("version request: %w", err)
	}
	defer resp.Body.Close()

	var info version.VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("decode version: %w", err)
	}
	return version.CheckProtocol(info.Protocol)
}

func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
