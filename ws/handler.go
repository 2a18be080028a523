package ws

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"groupchat/contract"
	"groupchat/domain"
	"groupchat/domain/event"
	"groupchat/errors"
	"groupchat/services"
)

// Handler terminates websocket sessions and translates inbound
// envelopes into engine calls. It holds no per-session state itself;
// everything lives in the presence registry and the router.
type Handler struct {
	log          *slog.Logger
	upgrader     websocket.Upgrader
	presence     contract.IPresence
	router       contract.IRouter
	auth         services.IAuthService
	rooms        services.IRoomService
	chat         services.IChatService
	historyLimit int
}

func NewHandler(
	log *slog.Logger,
	presence contract.IPresence,
	router contract.IRouter,
	auth services.IAuthService,
	rooms services.IRoomService,
	chat services.IChatService,
	historyLimit int,
) *Handler {
	return &Handler{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from arbitrary origins in
			// development; auth happens at the join envelope instead.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		presence:     presence,
		router:       router,
		auth:         auth,
		rooms:        rooms,
		chat:         chat,
		historyLimit: historyLimit,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(domain.ConnectionID(uuid.NewString()), conn, h.log)
	h.router.Attach(client.ID(), client)
	h.log.Debug("Connection opened", "connection", string(client.ID()), "remote", r.RemoteAddr)

	go client.writePump()
	client.readPump(
		func(env Envelope) { h.dispatch(r.Context(), client, env) },
		func() { h.onDisconnect(client) },
	)
}

func (h *Handler) onDisconnect(client *Client) {
	ctx := context.Background()
	h.router.Detach(client.ID())
	client.close()

	identity, ok := h.presence.Unregister(client.ID())
	if !ok {
		return
	}
	h.log.Info("User disconnected", "username", identity.Username)
	h.router.PublishGlobal(ctx, event.UserLeft{
		Username:  identity.Username,
		UserCount: h.presence.Count(),
		At:        time.Now().UTC(),
	})
}

func (h *Handler) dispatch(ctx context.Context, client *Client, env Envelope) {
	var err error
	switch env.Type {
	case inboundJoin:
		err = h.handleJoin(ctx, client, env.Payload)
	case inboundChat:
		err = h.handleChat(ctx, client, env.Payload)
	case inboundCreateRoom:
		err = h.handleCreateRoom(ctx, client, env.Payload)
	case inboundJoinRoom:
		err = h.handleJoinRoom(ctx, client, env.Payload)
	case inboundLeaveRoom:
		err = h.handleLeaveRoom(ctx, client, env.Payload)
	case inboundSwitchRoom:
		err = h.handleSwitchRoom(ctx, client, env.Payload)
	case inboundListRooms:
		err = h.sendRoomList(ctx, client)
	case inboundDeleteRoom:
		err = h.handleDeleteRoom(ctx, client, env.Payload)
	case inboundRegister:
		err = h.handleRegister(ctx, client, env.Payload)
	case inboundLogin:
		err = h.handleLogin(ctx, client, env.Payload)
	default:
		h.router.Send(ctx, client.ID(), event.ErrorNotice{Message: "unknown event type: " + env.Type})
		return
	}
	if err != nil {
		h.log.Debug("Envelope rejected",
			"connection", string(client.ID()),
			"type", env.Type,
			"error", err)
		h.router.Send(ctx, client.ID(), event.ErrorNotice{Message: noticeFor(err)})
	}
}

// handleJoin binds an identity to the connection. A valid token wins;
// otherwise the display name resolves to a persistent guest identity.
func (h *Handler) handleJoin(ctx context.Context, client *Client, raw []byte) error {
	var p JoinPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}

	var identity domain.Identity
	var err error
	if p.Token != "" {
		identity, err = h.auth.Resolve(p.Token)
	}
	if p.Token == "" || err != nil {
		identity, err = h.auth.IdentityForName(p.Username)
		if err != nil {
			return err
		}
	}

	if err := h.presence.Register(client.ID(), identity); err != nil {
		return err
	}

	roomID, err := h.rooms.EnsureDefaultMembership(identity)
	if err != nil {
		return err
	}

	h.enterRoom(ctx, client, roomID)
	h.log.Info("User joined", "username", identity.Username, "online", h.presence.Count())
	h.router.PublishGlobal(ctx, event.UserJoined{
		Username:  identity.Username,
		UserCount: h.presence.Count(),
		At:        time.Now().UTC(),
	})
	return h.sendRoomList(ctx, client)
}

func (h *Handler) handleChat(ctx context.Context, client *Client, raw []byte) error {
	var p ChatPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	return h.chat.PostMessage(ctx, client.ID(), p.Message)
}

func (h *Handler) handleCreateRoom(ctx context.Context, client *Client, raw []byte) error {
	var p CreateRoomPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	identity, ok := h.presence.IdentityOf(client.ID())
	if !ok {
		return errors.ErrNotRegistered
	}

	room, err := h.rooms.CreateRoom(p.Name, p.Description, identity, p.IsPrivate)
	if err != nil {
		return err
	}
	h.log.Info("Room created", "room", room.Name, "creator", identity.Username)

	// Private rooms stay invisible to everyone but their members.
	created := event.RoomCreated{Room: event.FromRoom(room)}
	if room.IsPrivate {
		h.router.Send(ctx, client.ID(), created)
	} else {
		h.router.PublishGlobal(ctx, created)
	}
	h.switchTo(ctx, client, room.ID)
	return nil
}

// handleJoinRoom adds a membership and moves the connection into the
// room in one step. An existing membership is not an error for the
// move.
func (h *Handler) handleJoinRoom(ctx context.Context, client *Client, raw []byte) error {
	var p RoomTargetPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	identity, ok := h.presence.IdentityOf(client.ID())
	if !ok {
		return errors.ErrNotRegistered
	}

	roomID := domain.RoomID(p.RoomID)
	if err := h.rooms.JoinRoom(identity, roomID); err != nil && !stderrors.Is(err, errors.ErrAlreadyMember) {
		return err
	}
	h.switchTo(ctx, client, roomID)
	return nil
}

// handleLeaveRoom drops the membership. When the connection is
// currently observing that room it falls back to the default room.
func (h *Handler) handleLeaveRoom(ctx context.Context, client *Client, raw []byte) error {
	var p RoomTargetPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	identity, ok := h.presence.IdentityOf(client.ID())
	if !ok {
		return errors.ErrNotRegistered
	}

	roomID := domain.RoomID(p.RoomID)
	if err := h.rooms.LeaveRoom(identity, roomID); err != nil {
		return err
	}
	if current, ok := h.presence.CurrentRoomOf(client.ID()); ok && current == roomID {
		h.switchTo(ctx, client, h.rooms.DefaultRoomID())
	}
	return h.sendRoomList(ctx, client)
}

func (h *Handler) handleSwitchRoom(ctx context.Context, client *Client, raw []byte) error {
	var p RoomTargetPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	identity, ok := h.presence.IdentityOf(client.ID())
	if !ok {
		return errors.ErrNotRegistered
	}

	roomID := domain.RoomID(p.RoomID)
	member, err := h.rooms.IsMember(identity, roomID)
	if err != nil {
		return err
	}
	if !member {
		return errors.ErrRoomNotFound
	}
	h.switchTo(ctx, client, roomID)
	return nil
}

// handleDeleteRoom deletes the room and relocates every connection
// that was observing it to the default room.
func (h *Handler) handleDeleteRoom(ctx context.Context, client *Client, raw []byte) error {
	var p RoomTargetPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	identity, ok := h.presence.IdentityOf(client.ID())
	if !ok {
		return errors.ErrNotRegistered
	}

	roomID := domain.RoomID(p.RoomID)
	displaced := h.router.Subscribers(roomID)

	room, err := h.rooms.DeleteRoom(roomID, identity)
	if err != nil {
		return err
	}
	h.log.Info("Room deleted", "room", room.Name, "by", identity.Username)

	h.router.PublishGlobal(ctx, event.RoomDeleted{RoomID: uint64(roomID), Name: room.Name})
	defaultID := h.rooms.DefaultRoomID()
	for _, conn := range displaced {
		h.router.Unsubscribe(conn, roomID)
		h.router.Subscribe(conn, defaultID)
		h.presence.SetCurrentRoom(conn, defaultID)
		h.sendRoomState(ctx, conn, defaultID)
	}
	return nil
}

func (h *Handler) handleRegister(ctx context.Context, client *Client, raw []byte) error {
	var p CredentialsPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	token, identity, err := h.auth.Register(p.Username, p.Password)
	if err != nil {
		return err
	}
	h.router.Send(ctx, client.ID(), event.Auth{
		Token:    string(token),
		UserID:   uint64(identity.UserID),
		Username: identity.Username,
	})
	return nil
}

func (h *Handler) handleLogin(ctx context.Context, client *Client, raw []byte) error {
	var p CredentialsPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	token, identity, err := h.auth.Login(p.Username, p.Password)
	if err != nil {
		return err
	}
	h.router.Send(ctx, client.ID(), event.Auth{
		Token:    string(token),
		UserID:   uint64(identity.UserID),
		Username: identity.Username,
	})
	return nil
}

// switchTo swaps the connection's room subscription and sends the new
// room's snapshot and history. Subscriptions change before the
// presence record so no event for the old room can arrive after the
// snapshot.
func (h *Handler) switchTo(ctx context.Context, client *Client, roomID domain.RoomID) {
	if current, ok := h.presence.CurrentRoomOf(client.ID()); ok {
		if current == roomID {
			return
		}
		h.router.Unsubscribe(client.ID(), current)
	}
	h.enterRoom(ctx, client, roomID)
}

func (h *Handler) enterRoom(ctx context.Context, client *Client, roomID domain.RoomID) {
	h.router.Subscribe(client.ID(), roomID)
	h.presence.SetCurrentRoom(client.ID(), roomID)
	h.sendRoomState(ctx, client.ID(), roomID)
}

// sendRoomState sends the room snapshot and recent history to a single
// connection. Both are best-effort: a failed read is logged, not fatal
// to the session.
func (h *Handler) sendRoomState(ctx context.Context, conn domain.ConnectionID, roomID domain.RoomID) {
	room, members, err := h.rooms.Snapshot(roomID)
	if err != nil {
		h.log.Warn("Room snapshot failed", "room", uint64(roomID), "error", err)
		return
	}
	h.router.Send(ctx, conn, event.RoomSnapshot{Room: event.FromRoom(room), MemberCount: members})

	history, err := h.chat.History(roomID, h.historyLimit)
	if err != nil {
		h.log.Warn("History read failed", "room", uint64(roomID), "error", err)
		return
	}
	messages := make([]event.ChatMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, event.FromMessage(m))
	}
	h.router.Send(ctx, conn, event.ChatHistory{RoomID: uint64(roomID), Messages: messages})
}

func (h *Handler) sendRoomList(ctx context.Context, client *Client) error {
	identity, ok := h.presence.IdentityOf(client.ID())
	if !ok {
		return errors.ErrNotRegistered
	}
	rooms, err := h.rooms.ListRooms(identity)
	if err != nil {
		return err
	}
	payload := make([]event.RoomPayload, 0, len(rooms))
	for _, room := range rooms {
		payload = append(payload, event.FromRoom(room))
	}
	h.router.Send(ctx, client.ID(), event.RoomList{Rooms: payload})
	return nil
}

// noticeFor maps engine errors to the short messages clients display.
// Unknown errors stay generic so internals never leak to peers.
func noticeFor(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrNameTaken):
		return "That name is already taken"
	case stderrors.Is(err, errors.ErrNotRegistered):
		return "Join before sending messages"
	case stderrors.Is(err, errors.ErrEmptyMessage):
		return "Message cannot be empty"
	case stderrors.Is(err, errors.ErrEmptyRoomName):
		return "Room name cannot be empty"
	case stderrors.Is(err, errors.ErrDuplicateRoomName):
		return "A room with that name already exists"
	case stderrors.Is(err, errors.ErrRoomNotFound):
		return "Room not found"
	case stderrors.Is(err, errors.ErrNotCreator):
		return "Only the room creator can delete it"
	case stderrors.Is(err, errors.ErrCannotDeleteDefaultRoom):
		return "The default room cannot be deleted"
	case stderrors.Is(err, errors.ErrCannotLeaveDefaultRoom):
		return "The default room cannot be left"
	case stderrors.Is(err, errors.ErrAlreadyMember):
		return "Already a member of that room"
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		return "Invalid username or password"
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		return "That username is already registered"
	case stderrors.Is(err, errors.ErrInvalidPassword):
		return "Password does not meet the requirements"
	case stderrors.Is(err, errors.ErrInvalidToken):
		return "Session expired, please join again"
	default:
		return "Request failed"
	}
}
