package ws

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/emandor/bookcover_service/internal/telemetry"
)

// conn is the subset of *websocket.Conn the hub writes to.
type conn interface {
	WriteJSON(v any) error
}

var (
	mu    sync.RWMutex
	rooms = map[string]map[conn]*sync.Mutex{}
)

type Action string

const (
	ActionJoin  Action = "join"
	ActionLeave Action = "leave"
)

type Room string

const RoomGallery Room = "cover.gallery"

type Event string

const (
	EventCoverProcessed Event = "cover.event.processed"
	EventCoverFailed    Event = "cover.event.failed"
)

type PayloadEvent struct {
	Event Event `json:"event"`
	Data  any   `json:"data,omitempty"`
}

type ClientMessage struct {
	Action Action `json:"action"`
	Room   string `json:"room"`
}

type FailedPayload struct {
	Filename string `json:"filename,omitempty"`
	Kind     string `json:"kind"`
	Error    string `json:"error"`
}

func HandleWS(c *websocket.Conn) {
	tlog := telemetry.Component("ws")
	tlog.Info().Msg("ws_connected")
	defer func() {
		leaveAll(c)
		_ = c.Close()
		tlog.Info().Msg("ws_disconnected")
	}()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		handleMessage(c, msg)
	}
}

func handleMessage(c conn, msg []byte) {
	var cm ClientMessage
	if err := json.Unmarshal(msg, &cm); err != nil {
		return
	}
	switch cm.Action {
	case ActionJoin:
		joinRoom(c, cm.Room)
	case ActionLeave:
		leaveRoom(c, cm.Room)
	}
}

func joinRoom(c conn, room string) {
	if room == "" {
		return
	}
	mu.Lock()
	if rooms[room] == nil {
		rooms[room] = map[conn]*sync.Mutex{}
	}
	if _, ok := rooms[room][c]; !ok {
		rooms[room][c] = &sync.Mutex{}
	}
	mu.Unlock()
	telemetry.Component("ws").Debug().Str("room", room).Msg("ws_join")
}

func leaveRoom(c conn, room string) {
	if room == "" {
		return
	}
	mu.Lock()
	delete(rooms[room], c)
	if len(rooms[room]) == 0 {
		delete(rooms, room)
	}
	mu.Unlock()
	telemetry.Component("ws").Debug().Str("room", room).Msg("ws_leave")
}

func leaveAll(c conn) {
	mu.Lock()
	for room := range rooms {
		delete(rooms[room], c)
		if len(rooms[room]) == 0 {
			delete(rooms, room)
		}
	}
	mu.Unlock()
}

func Subscribers(room Room) int {
	mu.RLock()
	defer mu.RUnlock()
	return len(rooms[string(room)])
}

// broadcast writes pl to every member of room. Writes to one connection are
// serialized since the websocket conn is not safe for concurrent writers.
func broadcast(room Room, pl PayloadEvent) {
	type target struct {
		c  conn
		mu *sync.Mutex
	}
	mu.RLock()
	targets := make([]target, 0, len(rooms[string(room)]))
	for c, m := range rooms[string(room)] {
		targets = append(targets, target{c, m})
	}
	mu.RUnlock()

	for _, t := range targets {
		t.mu.Lock()
		err := t.c.WriteJSON(pl)
		t.mu.Unlock()
		if err != nil {
			telemetry.Component("ws").Debug().Err(err).Msg("ws_write_fail")
		}
	}
}

// BroadcastCoverProcessed announces a new gallery entry.
func BroadcastCoverProcessed(cover any) {
	broadcast(RoomGallery, PayloadEvent{Event: EventCoverProcessed, Data: cover})
}

func BroadcastCoverFailed(filename, kind string, err error) {
	pl := FailedPayload{Filename: filename, Kind: kind}
	if err != nil {
		pl.Error = err.Error()
	}
	broadcast(RoomGallery, PayloadEvent{Event: EventCoverFailed, Data: pl})
}
