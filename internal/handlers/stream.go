package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/lifehubapp/lifehub/internal/backend"
	"github.com/lifehubapp/lifehub/internal/live"
)

// StreamHandler feeds a websocket client the full ordered snapshot of one
// collection on every backend push. This is the real-time channel the
// view layer renders from.
type StreamHandler struct {
	engine *live.Engine
	now    func() time.Time
}

func NewStreamHandler(engine *live.Engine) *StreamHandler {
	return &StreamHandler{engine: engine, now: time.Now}
}

var upgrader = websocket.Upgrader{
	// The bearer token already authenticates the request; origin checks
	// add nothing for a native mobile client.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type streamMessage struct {
	Collection string `json:"collection"`
	Items      any    `json:"items"`
}

func streamSpec(collection string) (backend.SortSpec, bool) {
	switch collection {
	case live.CollectionTodos:
		return live.TodoSort, true
	case live.CollectionHabits:
		return live.HabitSort, true
	case live.CollectionNotes:
		return live.NoteSort, true
	default:
		return backend.SortSpec{}, false
	}
}

func (h *StreamHandler) Stream(c echo.Context) error {
	collection := c.Param("collection")
	spec, ok := streamSpec(collection)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown collection"})
	}
	owner := ownerFrom(c)

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	sub, err := h.engine.Open(ctx, owner.UID, collection, spec)
	if err != nil {
		log.Printf("stream open %s/%s: %v", owner.UID, collection, err)
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "could not open subscription"),
			time.Now().Add(time.Second))
		return nil
	}
	defer sub.Close()

	// Keep only the newest pending snapshot; a slow client always gets a
	// later, complete state rather than replaying intermediate ones.
	snaps := make(chan backend.Snapshot, 1)
	sub.OnSnapshot(func(snap backend.Snapshot) {
		for {
			select {
			case snaps <- snap:
				return
			default:
				select {
				case <-snaps:
				default:
				}
			}
		}
	})

	// The client never sends data; reads only detect the close.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case snap := <-snaps:
			msg := streamMessage{Collection: collection, Items: h.encode(collection, snap)}
			if err := ws.WriteJSON(msg); err != nil {
				return nil
			}
		case <-sub.Done():
			// Owner change or server shutdown tore the subscription down.
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription closed"),
				time.Now().Add(time.Second))
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (h *StreamHandler) encode(collection string, snap backend.Snapshot) any {
	switch collection {
	case live.CollectionHabits:
		return live.DecodeHabits(snap, civil.DateOf(h.now()))
	case live.CollectionNotes:
		return live.DecodeNotes(snap)
	default:
		return live.DecodeTodos(snap)
	}
}
