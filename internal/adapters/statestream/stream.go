// Package statestream pushes published composite states to UI clients over
// a WebSocket.
package statestream

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hevlin/MediaGroup/internal/app"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Group *app.GroupController
}

func NewController(group *app.GroupController) *Controller {
	return &Controller{Group: group}
}

// HandleState upgrades the request and streams every published composite
// state until the client goes away. The first frame is the current state,
// so clients never start blank.
func (ctl *Controller) HandleState(ctx context.Context, c *gin.Context) {
	sid := c.GetString("client_token")
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "statestream").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "statestream").Str("sid", sid).Msg("state stream connected")

	updates, cancel := ctl.Group.Watch()
	ctx, stop := context.WithCancel(ctx)

	go ctl.writePump(ctx, ws, ctl.Group.Composite(), updates, func() {
		stop()
		cancel()
	})
	go ctl.readPump(ctx, sid, ws, stop)
}

func (ctl *Controller) writePump(ctx context.Context, ws *websocket.Conn, first app.Composite, updates <-chan app.Composite, done func()) {
	defer done()
	defer ws.Close()

	if !writeComposite(ws, first) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case composite, ok := <-updates:
			if !ok {
				return
			}
			if !writeComposite(ws, composite) {
				return
			}
		}
	}
}

// readPump drains client frames so pings are answered; clients have
// nothing to say on this endpoint.
func (ctl *Controller) readPump(ctx context.Context, sid string, ws *websocket.Conn, stop func()) {
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := ws.ReadMessage(); err != nil {
				log.Info().Str("module", "statestream").Str("sid", sid).Msg("state stream closed")
				return
			}
		}
	}
}

func writeComposite(ws *websocket.Conn, composite app.Composite) bool {
	data, err := json.Marshal(composite)
	if err != nil {
		log.Error().Err(err).Str("module", "statestream").Msg("marshal composite")
		return false
	}
	if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return false
	}
	return true
}
