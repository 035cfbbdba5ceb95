package adapters

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/eliote-geeks/vibestore-live/internal/app"
	"github.com/eliote-geeks/vibestore-live/internal/config"
	"github.com/eliote-geeks/vibestore-live/internal/core"
	"github.com/eliote-geeks/vibestore-live/internal/domain"
)

type LiveWSController struct {
	Coord *app.Coordinator
	Cfg   *config.Config
}

func NewLiveWSController(coord *app.Coordinator, cfg *config.Config) *LiveWSController {
	return &LiveWSController{Coord: coord, Cfg: cfg}
}

var upgrader = websocket.Upgrader{
	// TODO: restrict origins once the web client's production host is fixed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleLive upgrades the request and runs the connection lifecycle:
// register, acknowledge, pump until the read side dies, then clean up.
func (ctl *LiveWSController) HandleLive(ctx context.Context, c *gin.Context) {
	connID := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "adapters.ws").Str("conn", string(connID)).
		Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	if ctl.Cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Cfg.ReadLimit)
	}

	conn := newWSConn(ws, ctl.Cfg.SendBuffer, ctl.Cfg.PingPeriod)

	// Pings from writePump keep the connection alive; a client that stops
	// answering them trips the read deadline and gets cleaned up.
	wait := pongWait(conn.pingPeriod)
	_ = ws.SetReadDeadline(time.Now().Add(wait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wait))
	})
	ctx, cancel := context.WithCancel(ctx)

	ctl.Coord.Connect(connID, conn)

	go func() {
		defer cancel()
		conn.writePump(ctx, connID)
	}()
	go ctl.readPump(ctx, connID, conn)
}

func (ctl *LiveWSController) readPump(ctx context.Context, connID domain.ConnID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("conn", string(connID)).Msg("readPump closing")
		ctl.Coord.Disconnect(connID)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "adapters.ws").Str("conn", string(connID)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Str("conn", string(connID)).Msg("readPump read error")
				return
			}
			ctl.Coord.HandleMessage(connID, data)
		}
	}
}

var _ core.SignalConnection = (*wsConn)(nil)
