package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/holdemd/internal/auth"
	"github.com/lox/holdemd/internal/game"
	"github.com/lox/holdemd/internal/store"
)

const playerKey = "player"

// API wires the HTTP surface: the request/response game API, the table
// lobby, the websocket event stream and the operational endpoints.
type API struct {
	registry  *Registry
	store     *store.Store
	hub       *Hub
	validator auth.Validator
	logger    *log.Logger
	upgrader  websocket.Upgrader
}

// NewAPI builds the gin router around the registry.
func NewAPI(registry *Registry, st *store.Store, hub *Hub, validator auth.Validator, logger *log.Logger) *API {
	return &API{
		registry:  registry,
		store:     st,
		hub:       hub,
		validator: validator,
		logger:    logger.WithPrefix("api"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// same-origin policy is the deployment's concern; tokens
			// gate every subscription regardless of origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router assembles all routes. The prometheus registry backs /metrics.
func (a *API) Router(prom *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(prom, promhttp.HandlerOpts{})))

	router.GET("/tables", a.listTables)
	router.POST("/tables/:table/join_table", a.requireAuth, a.joinTable)

	games := router.Group("/games/:id")
	{
		games.GET("", a.requireAuth, a.getGame)
		games.GET("/hand-history", a.requireAuth, a.handHistory)
		games.POST("/start", a.requireAuth, a.gameCommand(func(c *gin.Context, coord *Coordinator, player string) (game.Snapshot, error) {
			return coord.Start(c.Request.Context(), player)
		}))
		games.POST("/action", a.requireAuth, a.postAction)
		games.POST("/ready", a.requireAuth, a.gameCommand(func(c *gin.Context, coord *Coordinator, player string) (game.Snapshot, error) {
			return coord.Ready(c.Request.Context(), player)
		}))
		games.POST("/cash_out", a.requireAuth, a.gameCommand(func(c *gin.Context, coord *Coordinator, player string) (game.Snapshot, error) {
			return coord.CashOut(c.Request.Context(), player)
		}))
		games.POST("/buy_back_in", a.requireAuth, a.postBuyBackIn)
		games.POST("/leave", a.requireAuth, a.gameCommand(func(c *gin.Context, coord *Coordinator, player string) (game.Snapshot, error) {
			return coord.Leave(c.Request.Context(), player)
		}))
	}

	router.GET("/ws/game/:id", a.subscribe)

	return router
}

// bearerToken pulls the token from the Authorization header, falling
// back to the token query parameter for websocket clients that cannot
// set headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return r.URL.Query().Get("token")
}

func (a *API) requireAuth(c *gin.Context) {
	player, err := a.validator.Validate(c.Request.Context(), bearerToken(c.Request))
	if err != nil {
		if errors.Is(err, auth.ErrUnavailable) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errBody("AUTH_UNAVAILABLE", "token validation unavailable"))
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, errBody("INVALID_TOKEN", "invalid bearer token"))
		return
	}
	c.Set(playerKey, player)
	c.Next()
}

func (a *API) player(c *gin.Context) string {
	return c.GetString(playerKey)
}

func errBody(kind, message string) gin.H {
	return gin.H{"error": gin.H{"kind": kind, "message": message}}
}

// renderError maps engine rejections to HTTP statuses: 404 for unknown
// games, 409 for state conflicts, 400 for the rest, 500 when the error
// did not come from the engine.
func (a *API) renderError(c *gin.Context, err error) {
	kind := game.KindOf(err)
	var status int
	switch kind {
	case game.KindGameNotFound:
		status = http.StatusNotFound
	case game.KindNotYourTurn, game.KindTableBusy, game.KindCashOutDuringHand, game.KindGameNotWaiting:
		status = http.StatusConflict
	case "":
		a.logger.Error("internal error", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, errBody("INTERNAL", "internal server error"))
		return
	default:
		status = http.StatusBadRequest
	}

	var ge *game.Error
	message := err.Error()
	if errors.As(err, &ge) {
		message = ge.Message
	}
	c.JSON(status, errBody(string(kind), message))
}

func (a *API) lookup(c *gin.Context) (*Coordinator, bool) {
	coord, ok := a.registry.Game(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errBody(string(game.KindGameNotFound), "no such game"))
		return nil, false
	}
	return coord, true
}

func (a *API) listTables(c *gin.Context) {
	tables, err := a.registry.Tables(c.Request.Context())
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

func (a *API) joinTable(c *gin.Context) {
	var req struct {
		BuyIn int64 `json:"buy_in"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody(string(game.KindInvalidAction), "malformed request body"))
		return
	}

	snap, err := a.registry.JoinTable(c.Request.Context(), c.Param("table"), a.player(c), req.BuyIn)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game_id": snap.GameID, "game": snap})
}

func (a *API) getGame(c *gin.Context) {
	coord, ok := a.lookup(c)
	if !ok {
		return
	}
	snap, err := coord.Snapshot(c.Request.Context(), a.player(c))
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) handHistory(c *gin.Context) {
	if _, ok := a.lookup(c); !ok {
		return
	}
	histories, err := a.store.HandHistories(c.Param("id"))
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hands": histories})
}

// gameCommand adapts a bodyless per-game command to a handler.
func (a *API) gameCommand(run func(*gin.Context, *Coordinator, string) (game.Snapshot, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		coord, ok := a.lookup(c)
		if !ok {
			return
		}
		snap, err := run(c, coord, a.player(c))
		if err != nil {
			a.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func (a *API) postAction(c *gin.Context) {
	coord, ok := a.lookup(c)
	if !ok {
		return
	}

	var req struct {
		ActionType string `json:"action_type"`
		Amount     int64  `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody(string(game.KindInvalidAction), "malformed request body"))
		return
	}
	action, err := game.ParseActionType(req.ActionType)
	if err != nil {
		a.renderError(c, err)
		return
	}

	snap, err := coord.Action(c.Request.Context(), a.player(c), action, req.Amount)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) postBuyBackIn(c *gin.Context) {
	coord, ok := a.lookup(c)
	if !ok {
		return
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody(string(game.KindInvalidAction), "malformed request body"))
		return
	}

	snap, err := coord.BuyBackIn(c.Request.Context(), a.player(c), req.Amount)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// subscribe upgrades to a websocket and attaches the caller to the
// game's event stream. Authentication failures are reported with close
// codes after the upgrade so clients get a deterministic reason instead
// of an opaque handshake failure.
func (a *API) subscribe(c *gin.Context) {
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error
		return
	}

	closeWith := func(code int, reason string) {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = conn.Close()
	}

	player, err := a.validator.Validate(c.Request.Context(), bearerToken(c.Request))
	if err != nil {
		closeWith(closeAuthFailed, "authentication failed")
		return
	}

	gameID := c.Param("id")
	coord, ok := a.registry.Game(gameID)
	if !ok {
		closeWith(closeGameNotFound, "no such game")
		return
	}

	member, err := coord.IsMember(c.Request.Context(), player)
	if err != nil {
		closeWith(websocket.CloseInternalServerErr, "subscription failed")
		return
	}
	if !member {
		closeWith(closeNotMember, "not seated in this game")
		return
	}

	snap, err := coord.Snapshot(c.Request.Context(), player)
	if err != nil {
		closeWith(websocket.CloseInternalServerErr, "subscription failed")
		return
	}

	sub := NewSubscriber(a.hub, gameID, player, conn)
	// queue the resync snapshot before the pumps start so it is always
	// the first message the client sees
	sub.Send(Envelope{Type: eventGameUpdate, Data: snap})
	a.hub.Add(gameID, sub)
}
