package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/LiorVainer/web-final-project-server/internal/chat"
	"github.com/LiorVainer/web-final-project-server/internal/middleware"
	"github.com/LiorVainer/web-final-project-server/pkg/logger"
	"github.com/LiorVainer/web-final-project-server/pkg/metrics"
)

// Options holds websocket transport settings.
type Options struct {
	ReadLimit      int64
	SendBuffer     int
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Handler upgrades HTTP requests to websocket connections and runs their
// read/write pumps against the chat router.
type Handler struct {
	router   *chat.Router
	logger   *logger.Logger
	upgrader websocket.Upgrader

	readLimit    int64
	sendBuffer   int
	pingInterval time.Duration
	pongTimeout  time.Duration
	writeTimeout time.Duration
}

// NewHandler creates a websocket handler.
func NewHandler(router *chat.Router, log *logger.Logger, opts Options) *Handler {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 64 * 1024
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	return &Handler{
		router:       router,
		logger:       log,
		upgrader:     makeUpgrader(opts.AllowedOrigins),
		readLimit:    opts.ReadLimit,
		sendBuffer:   opts.SendBuffer,
		pingInterval: opts.PingInterval,
		pongTimeout:  opts.PongTimeout,
		writeTimeout: opts.WriteTimeout,
	}
}

// ServeHTTP handles GET /ws.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &Connection{
		id:           uuid.New().String(),
		userID:       middleware.GetUserID(ctx),
		conn:         conn,
		send:         make(chan []byte, h.sendBuffer),
		done:         make(chan struct{}),
		logger:       h.logger,
		writeTimeout: h.writeTimeout,
	}

	metrics.IncrementWSConnections()
	h.router.HandleConnect(c)

	go c.writePump(h)
	c.readPump(ctx, h)
}

// makeUpgrader builds an upgrader with origin checking. An empty or "*"
// origin list allows everything; non-browser clients send no Origin header
// and are always allowed.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 ||
		(len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return originSet[origin]
		},
	}
}
