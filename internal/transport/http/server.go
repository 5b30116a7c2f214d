package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecollab-server/internal/auth"
	"github.com/vovakirdan/wirecollab-server/internal/config"
	"github.com/vovakirdan/wirecollab-server/internal/core"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NewServer builds the HTTP server: health check, WebSocket gateway and room admin API.
// The gateway sits on a plain ServeMux because it hijacks the connection; everything else
// goes through gin. verifier may be nil when tokens are never accepted.
func NewServer(hub *core.Hub, verifier auth.Verifier, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	rooms := NewRoomHandlers(hub, logger)
	api := router.Group("/api")
	if cfg.JWTRequired {
		api.Use(AuthMiddleware(verifier, logger))
	}
	api.POST("/rooms", rooms.CreateRoom)
	api.GET("/rooms", rooms.ListRooms)
	api.GET("/rooms/:id", rooms.GetRoom)
	api.GET("/rooms/:id/messages", rooms.ListMessages)
	api.GET("/rooms/:id/changes", rooms.ListChanges)
	api.DELETE("/rooms/:id", rooms.DeleteRoom)

	mux := stdhttp.NewServeMux()
	mux.Handle(wsPrefix, NewWSHandler(hub, verifier, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
