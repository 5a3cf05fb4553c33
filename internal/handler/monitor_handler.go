package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mcqhub/mcqhub-backend/internal/config"
	"github.com/mcqhub/mcqhub-backend/internal/middleware"
	"github.com/mcqhub/mcqhub-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	ws "github.com/mcqhub/mcqhub-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live submission events to a test's author.
type MonitorHandler struct {
	rdb            *redis.Client
	catalogService *service.CatalogService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, catalogService *service.CatalogService, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		catalogService: catalogService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// MonitorSubmissions godoc
// WS /ws/v1/teacher/tests/:test_id/monitor
// Upgrades to WebSocket and relays submission events published on the
// test's Redis channel until the client disconnects.
func (h *MonitorHandler) MonitorSubmissions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID, err := strconv.ParseInt(c.Param("test_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test ID"})
		return
	}

	test, err := h.catalogService.GetByID(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "test not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if test.TeacherID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the author of this test"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("teacher_id", claims.UserID).
		Int64("test_id", testID).
		Logger()

	sub := h.rdb.Subscribe(c.Request.Context(), config.CacheKey.SubmissionChannel(testID))
	defer sub.Close()

	wsLog.Info().Msg("Monitor connected")

	// Reader goroutine: its only job is to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events := sub.Channel()
	for {
		select {
		case <-done:
			wsLog.Debug().Msg("Monitor disconnected")
			return
		case msg, ok := <-events:
			if !ok {
				ws.WriteError(conn, "submission feed closed")
				return
			}

			var event service.SubmissionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				wsLog.Warn().Err(err).Msg("Invalid submission event payload")
				continue
			}

			out := ws.SubmissionMessage{
				Event:     ws.EventSubmission,
				TestID:    event.TestID,
				StudentID: event.StudentID,
				Score:     event.Score,
				Timestamp: event.SubmittedAt.UTC().Format(time.RFC3339),
			}
			if err := ws.WriteTyped(conn, out); err != nil {
				wsLog.Warn().Err(err).Msg("Write to monitor failed")
				return
			}
		}
	}
}
