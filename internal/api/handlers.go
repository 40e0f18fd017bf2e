package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kevsosmooth/ip-live/internal/metrics"
)

func (s *Server) getPlaylist(c *gin.Context) {
	user, ok := s.users.authenticate(c.Query("username"), c.Query("password"))
	if !ok {
		c.String(http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if user.Expired(s.now()) {
		c.String(http.StatusForbidden, "Subscription expired")
		return
	}

	content, _ := s.playlist.snapshot()

	if !s.config.Direct {
		session := s.sessions.create(user.Username, c.ClientIP())
		content = rewriteStreams(content, baseURL(c), session.Token)
	}

	c.Header("Content-Disposition", `attachment; filename="playlist.m3u8"`)
	c.Data(http.StatusOK, "application/x-mpegurl", content)
}

func (s *Server) stream(c *gin.Context) {
	if _, ok := s.sessions.get(c.Param("token")); !ok {
		metrics.StreamRedirects.WithLabelValues("invalid_session").Inc()
		c.String(http.StatusUnauthorized, "Invalid session")
		return
	}

	target, err := decodeStreamURL(c.Param("encoded"))
	if err != nil {
		metrics.StreamRedirects.WithLabelValues("invalid_url").Inc()
		c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	metrics.StreamRedirects.WithLabelValues("redirected").Inc()
	c.Redirect(http.StatusFound, target)
}

type liveCategory struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	ParentID     int    `json:"parent_id"`
}

func (s *Server) playerAPI(c *gin.Context) {
	user, ok := s.users.authenticate(c.Query("username"), c.Query("password"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"user_info": gin.H{"auth": 0}})
		return
	}

	switch c.Query("action") {
	case "get_account_info":
		now := s.now()

		status := "Active"
		if user.Expired(now) {
			status = "Expired"
		}

		expDate := ""
		if expiresAt := user.ExpiresAt(); !expiresAt.IsZero() {
			expDate = strconv.FormatInt(expiresAt.Unix(), 10)
		}

		port := "80"
		if c.Request.TLS != nil {
			port = "443"
		}

		c.JSON(http.StatusOK, gin.H{
			"user_info": gin.H{
				"username":        user.Username,
				"auth":            1,
				"status":          status,
				"exp_date":        expDate,
				"is_trial":        "0",
				"active_cons":     strconv.Itoa(s.sessions.countFor(user.Username)),
				"max_connections": strconv.Itoa(user.MaxConnections),
			},
			"server_info": gin.H{
				"url":             c.Request.Host,
				"port":            port,
				"https_port":      "443",
				"server_protocol": "http",
				"rtmp_port":       "1935",
				"timezone":        s.config.Timezone,
				"timestamp_now":   now.Unix(),
				"time_now":        now.UTC().Format(time.RFC3339),
			},
		})

	case "get_live_categories":
		categories := make([]liveCategory, 0)
		for i, name := range s.playlist.categories() {
			categories = append(categories, liveCategory{
				CategoryID:   strconv.Itoa(i + 1),
				CategoryName: name,
			})
		}
		c.JSON(http.StatusOK, categories)

	default:
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "Unknown action"})
	}
}

func (s *Server) health(c *gin.Context) {
	_, playlist := s.playlist.snapshot()

	body := gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.started).Seconds(),
		"sessions":  s.sessions.count(),
		"channels":  len(playlist.Tracks),
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}

	if sweep := s.LastSweep(); sweep != nil {
		body["last_check"] = sweep
	}

	c.JSON(http.StatusOK, body)
}
