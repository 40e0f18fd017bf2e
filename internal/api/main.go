// Package api serves the playlist to IPTV players with per-user credentials and session tokens.
package api

import (
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kevsosmooth/ip-live/internal/context"
	"github.com/kevsosmooth/ip-live/internal/probe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var log = &logrus.Logger{
	Out: os.Stderr,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
	Hooks: make(logrus.LevelHooks),
	Level: logrus.InfoLevel,
}

// Config configures the playlist server.
type Config struct {
	ListenAddress string
	PlaylistPath  string
	// Direct serves the original stream URLs instead of session scoped redirects.
	Direct     bool
	SessionTTL time.Duration
	// CheckSchedule is a cron spec for liveness sweeps of the playlist, empty disables them.
	CheckSchedule string
	Timezone      string
	Users         []User
	Checker       *probe.Checker
	LogRequests   bool
}

// Server is the playlist server.
type Server struct {
	cc       *context.CContext
	config   Config
	users    userDirectory
	sessions *sessionStore
	playlist *playlistStore
	started  time.Time
	now      func() time.Time

	sweepMu   sync.RWMutex
	lastSweep *SweepStatus
	cron      *cron.Cron
}

// NewServer loads the playlist and prepares a Server.
func NewServer(cc *context.CContext, config Config) (*Server, error) {
	log.SetLevel(cc.Log.GetLevel())

	store, err := newPlaylistStore(cc.Fs, config.PlaylistPath)
	if err != nil {
		return nil, err
	}

	if config.Checker == nil {
		config.Checker = &probe.Checker{Client: cc.HTTP, Log: cc.Log}
	}
	if config.Timezone == "" {
		config.Timezone = "UTC"
	}

	s := &Server{
		cc:       cc,
		config:   config,
		users:    newUserDirectory(config.Users),
		playlist: store,
		started:  time.Now(),
		now:      time.Now,
	}
	s.sessions = newSessionStore(config.SessionTTL, func() time.Time { return s.now() })

	if len(s.users) == 0 {
		log.Warnln("no users configured, every playlist request will be rejected")
	}

	return s, nil
}

// Router builds the gin engine with every route of the server.
func (s *Server) Router() *gin.Engine {
	if viper.GetString("log.level") != logrus.DebugLevel.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := newGin(s.config.LogRequests)

	router.GET("/get.php", s.getPlaylist)
	router.GET("/stream/:token/:encoded", s.stream)
	router.GET("/player_api.php", s.playerAPI)
	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// ServeAPI starts the liveness sweeps and the playlist watcher, then serves until the listener fails.
func ServeAPI(s *Server) error {
	done := make(chan struct{})
	defer close(done)

	if err := s.playlist.watch(done); err != nil {
		log.WithError(err).Warnln("playlist changes will not be picked up until restart")
	}

	if s.config.CheckSchedule != "" {
		if err := s.startSweeps(); err != nil {
			return err
		}
		defer s.cron.Stop()
	}

	router := s.Router()

	log.Infof("iplive is live and on the air!")
	log.Infof("Broadcasting from http://%s/", s.config.ListenAddress)
	log.Infof("Playlist URL: http://%s/get.php?username=USER&password=PASS&type=m3u_plus&output=ts", s.config.ListenAddress)

	srv := &http.Server{
		Addr:    s.config.ListenAddress,
		Handler: router,
	}

	return srv.ListenAndServe()
}
