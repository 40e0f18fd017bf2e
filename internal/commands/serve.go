package commands

import (
	"github.com/kevsosmooth/ip-live/internal/api"
	"github.com/kevsosmooth/ip-live/internal/context"
	"github.com/kevsosmooth/ip-live/internal/utils"
)

// Serve runs the playlist server until its listener fails.
func Serve(cc *context.CContext, config api.Config) error {
	log.Infof("Serving %s to %d users", utils.SafePath(config.PlaylistPath), len(config.Users))

	server, err := api.NewServer(cc, config)
	if err != nil {
		return err
	}

	return api.ServeAPI(server)
}
