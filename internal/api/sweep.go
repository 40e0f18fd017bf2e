package api

import (
	"time"

	"github.com/kevsosmooth/ip-live/internal/probe"
	"github.com/kevsosmooth/ip-live/internal/utils"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// SweepStatus is the outcome of the last liveness sweep over the served playlist.
type SweepStatus struct {
	At          string  `json:"at"`
	Total       int     `json:"total"`
	Working     int     `json:"working"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

func (s *Server) startSweeps() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.config.CheckSchedule, s.Sweep); err != nil {
		return errors.Wrapf(err, "invalid check schedule %q", s.config.CheckSchedule)
	}
	s.cron.Start()
	log.Infof("Liveness sweeps scheduled (%s)", s.config.CheckSchedule)
	return nil
}

// Sweep probes every stream of the served playlist once and records the summary.
func (s *Server) Sweep() {
	_, playlist := s.playlist.snapshot()

	urls := make([]string, 0, len(playlist.Tracks))
	for _, track := range playlist.Tracks {
		urls = append(urls, track.URL())
	}

	log.Infof("Liveness sweep of %d streams is beginning", len(urls))

	results := s.config.Checker.Check(s.cc.Ctx, urls)
	for _, failed := range probe.Failed(results) {
		log.Debugf("Stream %s failed: %s", utils.SafePath(failed.URL), failed.Status())
	}

	summary := probe.Summarize(results)

	status := &SweepStatus{
		At:          s.now().UTC().Format(time.RFC3339),
		Total:       summary.Total,
		Working:     summary.Working,
		Failed:      summary.Failed,
		SuccessRate: summary.SuccessRate,
	}

	s.sweepMu.Lock()
	s.lastSweep = status
	s.sweepMu.Unlock()

	log.Infof("Liveness sweep complete: %d/%d streams working", summary.Working, summary.Total)
}

// LastSweep returns the status of the most recent sweep, nil before the first one.
func (s *Server) LastSweep() *SweepStatus {
	s.sweepMu.RLock()
	defer s.sweepMu.RUnlock()
	return s.lastSweep
}
