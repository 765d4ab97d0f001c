package session

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"vellum/internal/config"
)

// reaper runs Manager.Reap on a cron schedule.
type reaper struct {
	cron  *cron.Cron
	entry cron.EntryID
}

// Start schedules idle reaping. It does nothing when reaping is disabled.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reaper != nil {
		return errors.New("session: reaper already running")
	}
	if m.opts.IdleTimeout <= 0 || m.opts.ReapSchedule == "" {
		return nil
	}

	c := cron.New(
		cron.WithParser(config.ScheduleParser),
		cron.WithLogger(cron.PrintfLogger(&m.log)),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	entry, err := c.AddFunc(m.opts.ReapSchedule, func() {
		if n := m.Reap(); n > 0 {
			m.log.Debug().Int("closed", n).Msg("Reaped idle sessions")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reap schedule %q: %w", m.opts.ReapSchedule, err)
	}

	c.Start()
	m.reaper = &reaper{cron: c, entry: entry}
	m.log.Info().
		Str("schedule", m.opts.ReapSchedule).
		Dur("idle_timeout", m.opts.IdleTimeout).
		Msg("Session reaper started")
	return nil
}

// Stop stops the reaper and waits for a running reap to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	r := m.reaper
	m.reaper = nil
	m.mu.Unlock()

	if r != nil {
		<-r.cron.Stop().Done()
	}
}
