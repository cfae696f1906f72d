package service

import (
	"context"
	"time"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/internal/util"
	"tradepilot/backend/pkg/logger"
)

// SessionMonitor periodically probes the broker session so a lost session is
// noticed even while no bot is ticking
type SessionMonitor struct {
	gateway   MarketGateway
	scheduler *BotScheduler
	interval  time.Duration
	stop      chan struct{}
	log       *logger.Logger
}

func NewSessionMonitor(gateway MarketGateway, scheduler *BotScheduler, interval time.Duration) *SessionMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionMonitor{
		gateway:   gateway,
		scheduler: scheduler,
		interval:  interval,
		stop:      make(chan struct{}),
		log:       logger.GetLogger(),
	}
}

// Start runs the probe loop until Stop is called
func (m *SessionMonitor) Start() {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.check()
			}
		}
	}()
}

func (m *SessionMonitor) Stop() {
	close(m.stop)
}

// check probes the account endpoint. Auth rejections pause all bots;
// transient failures are ignored. A successful probe after a lost session
// re-enables starts without resuming any bot.
func (m *SessionMonitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := m.gateway.GetAccount(ctx, model.ModePaper)
	if err != nil {
		if util.HasCode(err, util.ErrCodeSessionLost) {
			m.scheduler.HandleSessionLost(err.Error())
		} else {
			m.log.Debugf("Session probe failed transiently: %v", err)
		}
		return
	}

	if !m.scheduler.SessionActive() {
		m.scheduler.HandleSessionRestored()
	}
}
