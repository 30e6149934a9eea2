package geoip

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Maintenance runs the scheduled disk-cache expiry purge on a cron
// schedule so expired entries don't accumulate indefinitely in the
// shard files.
type Maintenance struct {
	locator *Locator
	logger  *log.Logger
	cron    *cron.Cron
}

// NewMaintenance schedules locator's disk-cache purge on schedule (a
// standard cron expression, e.g. "0 */6 * * *" for every six hours).
func NewMaintenance(locator *Locator, schedule string, logger *log.Logger) (*Maintenance, error) {
	if logger == nil {
		logger = log.Default()
	}
	c := cron.New()
	m := &Maintenance{locator: locator, logger: logger, cron: c}
	if _, err := c.AddFunc(schedule, m.runPurge); err != nil {
		return nil, err
	}
	return m, nil
}

// Start begins the cron schedule. It does not block.
func (m *Maintenance) Start() { m.cron.Start() }

// Stop waits for any in-flight purge to finish before returning.
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
}

func (m *Maintenance) runPurge() {
	n := m.locator.disk.purgeExpired(time.Now())
	if n > 0 {
		m.logger.Printf("geoip: purged %d expired cache entries", n)
	}
}
