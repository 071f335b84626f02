package session

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulePurge registers a cron job that drops idle sessions and starts the
// scheduler. Stop the returned cron on shutdown.
func (s *Store) SchedulePurge(schedule string, maxAge time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n := s.Purge(maxAge); n > 0 {
			log.Printf("Purged %d idle sessions", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
