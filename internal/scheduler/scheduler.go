// Package scheduler is the in-process daily trigger facility. It keeps one
// slot set per operator and fires the publisher when a slot's wall-clock
// time comes around.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"smmpost-bot/internal/schedule"

	"github.com/getsentry/sentry-go"
)

// FireFunc is invoked once per due slot with the operator id.
type FireFunc func(ctx context.Context, userID int64)

// Scheduler owns the slot table and the wakeup loop. Install fully
// replaces an operator's previous triggers, so reconfiguration can never
// leave duplicates or orphans behind.
type Scheduler struct {
	mu    sync.Mutex
	slots map[int64][]schedule.Slot

	fire FireFunc
	loc  *time.Location
}

func New(fire FireFunc, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		slots: make(map[int64][]schedule.Slot),
		fire:  fire,
		loc:   loc,
	}
}

// Install replaces the operator's triggers with the slot set for
// postsPerDay. A count of zero removes all triggers for the operator.
func (s *Scheduler) Install(userID int64, postsPerDay int) {
	slots := schedule.ForDailyCount(postsPerDay)

	s.mu.Lock()
	if len(slots) == 0 {
		delete(s.slots, userID)
	} else {
		s.slots[userID] = slots
	}
	s.mu.Unlock()

	log.Printf("[Scheduler Op:%d] Installed %d daily slot(s)", userID, len(slots))
}

// Remove drops every trigger for the operator.
func (s *Scheduler) Remove(userID int64) {
	s.mu.Lock()
	delete(s.slots, userID)
	s.mu.Unlock()
}

// Slots returns a copy of the operator's installed slots.
func (s *Scheduler) Slots(userID int64) []schedule.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schedule.Slot, len(s.slots[userID]))
	copy(out, s.slots[userID])
	return out
}

// Run wakes on every minute boundary and fires due operators until the
// context is canceled. Each firing runs in its own goroutine; firings for
// distinct operators share no state beyond the storage layer.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("Scheduler started (timezone %s)", s.loc)
	for {
		now := time.Now().In(s.loc)
		next := now.Truncate(time.Minute).Add(time.Minute)

		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped")
			return
		case <-time.After(time.Until(next)):
		}

		tick := time.Now().In(s.loc)
		for _, userID := range s.due(tick) {
			userID := userID
			go func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("[Scheduler Op:%d] PANIC recovered in firing: %v", userID, r)
						sentry.CurrentHub().Recover(r)
					}
				}()
				s.fire(ctx, userID)
			}()
		}
	}
}

// due returns the operators with a slot at t's wall-clock HH:MM.
func (s *Scheduler) due(t time.Time) []int64 {
	hour, minute := t.Hour(), t.Minute()

	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for userID, slots := range s.slots {
		for _, slot := range slots {
			if slot.Matches(hour, minute) {
				ids = append(ids, userID)
				break
			}
		}
	}
	return ids
}
