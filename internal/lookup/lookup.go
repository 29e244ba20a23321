// Package lookup runs debounced availability checks where only the most
// recently requested key may update state.
package lookup

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/capitalize-ai/event-assistant/internal/textnorm"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

// Tracker hands out monotonically increasing tokens per scope and remembers
// the latest one issued.
type Tracker struct {
	mu      sync.Mutex
	next    uint64
	current map[string]uint64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{current: make(map[string]uint64)}
}

// Issue returns a new token and makes it current for scope.
func (t *Tracker) Issue(scope string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.current[scope] = t.next
	return t.next
}

// IsCurrent reports whether token is still the latest for scope.
func (t *Tracker) IsCurrent(scope string, token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current[scope] == token
}

// NameLookup answers whether a user already has an event with this name.
type NameLookup interface {
	NameTaken(ctx context.Context, userID, name string) (bool, error)
}

// Result is the outcome of one availability check. Stale results were
// overtaken by a newer request and were not applied.
type Result struct {
	Name      string
	Available bool
	Stale     bool
	Token     uint64
}

// Checker checks event-name availability per user.
type Checker struct {
	names   NameLookup
	tracker *Tracker
	group   singleflight.Group
	log     *logger.Logger

	mu     sync.Mutex
	latest map[string]Result
}

// NewChecker creates a checker backed by names.
func NewChecker(names NameLookup, log *logger.Logger) *Checker {
	return &Checker{
		names:   names,
		tracker: NewTracker(),
		log:     logger.OrNop(log),
		latest:  make(map[string]Result),
	}
}

// Check looks name up for userID. Identical in-flight lookups share one call.
// The result is recorded as the user's current state only if no newer check
// was issued meanwhile.
func (c *Checker) Check(ctx context.Context, userID, name string) (Result, error) {
	name = strings.TrimSpace(name)
	token := c.tracker.Issue(userID)

	key := userID + "\x00" + textnorm.Clean(name)
	v, err, _ := c.group.Do(key, func() (any, error) {
		taken, err := c.names.NameTaken(ctx, userID, name)
		return !taken, err
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Name: name, Available: v.(bool), Token: token}
	if !c.tracker.IsCurrent(userID, token) {
		res.Stale = true
		c.log.Debug("discarding stale availability result",
			zap.String("user_id", userID), zap.Uint64("token", token))
		return res, nil
	}

	c.mu.Lock()
	// A newer check may have finished between IsCurrent and here.
	if prev, ok := c.latest[userID]; !ok || prev.Token < token {
		c.latest[userID] = res
	}
	c.mu.Unlock()
	return res, nil
}

// Current returns the last applied result for userID.
func (c *Checker) Current(userID string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.latest[userID]
	return r, ok
}
