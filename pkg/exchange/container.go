package exchange

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ErrFeedNotFound is returned by Get for a name nothing was registered under.
var ErrFeedNotFound = errors.New("feed not found")

// Container holds the feeds a process runs, by venue name. Safe for
// concurrent use.
type Container struct {
	mu    sync.RWMutex
	feeds map[string]Feed
}

func NewContainer() *Container {
	return &Container{feeds: map[string]Feed{}}
}

// Register replaces any feed already under name. The old feed is not closed.
func (c *Container) Register(name string, f Feed) {
	c.mu.Lock()
	c.feeds[name] = f
	c.mu.Unlock()
}

func (c *Container) Get(name string) (Feed, error) {
	c.mu.RLock()
	f, ok := c.feeds[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFeedNotFound, name)
	}
	return f, nil
}

func (c *Container) Exists(name string) bool {
	_, err := c.Get(name)
	return err == nil
}

// Names is sorted.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.feeds))
}

func (c *Container) Unregister(name string) {
	c.mu.Lock()
	delete(c.feeds, name)
	c.mu.Unlock()
}

func (c *Container) Clear() {
	c.mu.Lock()
	clear(c.feeds)
	c.mu.Unlock()
}

// CloseAll closes every feed, in name order, and keeps them registered.
func (c *Container) CloseAll() error {
	var errs []error
	for _, name := range c.Names() {
		f, err := c.Get(name)
		if err != nil {
			continue
		}
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
