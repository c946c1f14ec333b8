// Package queue implements a named, deduplicating job queue persisted as a
// single JSON array in a key-value store, with an advisory TTL lock that
// keeps at most one Step running per queue name.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/creations-api/internal/kvstore"
	"github.com/rs/zerolog"
)

// DefaultLockTimeout is the lock TTL used when no option overrides it
const DefaultLockTimeout = 300 * time.Second

var (
	// ErrNameRequired is returned by New when no queue name is given
	ErrNameRequired = errors.New("queue: name is required")
	// ErrLocked is returned by Step while another step holds the lock
	ErrLocked = errors.New("queue: locked")
	// ErrEmpty is returned by Step when there is nothing to process
	ErrEmpty = errors.New("queue: empty")
)

// Item is a queued value in its persisted JSON form
type Item = json.RawMessage

// ProcessFunc handles one item taken off the head of the queue
type ProcessFunc func(ctx context.Context, item Item) error

// Queue is a persisted FIFO list with an advisory lock.
//
// Reads and writes are read-modify-write on the whole blob with no
// concurrency token; two concurrent pushes can lose one write.
type Queue struct {
	store       kvstore.Store
	name        string
	lockKey     string
	lockTimeout time.Duration
	autoUnlock  bool
	log         zerolog.Logger
}

// Option configures a Queue
type Option func(*Queue)

// WithLockTimeout sets the TTL of the lock taken by Lock and Step
func WithLockTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.lockTimeout = d
		}
	}
}

// WithAutoUnlock controls whether Step releases the lock after processing.
// When disabled the lock stays until its timeout, spacing steps apart.
func WithAutoUnlock(enabled bool) Option {
	return func(q *Queue) { q.autoUnlock = enabled }
}

// WithLogger sets the logger used for recoverable problems
func WithLogger(log zerolog.Logger) Option {
	return func(q *Queue) { q.log = log }
}

// New creates a queue persisted under name in store
func New(store kvstore.Store, name string, opts ...Option) (*Queue, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if store == nil {
		return nil, fmt.Errorf("queue %s: store is required", name)
	}

	q := &Queue{
		store:       store,
		name:        name,
		lockKey:     name + "_lock",
		lockTimeout: DefaultLockTimeout,
		autoUnlock:  true,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.log = q.log.With().Str("queue", name).Logger()
	return q, nil
}

// Name returns the queue name
func (q *Queue) Name() string {
	return q.name
}

// LockTimeout returns the default lock TTL
func (q *Queue) LockTimeout() time.Duration {
	return q.lockTimeout
}

// Items returns the persisted contents. A corrupt blob reads as empty.
func (q *Queue) Items(ctx context.Context) ([]Item, error) {
	raw, ok, err := q.store.Get(ctx, q.name)
	if err != nil {
		return nil, fmt.Errorf("load queue %s: %w", q.name, err)
	}
	if !ok || raw == "" {
		return []Item{}, nil
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		q.log.Warn().Err(err).Msg("Discarding malformed queue contents")
		return []Item{}, nil
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Len returns the number of queued items
func (q *Queue) Len(ctx context.Context) (int, error) {
	items, err := q.Items(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Push appends item to the tail. Without force an item whose identity is
// already queued is skipped and pushed is false.
func (q *Queue) Push(ctx context.Context, item any, force bool) ([]Item, bool, error) {
	items, added, err := q.PushMany(ctx, []any{item}, force)
	return items, added > 0, err
}

// PushMany appends items in order and persists once. It returns the new
// contents and how many items were added.
func (q *Queue) PushMany(ctx context.Context, items []any, force bool) ([]Item, int, error) {
	encoded := make([]Item, 0, len(items))
	for _, item := range items {
		raw, err := encode(item)
		if err != nil {
			return nil, 0, fmt.Errorf("encode queue item: %w", err)
		}
		encoded = append(encoded, raw)
	}

	current, err := q.Items(ctx)
	if err != nil {
		return nil, 0, err
	}

	added := 0
	for _, raw := range encoded {
		if !force && indexOf(current, raw) >= 0 {
			continue
		}
		current = append(current, raw)
		added++
	}
	if added == 0 {
		return current, 0, nil
	}

	if err := q.save(ctx, current); err != nil {
		return nil, 0, err
	}
	return current, added, nil
}

// Remove deletes the first item with the same identity as item.
// It reports false when no such item is queued.
func (q *Queue) Remove(ctx context.Context, item any) (bool, error) {
	raw, err := encode(item)
	if err != nil {
		return false, fmt.Errorf("encode queue item: %w", err)
	}

	current, err := q.Items(ctx)
	if err != nil {
		return false, err
	}

	i := indexOf(current, raw)
	if i < 0 {
		return false, nil
	}
	current = append(current[:i], current[i+1:]...)
	return true, q.save(ctx, current)
}

// Shift removes and returns the head item. ok is false when the queue is empty.
func (q *Queue) Shift(ctx context.Context) (Item, bool, error) {
	current, err := q.Items(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(current) == 0 {
		return nil, false, nil
	}

	head := current[0]
	if err := q.save(ctx, current[1:]); err != nil {
		return nil, false, err
	}
	return head, true, nil
}

// Clear drops every queued item
func (q *Queue) Clear(ctx context.Context) error {
	return q.save(ctx, []Item{})
}

// Step runs one lock-guarded dequeue-and-process cycle.
//
// It returns ErrLocked while another step holds the lock and ErrEmpty when
// nothing is queued; the lock is not taken in either case. Otherwise the
// head item is shifted and handed to process, whose error is returned.
func (q *Queue) Step(ctx context.Context, process ProcessFunc) error {
	locked, err := q.IsLocked(ctx)
	if err != nil {
		return err
	}
	if locked {
		return ErrLocked
	}

	n, err := q.Len(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEmpty
	}

	if err := q.Lock(ctx, 0); err != nil {
		return err
	}
	if q.autoUnlock {
		defer func() {
			if err := q.Unlock(context.WithoutCancel(ctx)); err != nil {
				q.log.Error().Err(err).Msg("Failed to release queue lock")
			}
		}()
	}

	item, ok, err := q.Shift(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEmpty
	}

	return process(ctx, item)
}

// Lock takes the advisory lock for timeout, or the queue default when
// timeout is zero. It does not check whether the lock is already held.
func (q *Queue) Lock(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = q.lockTimeout
	}
	if err := q.store.Set(ctx, q.lockKey, "1", timeout); err != nil {
		return fmt.Errorf("lock queue %s: %w", q.name, err)
	}
	return nil
}

// Unlock releases the lock
func (q *Queue) Unlock(ctx context.Context) error {
	if err := q.store.Delete(ctx, q.lockKey); err != nil {
		return fmt.Errorf("unlock queue %s: %w", q.name, err)
	}
	return nil
}

// IsLocked reports whether the lock is currently held
func (q *Queue) IsLocked(ctx context.Context) (bool, error) {
	_, ok, err := q.store.Get(ctx, q.lockKey)
	if err != nil {
		return false, fmt.Errorf("read lock for queue %s: %w", q.name, err)
	}
	return ok, nil
}

func (q *Queue) save(ctx context.Context, items []Item) error {
	blob, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode queue %s: %w", q.name, err)
	}
	if err := q.store.Set(ctx, q.name, string(blob), 0); err != nil {
		return fmt.Errorf("save queue %s: %w", q.name, err)
	}
	return nil
}

func encode(item any) (Item, error) {
	switch v := item.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid JSON item")
		}
		return v, nil
	case []byte:
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid JSON item")
		}
		return Item(v), nil
	default:
		return json.Marshal(item)
	}
}
