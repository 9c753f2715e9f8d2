// Package catalog implements the catalog view model: an authoritative copy of
// the product list, a displayed list derived from it or from the latest
// search, a debounced search-as-you-type query, and deletes, all kept
// consistent with the product store.
//
// Store I/O runs on a bounded worker pool. Results are posted to a
// Dispatcher (the UI thread) and only functions running there mutate the
// lists. A query generation counter decides which search result may be
// applied: the last query issued wins, not the last search to finish.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/shoplist/pkg/types"
)

// Defaults for Config.
const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultWorkers  = 4
)

// Notice titles.
const (
	TitleLoadFailed   = "Could not load products"
	TitleSearchFailed = "Search failed"
	TitleDeleteFailed = "Could not delete product"
	TitleConfirm      = "Are you sure?"
)

// Store is the part of the product store the catalog needs.
// types.ProductTable satisfies it.
type Store interface {
	ListAll(ctx context.Context) ([]types.Product, error)
	Search(ctx context.Context, substring string) ([]types.Product, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// Dispatcher runs functions on the UI thread, one at a time, in order.
type Dispatcher interface {
	Post(fn func())
}

// Config tunes a Catalog. Zero values select the defaults.
type Config struct {
	Debounce time.Duration      // Quiet period before a query is searched.
	Workers  int                // Maximum concurrent store calls.
	Notifier Notifier           // Receives user-visible failure notices.
	Logger   logrus.FieldLogger // Defaults to the logrus standard logger.
}

// Catalog is the view model over a product store.
type Catalog struct {
	store    Store
	ui       Dispatcher
	notifier Notifier
	log      logrus.FieldLogger
	debounce time.Duration

	ctx  context.Context
	stop context.CancelFunc

	workMu   sync.RWMutex
	closed   bool
	workers  *pool.Pool
	inflight sync.WaitGroup
	loads    singleflight.Group

	// generation identifies the most recently issued query.
	generation atomic.Uint64

	pendingMu     sync.Mutex
	timer         *time.Timer
	pendingFire   func()
	cancelPending context.CancelFunc

	mu            sync.RWMutex
	authoritative []types.Product
	displayed     []types.Product
	query         string
	subs          []subscription
	nextSub       int

	// deleted holds every id removed through this catalog. The store never
	// reuses ids, so reads that began before a delete are filtered by it.
	deleted map[int64]struct{}
}

type subscription struct {
	id int
	fn func([]types.Product)
}

// New creates a Catalog over store that publishes on ui.
func New(store Store, ui Dispatcher, cfg Config) *Catalog {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = logNotifier{log: cfg.Logger}
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Catalog{
		store:         store,
		ui:            ui,
		notifier:      cfg.Notifier,
		log:           cfg.Logger,
		debounce:      cfg.Debounce,
		ctx:           ctx,
		stop:          stop,
		workers:       pool.New().WithMaxGoroutines(cfg.Workers),
		authoritative: []types.Product{},
		displayed:     []types.Product{},
		deleted:       map[int64]struct{}{},
	}
}

// NormalizeQuery trims and lowercases a raw query. An empty result means
// "no query".
func NormalizeQuery(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// LoadAll fetches the full product list in the background. On success the
// authoritative list is replaced and, when no query is active, so is the
// displayed list. Concurrent loads share one store call.
func (c *Catalog) LoadAll() {
	c.submit(func() {
		log := c.opLogger("load")
		v, err, shared := c.loads.Do("all", func() (any, error) {
			return c.store.ListAll(c.ctx)
		})
		if err != nil {
			if c.cancelled(c.ctx, err) {
				log.Debug("load cancelled")
				return
			}
			log.WithError(err).Warn("loading products failed")
			c.notify(TitleLoadFailed, err)
			return
		}
		products := v.([]types.Product)
		log.WithFields(logrus.Fields{"count": len(products), "shared": shared}).Debug("products loaded")
		c.ui.Post(func() { c.applyLoad(products) })
	})
}

// OnQueryChanged is called on every keystroke. It cancels the previous
// pending query, waits for the debounce period, then either restores the
// full list (blank query) or searches the store for the normalized query.
func (c *Catalog) OnQueryChanged(text string) {
	gen := c.generation.Add(1)

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	// The superseded request is cancelled, not just ignored.
	if c.timer != nil && c.timer.Stop() {
		c.inflight.Done()
	}
	if c.cancelPending != nil {
		c.cancelPending()
	}

	c.workMu.RLock()
	closed := c.closed
	c.workMu.RUnlock()
	if closed {
		c.timer, c.pendingFire, c.cancelPending = nil, nil, nil
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	run := func() { c.fire(ctx, gen, text) }
	c.cancelPending = cancel
	c.pendingFire = run
	// A scheduled query counts as in flight until it has fired and handed
	// its search to the pool, so Flush can wait on it.
	c.inflight.Add(1)
	c.timer = time.AfterFunc(c.debounce, func() {
		defer c.inflight.Done()
		run()
	})
}

// Flush runs a query that is still waiting out its quiet period right away
// and blocks until every submitted store call has returned. Results are
// still delivered through the dispatcher.
func (c *Catalog) Flush() {
	c.pendingMu.Lock()
	var run func()
	if c.timer != nil && c.timer.Stop() {
		run = c.pendingFire
	}
	c.timer, c.pendingFire = nil, nil
	c.pendingMu.Unlock()

	if run != nil {
		run()
		c.inflight.Done()
	}
	c.inflight.Wait()
}

// DeleteProduct deletes a product in the background and, on success,
// removes it by ID from both lists.
func (c *Catalog) DeleteProduct(id int64) {
	c.submit(func() {
		log := c.opLogger("delete").WithField("id", id)
		n, err := c.store.Delete(c.ctx, id)
		if err != nil {
			if c.cancelled(c.ctx, err) {
				log.Debug("delete cancelled")
				return
			}
			log.WithError(err).Warn("deleting product failed")
			c.notify(TitleDeleteFailed, err)
			return
		}
		log.WithField("affected", n).Debug("product deleted")
		c.ui.Post(func() { c.removeByID(id) })
	})
}

// RequestDelete asks confirm before deleting p and reports whether the
// delete was dispatched.
func (c *Catalog) RequestDelete(p types.Product, confirm Confirmer) bool {
	if confirm == nil || !confirm.Confirm(TitleConfirm, fmt.Sprintf("Remove %s?", p.Description)) {
		return false
	}
	c.DeleteProduct(p.ID)
	return true
}

// TotalOfDisplayed sums Total over the displayed list only, so the total
// follows the active filter.
func (c *Catalog) TotalOfDisplayed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.SumTotals(c.displayed)
}

// Displayed returns a copy of the displayed list.
func (c *Catalog) Displayed() []types.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.CloneProducts(c.displayed)
}

// Authoritative returns a copy of the last full snapshot loaded from the
// store.
func (c *Catalog) Authoritative() []types.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.CloneProducts(c.authoritative)
}

// Query returns the normalized query whose results are displayed, or ""
// when the full list is displayed.
func (c *Catalog) Query() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.query
}

// Subscribe registers fn to receive a copy of the displayed list each time it
// changes. fn runs on the Dispatcher. The returned function unsubscribes.
func (c *Catalog) Subscribe(fn func([]types.Product)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs = append(c.subs, subscription{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Close cancels any pending query and in-flight store call and waits for the
// workers to finish. Later calls to any operation are no-ops.
func (c *Catalog) Close() {
	c.workMu.Lock()
	if c.closed {
		c.workMu.Unlock()
		return
	}
	c.closed = true
	c.workMu.Unlock()

	c.stop()

	c.pendingMu.Lock()
	if c.timer != nil && c.timer.Stop() {
		c.inflight.Done()
	}
	c.timer = nil
	c.pendingFire, c.cancelPending = nil, nil
	c.pendingMu.Unlock()

	c.workers.Wait()
}

// fire runs when a query's quiet period elapses.
func (c *Catalog) fire(ctx context.Context, gen uint64, text string) {
	if ctx.Err() != nil || !c.current(gen) {
		return
	}

	query := NormalizeQuery(text)
	if query == "" {
		c.ui.Post(func() {
			if c.current(gen) {
				c.showAll()
			}
		})
		return
	}

	c.submit(func() { c.search(ctx, gen, query) })
}

// search runs one store search and posts its result, which the UI thread
// applies only if no newer query was issued meanwhile.
func (c *Catalog) search(ctx context.Context, gen uint64, query string) {
	log := c.opLogger("search").WithFields(logrus.Fields{"query": query, "generation": gen})
	if ctx.Err() != nil {
		log.Debug("search cancelled before start")
		return
	}

	products, err := c.store.Search(ctx, query)
	if err != nil {
		if c.cancelled(ctx, err) {
			log.Debug("search cancelled")
			return
		}
		log.WithError(err).Warn("search failed")
		c.ui.Post(func() {
			if c.current(gen) {
				c.notifier.Notify(TitleSearchFailed, err.Error())
			}
		})
		return
	}

	c.ui.Post(func() {
		if !c.current(gen) {
			log.Debug("discarding stale search result")
			return
		}
		c.applySearch(query, products)
	})
}

// submit hands task to the worker pool. It reports false once the catalog
// is closed.
func (c *Catalog) submit(task func()) bool {
	c.workMu.RLock()
	defer c.workMu.RUnlock()
	if c.closed {
		return false
	}
	c.inflight.Add(1)
	c.workers.Go(func() {
		defer c.inflight.Done()
		task()
	})
	return true
}

func (c *Catalog) current(gen uint64) bool {
	return c.generation.Load() == gen
}

// cancelled reports whether err is the result of cancellation rather than a
// store fault. Cancellation is internal control flow and never shown.
func (c *Catalog) cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, types.ErrCancelled) ||
		errors.Is(err, context.Canceled)
}

// notify shows a failure notice on the UI thread.
func (c *Catalog) notify(title string, err error) {
	msg := err.Error()
	c.ui.Post(func() { c.notifier.Notify(title, msg) })
}

func (c *Catalog) opLogger(op string) logrus.FieldLogger {
	return c.log.WithFields(logrus.Fields{
		"op":    op,
		"op_id": uuid.NewString(),
	})
}

// The apply functions below run on the UI thread. Each builds the new lists
// first and swaps them in under the lock, so readers never see a partial
// update.

func (c *Catalog) applyLoad(products []types.Product) {
	c.mu.Lock()
	c.authoritative = c.withoutDeleted(products)
	changed := c.query == ""
	if changed {
		c.displayed = types.CloneProducts(c.authoritative)
	}
	c.mu.Unlock()

	if changed {
		c.publish()
	}
}

func (c *Catalog) applySearch(query string, products []types.Product) {
	c.mu.Lock()
	c.query = query
	c.displayed = c.withoutDeleted(products)
	c.mu.Unlock()

	c.publish()
}

func (c *Catalog) showAll() {
	c.mu.Lock()
	c.query = ""
	c.displayed = types.CloneProducts(c.authoritative)
	c.mu.Unlock()

	c.publish()
}

func (c *Catalog) removeByID(id int64) {
	c.mu.Lock()
	c.deleted[id] = struct{}{}
	c.authoritative = withoutID(c.authoritative, id)
	before := len(c.displayed)
	c.displayed = withoutID(c.displayed, id)
	changed := len(c.displayed) != before
	c.mu.Unlock()

	if changed {
		c.publish()
	}
}

// withoutDeleted copies products, dropping ids already deleted. Callers hold
// c.mu.
func (c *Catalog) withoutDeleted(products []types.Product) []types.Product {
	out := make([]types.Product, 0, len(products))
	for _, p := range products {
		if _, gone := c.deleted[p.ID]; !gone {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) publish() {
	c.mu.RLock()
	snapshot := types.CloneProducts(c.displayed)
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()

	for _, s := range subs {
		s.fn(types.CloneProducts(snapshot))
	}
}

// withoutID returns a new slice holding every product except those with id.
func withoutID(products []types.Product, id int64) []types.Product {
	out := make([]types.Product, 0, len(products))
	for _, p := range products {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
