package pages

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/eringen/wikiengine/storage"
)

const defaultSitemapConcurrency = 8

// State is the queue's activity as reported to observers.
type State int

const (
	StateIdle State = iota
	StateBusy
)

func (s State) String() string {
	if s == StateBusy {
		return "busy"
	}
	return "idle"
}

type op int

const (
	opGet op = iota
	opPut
	opDelete
	opRecycle
	opSlugs
)

func (o op) String() string {
	switch o {
	case opGet:
		return "get"
	case opPut:
		return "put"
	case opDelete:
		return "delete"
	case opRecycle:
		return "recycle"
	case opSlugs:
		return "slugs"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

type request struct {
	op   op
	key  string
	page *Page
	done chan result
}

type result struct {
	page  *Page
	slugs []string
	err   error
}

// Handler serializes every storage action through a FIFO queue, so at most
// one action touches the backend at a time and actions apply in the order
// they were submitted.
type Handler struct {
	backend            storage.Backend
	resolver           *Resolver
	log                *logrus.Entry
	summarize          func(*Page) string
	sitemapConcurrency int

	mu           sync.Mutex
	queue        []*request
	busy         bool
	observers    map[int]func(State)
	nextObserver int
}

// Option configures a Handler.
type Option func(*Handler)

// WithResolver replaces the resolver built from the backend alone.
func WithResolver(r *Resolver) Option {
	return func(h *Handler) {
		h.resolver = r
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(h *Handler) {
		h.log = l
	}
}

// WithSummarizer sets the function that produces sitemap synopses.
func WithSummarizer(fn func(*Page) string) Option {
	return func(h *Handler) {
		h.summarize = fn
	}
}

// WithSitemapConcurrency bounds how many sitemap reads are queued at once.
func WithSitemapConcurrency(n int) Option {
	return func(h *Handler) {
		h.sitemapConcurrency = n
	}
}

func NewHandler(backend storage.Backend, opts ...Option) *Handler {
	h := &Handler{
		backend:            backend,
		log:                logrus.NewEntry(logrus.New()),
		summarize:          func(*Page) string { return "" },
		sitemapConcurrency: defaultSitemapConcurrency,
		observers:          map[int]func(State){},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("component", "pages")
	if h.resolver == nil {
		h.resolver = NewResolver(backend, WithResolverLogger(h.log))
	}
	if h.sitemapConcurrency < 1 {
		h.sitemapConcurrency = defaultSitemapConcurrency
	}
	return h
}

// Get returns the page under key, falling back to default and plugin
// content for keys not in the primary store.
func (h *Handler) Get(ctx context.Context, key string) (*Page, error) {
	res := h.do(ctx, &request{op: opGet, key: key})
	return res.page, res.err
}

// Put stores page under key, replacing any existing document.
func (h *Handler) Put(ctx context.Context, key string, page *Page) error {
	if page == nil {
		return errors.New("pages: put of nil page")
	}
	return h.do(ctx, &request{op: opPut, key: key, page: page}).err
}

// Delete moves a primary page into the recycle root, or permanently
// removes a key that is already recycled.
func (h *Handler) Delete(ctx context.Context, key string) error {
	return h.do(ctx, &request{op: opDelete, key: key}).err
}

// Recycle copies a primary page into the recycle root, keeping the
// original in place.
func (h *Handler) Recycle(ctx context.Context, key string) error {
	return h.do(ctx, &request{op: opRecycle, key: key}).err
}

// Slugs lists the keys in the primary store.
func (h *Handler) Slugs(ctx context.Context) ([]string, error) {
	res := h.do(ctx, &request{op: opSlugs})
	return res.slugs, res.err
}

// Busy reports whether an action is running or waiting.
func (h *Handler) Busy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.busy
}

// Depth reports how many actions are waiting behind the running one.
func (h *Handler) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Subscribe registers fn to be told about every busy and idle transition.
// fn runs with the handler locked and must not call back into it.
func (h *Handler) Subscribe(fn func(State)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextObserver
	h.nextObserver++
	h.observers[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.observers, id)
	}
}

func (h *Handler) Close() error {
	return h.backend.Close()
}

// do queues req and waits for its result. A caller that gives up still
// leaves req queued; it runs and its result is discarded.
func (h *Handler) do(ctx context.Context, req *request) result {
	if err := ctx.Err(); err != nil {
		return result{err: err}
	}
	req.done = make(chan result, 1)
	h.enqueue(req)
	select {
	case res := <-req.done:
		return res
	case <-ctx.Done():
		return result{err: ctx.Err()}
	}
}

func (h *Handler) enqueue(req *request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, req)
	if h.busy {
		return
	}
	h.busy = true
	h.emitLocked(StateBusy)
	go h.drain()
}

func (h *Handler) drain() {
	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.busy = false
			h.emitLocked(StateIdle)
			h.mu.Unlock()
			return
		}
		req := h.queue[0]
		h.queue[0] = nil
		h.queue = h.queue[1:]
		h.mu.Unlock()

		req.done <- h.dispatch(req)
	}
}

func (h *Handler) emitLocked(s State) {
	for _, fn := range h.observers {
		fn(s)
	}
}

func (h *Handler) dispatch(req *request) result {
	var res result
	switch req.op {
	case opGet:
		res.page, res.err = h.resolver.Resolve(req.key)
	case opPut:
		res.err = h.put(req.key, req.page)
	case opDelete:
		res.err = h.delete(req.key)
	case opRecycle:
		res.err = h.recycle(req.key)
	case opSlugs:
		res.slugs, res.err = h.slugs()
	default:
		res.err = ErrUnknownAction
	}
	if res.err != nil && StatusCode(res.err) >= 500 {
		h.log.WithFields(logrus.Fields{"op": req.op.String(), "key": req.key}).
			WithError(res.err).Error("storage action failed")
	}
	return res
}

func (h *Handler) put(key string, page *Page) error {
	data, err := encodeForStorage(page)
	if err != nil {
		return fmt.Errorf("pages: encode %s: %w", key, err)
	}
	if err := h.backend.Write(key, data); err != nil {
		return fmt.Errorf("pages: write %s: %w", key, err)
	}
	return nil
}

func (h *Handler) delete(key string) error {
	if !h.backend.Exists(key) {
		return ErrNotExists
	}
	if storage.IsRecycled(key) {
		if err := h.backend.Remove(key); err != nil {
			return fmt.Errorf("pages: remove %s: %w", key, err)
		}
		return nil
	}
	if err := h.backend.Rename(key, storage.RecycleKey(key)); err != nil {
		return fmt.Errorf("pages: recycle %s: %w", key, err)
	}
	return nil
}

func (h *Handler) recycle(key string) error {
	if storage.IsRecycled(key) || !h.backend.Exists(key) {
		return ErrNotExists
	}
	if err := h.backend.Copy(key, storage.RecycleKey(key)); err != nil {
		return fmt.Errorf("pages: copy %s to recycler: %w", key, err)
	}
	return nil
}

func (h *Handler) slugs() ([]string, error) {
	keys, err := h.backend.List()
	if err != nil {
		return nil, fmt.Errorf("pages: list: %w", err)
	}
	return keys, nil
}
