// Package buffer coalesces bursts of inbound fragments into one unit of
// work per conversation.
//
// Every Enqueue appends to the conversation's pending entry and re-arms its
// debounce timer. When the timer fires the manager asks the run guard for
// the conversation: if a previous run is still in flight the entry stays
// buffered and a short retry timer is armed, otherwise the entry is removed
// and its fragments, joined in arrival order, are handed to the Processor.
// The guard is released when the Processor returns, fails or panics.
package buffer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/innkeeper/internal/cache"
	"github.com/yoockh/innkeeper/internal/runguard"
	"github.com/yoockh/innkeeper/internal/utils"
)

type Deps struct {
	Guard     *runguard.Guard
	Processor Processor
	Router    Router
	Dedup     *cache.Namespace // optional
	Logger    *logrus.Logger
}

type Stats struct {
	Buffered   int   `json:"buffered"`
	Running    int   `json:"running"`
	Enqueued   int64 `json:"enqueued"`
	Duplicates int64 `json:"duplicates"`
	Rejected   int64 `json:"rejected"`
	Flushes    int64 `json:"flushes"`
	Retries    int64 `json:"retries"`
	Failures   int64 `json:"failures"`
}

type entry struct {
	fragments []string
	size      int
	route     Route
	timer     *time.Timer
	gen       uint64 // identifies the only timer allowed to flush this entry
}

type Manager struct {
	cfg    Config
	guard  *runguard.Guard
	proc   Processor
	router Router
	dedup  *cache.Namespace
	log    *logrus.Entry

	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	enqueued, duplicates, rejected atomic.Int64
	flushes, retries, failures     atomic.Int64
}

func NewManager(cfg Config, deps Deps) (*Manager, error) {
	const op = "buffer.NewManager"

	if deps.Processor == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "processor is required", nil)
	}
	if deps.Router == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "router is required", nil)
	}
	if deps.Guard == nil {
		deps.Guard = runguard.New()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:     cfg.withDefaults(),
		guard:   deps.Guard,
		proc:    deps.Processor,
		router:  deps.Router,
		dedup:   deps.Dedup,
		log:     deps.Logger.WithField("component", "buffer"),
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Enqueue buffers a fragment for the conversation and restarts its debounce
// timer. Fragments carrying an ID already seen within the dedup window are
// accepted and ignored.
func (m *Manager) Enqueue(conversationID string, frag Fragment, route Route) error {
	const op = "Manager.Enqueue"

	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}
	if strings.TrimSpace(frag.Text) == "" {
		return utils.E(utils.CodeInvalidArgument, op, "fragment text is required", nil)
	}
	if len(frag.Text) > m.cfg.MaxBufferBytes {
		m.rejected.Add(1)
		return utils.E(utils.CodeInvalidArgument, op, "fragment exceeds buffer limit", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return utils.E(utils.CodeUnavailable, op, "buffer is shutting down", nil)
	}

	var dedupKey string
	if frag.ID != "" && m.dedup != nil {
		dedupKey = conversationID + ":" + frag.ID
		if m.dedup.Has(dedupKey) {
			m.duplicates.Add(1)
			m.log.WithFields(logrus.Fields{
				"conversation_id": conversationID,
				"message_id":      frag.ID,
			}).Debug("duplicate fragment ignored")
			return nil
		}
	}

	// size counts the joined text, separators included
	e, ok := m.entries[conversationID]
	grow := len(frag.Text)
	if ok && len(e.fragments) > 0 {
		grow += len(m.cfg.Separator)
	}
	if ok && e.size+grow > m.cfg.MaxBufferBytes {
		// flush what is there now; the guest can resend once it drains
		m.arm(conversationID, e, 0)
		m.rejected.Add(1)
		return utils.E(utils.CodeResourceExhausted, op, "conversation buffer is full", nil)
	}
	if !ok {
		e = &entry{route: Route{ConversationID: conversationID}}
		m.entries[conversationID] = e
	}

	e.fragments = append(e.fragments, frag.Text)
	e.size += grow
	e.route = e.route.merge(route)
	e.route.ConversationID = conversationID
	m.arm(conversationID, e, m.cfg.delayFor(ParseKind(string(frag.Kind))))

	if dedupKey != "" {
		m.dedup.SetWithTTL(dedupKey, true, m.cfg.DedupTTL)
	}
	m.enqueued.Add(1)
	return nil
}

// Pending returns how many fragments are buffered for the conversation.
func (m *Manager) Pending(conversationID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[conversationID]; ok {
		return len(e.fragments)
	}
	return 0
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	buffered := len(m.entries)
	m.mu.Unlock()

	return Stats{
		Buffered:   buffered,
		Running:    m.guard.ActiveCount(),
		Enqueued:   m.enqueued.Load(),
		Duplicates: m.duplicates.Load(),
		Rejected:   m.rejected.Load(),
		Flushes:    m.flushes.Load(),
		Retries:    m.retries.Load(),
		Failures:   m.failures.Load(),
	}
}

// Shutdown cancels every pending timer, drops unflushed fragments and waits
// for in-flight runs until ctx is done. Runs still going at that point have
// their context cancelled.
func (m *Manager) Shutdown(ctx context.Context) error {
	const op = "Manager.Shutdown"

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	dropped := 0
	for id, e := range m.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		dropped += len(e.fragments)
		delete(m.entries, id)
	}
	m.mu.Unlock()

	if dropped > 0 {
		m.log.WithField("fragments", dropped).Warn("dropping unflushed fragments on shutdown")
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	defer m.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return utils.E(utils.CodeTimeout, op, "in-flight runs did not finish", ctx.Err())
	}
}

// arm replaces the entry's timer. caller holds m.mu
func (m *Manager) arm(conversationID string, e *entry, delay time.Duration) {
	if e.timer != nil {
		e.timer.Stop()
	}
	m.seq++
	gen := m.seq
	e.gen = gen
	e.timer = time.AfterFunc(delay, func() { m.fire(conversationID, gen) })
}

func (m *Manager) fire(conversationID string, gen uint64) {
	m.mu.Lock()
	e, ok := m.entries[conversationID]
	if m.closed || !ok || e.gen != gen {
		// superseded by a later enqueue or by shutdown
		m.mu.Unlock()
		return
	}

	if !m.guard.TryAcquire(conversationID) {
		m.arm(conversationID, e, m.cfg.RetryDelay)
		m.mu.Unlock()

		m.retries.Add(1)
		m.log.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"fragments":       len(e.fragments),
		}).Debug("run in progress, flush deferred")
		return
	}

	delete(m.entries, conversationID)
	e.timer = nil
	m.wg.Add(1)
	m.mu.Unlock()

	m.run(conversationID, e)
}

func (m *Manager) run(conversationID string, e *entry) {
	defer m.wg.Done()
	defer m.guard.Release(conversationID)

	text := strings.Join(e.fragments, m.cfg.Separator)
	info := FlushInfo{ID: uuid.NewString(), Fragments: len(e.fragments)}
	log := m.log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"flush_id":        info.ID,
		"fragments":       info.Fragments,
		"bytes":           len(text),
	})

	ctx, cancel := context.WithTimeout(WithFlush(m.ctx, info), m.cfg.ProcessTimeout)
	defer cancel()

	start := time.Now()
	reply, err := m.invoke(ctx, conversationID, text, e.route)
	m.flushes.Add(1)
	log = log.WithField("latency_ms", time.Since(start).Milliseconds())

	if err != nil {
		m.failures.Add(1)
		log.WithError(err).Error("processor failed")
		m.notifyFallback(conversationID, e.route, log)
		return
	}
	log.WithField("reply_chars", len(reply.Text)).Info("flush processed")
}

func (m *Manager) invoke(ctx context.Context, conversationID, text string, route Route) (reply Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return m.proc.Process(ctx, conversationID, text, route)
}

func (m *Manager) notifyFallback(conversationID string, route Route, log *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("fallback notification panicked")
		}
	}()

	// the run context may already be cancelled or past its deadline
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if route.ConversationID == "" {
		route.ConversationID = conversationID
	}
	if err := m.router.Notify(ctx, route, m.cfg.FallbackMessage); err != nil {
		log.WithError(err).Error("fallback notification failed")
	}
}
