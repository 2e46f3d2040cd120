package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/yoockh/innkeeper/internal/buffer"
	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/utils"
)

type fakeMessageRepo struct {
	mu   sync.Mutex
	rows []models.ConversationLog
	err  error

	latestCalls int
}

func (r *fakeMessageRepo) Insert(_ context.Context, log *models.ConversationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, *log)
	return nil
}

func (r *fakeMessageRepo) ListByConversation(_ context.Context, conversationID string, limit int) ([]models.ConversationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []models.ConversationLog
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if r.rows[i].ConversationID == conversationID {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) LatestN(ctx context.Context, conversationID string, n int) ([]models.ConversationLog, error) {
	r.mu.Lock()
	r.latestCalls++
	r.mu.Unlock()

	rows, err := r.ListByConversation(ctx, conversationID, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (r *fakeMessageRepo) Roles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row.Role)
	}
	return out
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]models.GuestProfile
	gets     int
}

func newFakeProfileRepo(ps ...models.GuestProfile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: map[string]models.GuestProfile{}}
	for _, p := range ps {
		r.profiles[p.ConversationID] = p
	}
	return r
}

func (r *fakeProfileRepo) GetByConversationID(_ context.Context, conversationID string) (*models.GuestProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	p, ok := r.profiles[conversationID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &p, nil
}

func (r *fakeProfileRepo) Upsert(_ context.Context, p *models.GuestProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ConversationID] = *p
	return nil
}

type fakeFlushRepo struct {
	mu      sync.Mutex
	records map[string]*models.FlushRecord
}

func newFakeFlushRepo() *fakeFlushRepo {
	return &fakeFlushRepo{records: map[string]*models.FlushRecord{}}
}

func (r *fakeFlushRepo) Insert(_ context.Context, f *models.FlushRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	r.records[f.FlushID] = &cp
	return nil
}

func (r *fakeFlushRepo) Complete(_ context.Context, flushID, status, reply, errMsg string, processingMS int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[flushID]
	if !ok {
		return utils.ErrNotFound
	}
	rec.Status, rec.Reply, rec.Error, rec.ProcessingTimeMS = status, reply, errMsg, processingMS
	return nil
}

func (r *fakeFlushRepo) ListByConversation(_ context.Context, conversationID string, _ int64) ([]models.FlushRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.FlushRecord
	for _, rec := range r.records {
		if rec.ConversationID == conversationID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *fakeFlushRepo) Get(flushID string) (models.FlushRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[flushID]
	if !ok {
		return models.FlushRecord{}, false
	}
	return *rec, true
}

type fakeConversationRepo struct {
	mu      sync.Mutex
	touched []models.Conversation
	err     error
}

func (r *fakeConversationRepo) Touch(_ context.Context, c *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.touched = append(r.touched, *c)
	return nil
}

func (r *fakeConversationRepo) GetByConversationID(_ context.Context, conversationID string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.touched {
		if c.ConversationID == conversationID {
			return &c, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r *fakeConversationRepo) Close(_ context.Context, conversationID string, _ time.Time) error {
	if _, err := r.GetByConversationID(context.Background(), conversationID); err != nil {
		return err
	}
	return nil
}

type fakeLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	systems []string
	prompts []string
}

func (f *fakeLLM) StreamAnswer(_ context.Context, system, prompt string) (<-chan string, <-chan error) {
	f.mu.Lock()
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, prompt)
	answer, err := f.answer, f.err
	f.mu.Unlock()

	out := make(chan string, 1)
	errs := make(chan error, 1)
	if answer != "" {
		out <- answer
	}
	if err != nil {
		errs <- err
	}
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) LastPrompt() (system, prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return "", ""
	}
	return f.systems[len(f.systems)-1], f.prompts[len(f.prompts)-1]
}

type sent struct {
	route   buffer.Route
	message string
}

type fakeRouter struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (r *fakeRouter) Notify(_ context.Context, route buffer.Route, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sent{route: route, message: message})
	return nil
}

type enqueued struct {
	conversationID string
	frag           buffer.Fragment
	route          buffer.Route
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	items []enqueued
	err   error
}

func (e *fakeEnqueuer) Enqueue(conversationID string, frag buffer.Fragment, route buffer.Route) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.items = append(e.items, enqueued{conversationID: conversationID, frag: frag, route: route})
	return nil
}

type fakeSTT struct {
	text  string
	err   error
	audio []byte
	lang  string
}

func (f *fakeSTT) Transcribe(_ context.Context, audio []byte, language string) (string, float64, error) {
	f.audio, f.lang = audio, language
	return f.text, 0.9, f.err
}

func (f *fakeSTT) Close() error { return nil }

type fakeUploader struct {
	objects map[string][]byte
}

func (u *fakeUploader) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[objectName] = b
	return "gs://test/" + objectName, nil
}
