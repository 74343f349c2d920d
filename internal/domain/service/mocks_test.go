package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
	"github.com/jonny/engagebot/internal/domain/service"
)

// --- mock repositories ---

type mockDeliveryRepo struct {
	mu         sync.Mutex
	deliveries map[string]model.WebhookDelivery
	err        error
}

func newMockDeliveryRepo() *mockDeliveryRepo {
	return &mockDeliveryRepo{deliveries: make(map[string]model.WebhookDelivery)}
}

func (r *mockDeliveryRepo) Create(_ context.Context, d model.WebhookDelivery) (model.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return model.WebhookDelivery{}, r.err
	}
	r.deliveries[d.ID] = d
	return d, nil
}
func (r *mockDeliveryRepo) GetByID(_ context.Context, id string) (model.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return model.WebhookDelivery{}, outbound.ErrNotFound
	}
	return d, nil
}

var _ outbound.DeliveryRepository = (*mockDeliveryRepo)(nil)

type mockEventRepo struct {
	mu     sync.Mutex
	events map[string]model.InboundEvent
	err    error
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: make(map[string]model.InboundEvent)}
}

func (r *mockEventRepo) Create(_ context.Context, ev model.InboundEvent) (model.InboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return model.InboundEvent{}, r.err
	}
	r.events[ev.ID] = ev
	return ev, nil
}
func (r *mockEventRepo) GetByID(_ context.Context, id string) (model.InboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[id]
	if !ok {
		return model.InboundEvent{}, outbound.ErrNotFound
	}
	return ev, nil
}
func (r *mockEventRepo) Update(_ context.Context, ev model.InboundEvent) (model.InboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[ev.ID] = ev
	return ev, nil
}
func (r *mockEventRepo) List(_ context.Context, _ outbound.EventFilter, _ outbound.PageRequest) (outbound.PageResult[model.InboundEvent], error) {
	return outbound.PageResult[model.InboundEvent]{}, nil
}

var _ outbound.EventRepository = (*mockEventRepo)(nil)

type mockInteractionRepo struct {
	mu           sync.Mutex
	interactions map[string]model.Interaction
	order        []string
	createCalls  int
	createDelay  time.Duration
}

func newMockInteractionRepo() *mockInteractionRepo {
	return &mockInteractionRepo{interactions: make(map[string]model.Interaction)}
}

func (r *mockInteractionRepo) Create(_ context.Context, i model.Interaction) (model.Interaction, error) {
	if r.createDelay > 0 {
		time.Sleep(r.createDelay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if i.ExternalID != "" {
		for _, existing := range r.interactions {
			if existing.ExternalID == i.ExternalID {
				return model.Interaction{}, outbound.ErrDuplicate
			}
		}
	}
	r.interactions[i.ID] = i
	r.order = append(r.order, i.ID)
	return i, nil
}
func (r *mockInteractionRepo) GetByID(_ context.Context, id string) (model.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.interactions[id]
	if !ok {
		return model.Interaction{}, outbound.ErrNotFound
	}
	return i, nil
}
func (r *mockInteractionRepo) GetByExternalID(_ context.Context, externalID string) (*model.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.interactions {
		if i.ExternalID == externalID {
			found := i
			return &found, nil
		}
	}
	return nil, nil
}
func (r *mockInteractionRepo) Update(_ context.Context, i model.Interaction) (model.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.interactions[i.ID]; !ok {
		return model.Interaction{}, outbound.ErrNotFound
	}
	r.interactions[i.ID] = i
	return i, nil
}
func (r *mockInteractionRepo) List(_ context.Context, _ outbound.InteractionFilter, _ outbound.PageRequest) (outbound.PageResult[model.Interaction], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]model.Interaction, 0, len(r.order))
	for _, id := range r.order {
		items = append(items, r.interactions[id])
	}
	return outbound.PageResult[model.Interaction]{Items: items, TotalCount: int64(len(items)), Page: 1, Size: len(items)}, nil
}

func (r *mockInteractionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.interactions)
}

func (r *mockInteractionRepo) only() model.Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.interactions {
		return i
	}
	return model.Interaction{}
}

var _ outbound.InteractionRepository = (*mockInteractionRepo)(nil)

type mockTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]model.ReplyTemplate
	order     []string
}

func newMockTemplateRepo(templates ...model.ReplyTemplate) *mockTemplateRepo {
	r := &mockTemplateRepo{templates: make(map[string]model.ReplyTemplate)}
	for _, t := range templates {
		r.templates[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	return r
}

func (r *mockTemplateRepo) Create(_ context.Context, t model.ReplyTemplate) (model.ReplyTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[t.ID]; ok {
		return model.ReplyTemplate{}, outbound.ErrDuplicate
	}
	r.templates[t.ID] = t
	r.order = append(r.order, t.ID)
	return t, nil
}
func (r *mockTemplateRepo) GetByID(_ context.Context, id string) (model.ReplyTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return model.ReplyTemplate{}, outbound.ErrNotFound
	}
	return t, nil
}
func (r *mockTemplateRepo) Update(_ context.Context, t model.ReplyTemplate) (model.ReplyTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[t.ID]; !ok {
		return model.ReplyTemplate{}, outbound.ErrNotFound
	}
	r.templates[t.ID] = t
	return t, nil
}
func (r *mockTemplateRepo) List(_ context.Context) ([]model.ReplyTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ReplyTemplate, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.templates[id])
	}
	return out, nil
}
func (r *mockTemplateRepo) ListActive(ctx context.Context) ([]model.ReplyTemplate, error) {
	all, _ := r.List(ctx)
	out := make([]model.ReplyTemplate, 0, len(all))
	for _, t := range all {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}
func (r *mockTemplateRepo) SetDefault(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[id]; !ok {
		return outbound.ErrNotFound
	}
	for k, t := range r.templates {
		t.IsDefault = k == id
		r.templates[k] = t
	}
	return nil
}
func (r *mockTemplateRepo) IncrementUsage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return outbound.ErrNotFound
	}
	t.UsageCount++
	r.templates[id] = t
	return nil
}

func (r *mockTemplateRepo) defaults() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, t := range r.templates {
		if t.IsDefault {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

var _ outbound.TemplateRepository = (*mockTemplateRepo)(nil)

type mockCandidateRepo struct {
	mu         sync.Mutex
	candidates map[string]model.Candidate
}

func newMockCandidateRepo() *mockCandidateRepo {
	return &mockCandidateRepo{candidates: make(map[string]model.Candidate)}
}

func (r *mockCandidateRepo) GetByHandle(_ context.Context, handle string) (*model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[handle]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
func (r *mockCandidateRepo) Upsert(_ context.Context, c model.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[c.Handle] = c
	return nil
}

func (r *mockCandidateRepo) get(handle string) (model.Candidate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[handle]
	return c, ok
}

var _ outbound.CandidateRepository = (*mockCandidateRepo)(nil)

type mockSettingsRepo struct {
	mu       sync.Mutex
	settings *model.Settings
	getDelay time.Duration
}

func (r *mockSettingsRepo) Get(_ context.Context) (model.Settings, error) {
	if r.getDelay > 0 {
		time.Sleep(r.getDelay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		return model.DefaultSettings(), nil
	}
	return *r.settings, nil
}
func (r *mockSettingsRepo) Save(_ context.Context, s model.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = &s
	return nil
}

var _ outbound.SettingsRepository = (*mockSettingsRepo)(nil)

type mockAuditRepo struct {
	mu   sync.Mutex
	logs []model.AuditLog
}

func (r *mockAuditRepo) Create(_ context.Context, l model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
	return nil
}
func (r *mockAuditRepo) List(_ context.Context, _ outbound.AuditFilter, _ outbound.PageRequest) (outbound.PageResult[model.AuditLog], error) {
	return outbound.PageResult[model.AuditLog]{}, nil
}

func (r *mockAuditRepo) count(eventType model.AuditEventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.logs {
		if l.EventType == eventType {
			n++
		}
	}
	return n
}

var _ outbound.AuditRepository = (*mockAuditRepo)(nil)

// --- mock adapters ---

type sentMessage struct {
	Method string
	Target string
	Text   string
}

type mockMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockMessenger) ReplyToComment(_ context.Context, commentID, message string) (outbound.DispatchReceipt, error) {
	return m.record("comment", commentID, message)
}
func (m *mockMessenger) SendDirectMessage(_ context.Context, recipientID, message string) (outbound.DispatchReceipt, error) {
	return m.record("dm", recipientID, message)
}
func (m *mockMessenger) record(method, target, text string) (outbound.DispatchReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{Method: method, Target: target, Text: text})
	if m.err != nil {
		return outbound.DispatchReceipt{}, m.err
	}
	return outbound.DispatchReceipt{MessageID: "ext-" + target, Encoding: "form"}, nil
}
func (m *mockMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

var _ outbound.Messenger = (*mockMessenger)(nil)

type mockNotifier struct {
	mu       sync.Mutex
	failures []outbound.DispatchFailureNotification
	leads    []outbound.LeadNotification
	// block, when set, holds every call until it is closed or ctx expires.
	block chan struct{}
}

func (n *mockNotifier) NotifyDispatchFailure(ctx context.Context, f outbound.DispatchFailureNotification) error {
	n.mu.Lock()
	n.failures = append(n.failures, f)
	n.mu.Unlock()
	return n.wait(ctx)
}
func (n *mockNotifier) NotifyLead(ctx context.Context, l outbound.LeadNotification) error {
	n.mu.Lock()
	n.leads = append(n.leads, l)
	n.mu.Unlock()
	return n.wait(ctx)
}
func (n *mockNotifier) wait(ctx context.Context) error {
	if n.block == nil {
		return nil
	}
	select {
	case <-n.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
func (n *mockNotifier) leadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.leads)
}

var _ outbound.Notifier = (*mockNotifier)(nil)

type mockPublisher struct {
	mu     sync.Mutex
	events []outbound.OutcomeEvent
}

func (p *mockPublisher) Publish(_ context.Context, e outbound.OutcomeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}
func (p *mockPublisher) Close() error { return nil }

var _ outbound.OutcomePublisher = (*mockPublisher)(nil)

// --- fixture ---

type fixture struct {
	deliveries   *mockDeliveryRepo
	events       *mockEventRepo
	interactions *mockInteractionRepo
	templates    *mockTemplateRepo
	candidates   *mockCandidateRepo
	settings     *mockSettingsRepo
	audits       *mockAuditRepo
	messenger    *mockMessenger
	notifier     *mockNotifier
	publisher    *mockPublisher

	templateSvc *service.TemplateService
	tracker     *service.CandidateTracker
	guard       *service.LoopGuard
	dispatcher  *service.Dispatcher
	engine      *service.Engine
}

type fixtureOption func(*service.EngineConfig)

func withDMReplies() fixtureOption {
	return func(c *service.EngineConfig) { c.ReplyToDirectMessages = true }
}

func withBotUsername(name string) fixtureOption {
	return func(c *service.EngineConfig) { c.BotUsername = name }
}

func newFixture(classifier outbound.Classifier, templates []model.ReplyTemplate, opts ...fixtureOption) *fixture {
	f := &fixture{
		deliveries:   newMockDeliveryRepo(),
		events:       newMockEventRepo(),
		interactions: newMockInteractionRepo(),
		templates:    newMockTemplateRepo(templates...),
		candidates:   newMockCandidateRepo(),
		settings:     &mockSettingsRepo{},
		audits:       &mockAuditRepo{},
		messenger:    &mockMessenger{},
		notifier:     &mockNotifier{},
		publisher:    &mockPublisher{},
	}
	cfg := service.EngineConfig{CompanyName: "Acme"}
	for _, opt := range opts {
		opt(&cfg)
	}

	f.tracker = service.NewCandidateTracker(f.candidates)
	f.templateSvc = service.NewTemplateService(f.templates, f.settings, f.audits, nil)
	f.dispatcher = service.NewDispatcher(f.messenger, f.interactions, f.audits, f.tracker, f.notifier, f.publisher, time.Second, nil)
	phrases := append([]string{}, service.DefaultLoopPhrases...)
	f.guard = service.NewLoopGuard(append(phrases, classifier.CannedReplies()...)...)
	f.engine = f.newEngine(classifier, service.InlineRunner{Dispatcher: f.dispatcher}, cfg)
	return f
}

func (f *fixture) newEngine(classifier outbound.Classifier, runner service.JobRunner, cfg service.EngineConfig) *service.Engine {
	return service.NewEngine(
		service.Repositories{
			Deliveries:   f.deliveries,
			Events:       f.events,
			Interactions: f.interactions,
			Templates:    f.templates,
			Candidates:   f.candidates,
			Settings:     f.settings,
			Audits:       f.audits,
		},
		classifier,
		f.templateSvc,
		f.tracker,
		f.guard,
		runner,
		cfg,
		nil,
	)
}

var errBoom = errors.New("boom")
