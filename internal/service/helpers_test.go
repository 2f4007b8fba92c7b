package service

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/escalation-service/internal/config"
	"github.com/spec-kit/escalation-service/internal/directory"
	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/events"
	"github.com/spec-kit/escalation-service/internal/repository"
	"github.com/spec-kit/escalation-service/internal/sla"
	"github.com/spec-kit/escalation-service/internal/ticketing"
)

type testStore struct {
	store *ProcessStore
	audit *repository.MemoryAuditRepository
}

func newTestStore() testStore {
	activities := repository.NewMemoryActivityRepository()
	audit := repository.NewMemoryAuditRepository()
	store := NewProcessStore(StoreDependencies{
		ProcessRepo:  repository.NewMemoryProcessRepository(),
		ActivityRepo: activities,
		WorkItemRepo: repository.NewMemoryWorkItemRepository(activities),
		AuditRepo:    audit,
	})
	return testStore{store: store, audit: audit}
}

// recordingPusher captures queued push jobs instead of touching Redis.
type recordingPusher struct {
	mu   sync.Mutex
	jobs []ticketing.PushJob
}

func (p *recordingPusher) Enqueue(ctx context.Context, job ticketing.PushJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *recordingPusher) byKind(kind ticketing.PushKind) []ticketing.PushJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	var result []ticketing.PushJob
	for _, job := range p.jobs {
		if job.Kind == kind {
			result = append(result, job)
		}
	}
	return result
}

// fakeClient serves canned tickets and records write calls.
type fakeClient struct {
	mu        sync.Mutex
	tickets   []ticketing.Ticket
	listErr   error
	pushErr   error
	comments  []string
	assignees map[string]string
}

func (c *fakeClient) ListTickets(ctx context.Context, filter ticketing.Filter, progress ticketing.ProgressFunc) ([]ticketing.Ticket, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	if progress != nil {
		for i := range c.tickets {
			progress(i+1, len(c.tickets))
		}
	}
	return c.tickets, nil
}

func (c *fakeClient) GetTicket(ctx context.Context, ref string) (*ticketing.Ticket, error) {
	for i := range c.tickets {
		if c.tickets[i].Ref == ref {
			return &c.tickets[i], nil
		}
	}
	return nil, c.listErr
}

func (c *fakeClient) ListComments(ctx context.Context, ref string) ([]ticketing.Comment, error) {
	return nil, nil
}

func (c *fakeClient) AddComment(ctx context.Context, ref, body string) error {
	if c.pushErr != nil {
		return c.pushErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.comments = append(c.comments, ref+": "+body)
	return nil
}

func (c *fakeClient) ChangeAssignee(ctx context.Context, ref, assigneeRef string) error {
	if c.pushErr != nil {
		return c.pushErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.assignees == nil {
		c.assignees = make(map[string]string)
	}
	c.assignees[ref] = assigneeRef
	return nil
}

func (c *fakeClient) ChangePriority(ctx context.Context, ref string, priority int) error {
	return c.pushErr
}

func testDirectory() *directory.StaticDirectory {
	return directory.NewStaticDirectory([]domain.Participant{
		{ID: "pool", DisplayName: "Dispatch Pool", Email: "pool@example.com", Type: domain.ParticipantUser},
		{ID: "tech1", DisplayName: "Ana Souza", Email: "ana@example.com", Type: domain.ParticipantUser},
		{ID: "supervisor", DisplayName: "Bruno Lima", Email: "bruno@example.com", Type: domain.ParticipantSupervisor},
		{ID: "manager", DisplayName: "Carla Dias", Email: "carla@example.com", Type: domain.ParticipantManagerPlus},
	})
}

func testEscalationConfig() config.EscalationConfig {
	return config.EscalationConfig{
		DefaultPoolOwner: "pool",
		DefaultByLevel:   map[int]string{2: "supervisor", 3: "manager"},
		PushMaxAttempts:  5,
	}
}

type escalationFixture struct {
	service *EscalationService
	store   testStore
	pusher  *recordingPusher
	clock   *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newEscalationFixture() escalationFixture {
	ts := newTestStore()
	pusher := &recordingPusher{}
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewEscalationService(EscalationDependencies{
		Store:      ts.store,
		Directory:  testDirectory(),
		Pusher:     pusher,
		Dispatcher: events.NewInMemoryDispatcher(),
		Policy:     sla.Default(),
		Defaults:   testEscalationConfig(),
		Now:        clock.Now,
	})
	return escalationFixture{service: svc, store: ts, pusher: pusher, clock: clock}
}

func openTicket(ref string, priority int, createdAt time.Time) ticketing.Ticket {
	return ticketing.Ticket{
		Ref:          ref,
		Title:        "Pump failure",
		Type:         "maintenance",
		ClientName:   "ACME Water",
		Subject:      "No pressure on site",
		Neighborhood: "Centro",
		Priority:     priority,
		Status:       ticketing.StatusOpen,
		CreatedAt:    createdAt,
	}
}
