package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/ticketing"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

func TestTrackTicketOpensLevelOne(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()

	process, err := f.service.TrackTicket(ctx, openTicket("TCK-1", 2, f.clock.Now()))
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if process.Status != domain.ProcessStatusPending {
		t.Fatalf("status = %s, want PENDING", process.Status)
	}
	if process.Metadata.CurrentLevel != 1 {
		t.Fatalf("level = %d, want 1", process.Metadata.CurrentLevel)
	}

	item, err := f.store.store.PendingWorkItem(ctx, process.ID)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if item == nil {
		t.Fatal("no pending work item after tracking")
	}
	if item.ParticipantID != "pool" {
		t.Fatalf("participant = %s, want pool default", item.ParticipantID)
	}
	// Priority 2 grants an 8h response window.
	want := f.clock.Now().Add(8 * time.Hour)
	if !item.Deadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", item.Deadline, want)
	}
}

func TestTrackTicketIsIdempotent(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	ticket := openTicket("TCK-2", 3, f.clock.Now())

	first, err := f.service.TrackTicket(ctx, ticket)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	second, err := f.service.TrackTicket(ctx, ticket)
	if err != nil {
		t.Fatalf("retrack: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("retracking created a second process")
	}
}

func TestTrackTicketResolvesAssignee(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	ticket := openTicket("TCK-3", 3, f.clock.Now())
	ticket.AssigneeRef = "Ana Souza"

	process, err := f.service.TrackTicket(ctx, ticket)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	item, _ := f.store.store.PendingWorkItem(ctx, process.ID)
	if item.ParticipantID != "tech1" {
		t.Fatalf("display-name assignee not resolved: %s", item.ParticipantID)
	}
}

func TestCompleteResolvesProcessAndForwardsComment(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()

	process, _ := f.service.TrackTicket(ctx, openTicket("TCK-4", 2, f.clock.Now()))
	item, _ := f.store.store.PendingWorkItem(ctx, process.ID)

	if _, err := f.service.Complete(ctx, item.ID, "tech1", "replaced the valve"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	process, err := f.store.store.ProcessByID(ctx, process.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if process.Status != domain.ProcessStatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", process.Status)
	}

	comments := f.pusher.byKind(ticketing.PushComment)
	if len(comments) != 1 || comments[0].Body != "replaced the valve" {
		t.Fatalf("comment not queued for the external system: %+v", comments)
	}
}

func TestCompleteRequiresComment(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	process, _ := f.service.TrackTicket(ctx, openTicket("TCK-5", 2, f.clock.Now()))
	item, _ := f.store.store.PendingWorkItem(ctx, process.ID)

	if _, err := f.service.Complete(ctx, item.ID, "tech1", "   "); !apperrors.IsValidation(err) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestEscalateMovesToNextLevel(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	process, _ := f.service.TrackTicket(ctx, openTicket("TCK-6", 3, f.clock.Now()))
	item, _ := f.store.store.PendingWorkItem(ctx, process.ID)

	process, err := f.service.Escalate(ctx, item.ID, "tech1", "needs a supervisor", "supervisor", nil)
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if process.Status != domain.ProcessStatusPending {
		t.Fatalf("status = %s, want PENDING after escalation", process.Status)
	}
	if process.Metadata.CurrentLevel != 2 {
		t.Fatalf("level = %d, want 2", process.Metadata.CurrentLevel)
	}

	next, _ := f.store.store.PendingWorkItem(ctx, process.ID)
	if next == nil || next.ParticipantID != "supervisor" {
		t.Fatalf("next work item not held by supervisor: %+v", next)
	}
	old, _ := f.store.store.WorkItemByID(ctx, item.ID)
	if old.Status != domain.WorkItemStatusDone {
		t.Fatal("previous work item not closed by the escalation")
	}

	if jobs := f.pusher.byKind(ticketing.PushAssignee); len(jobs) != 1 || jobs[0].Assignee != "supervisor" {
		t.Fatalf("assignee push not queued: %+v", jobs)
	}
}

func TestEscalatePriorityOverride(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	process, _ := f.service.TrackTicket(ctx, openTicket("TCK-7", 4, f.clock.Now()))
	item, _ := f.store.store.PendingWorkItem(ctx, process.ID)

	override := 1
	process, err := f.service.Escalate(ctx, item.ID, "tech1", "client escalated hard", "supervisor", &override)
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if process.Priority != 1 {
		t.Fatalf("priority = %d, want 1", process.Priority)
	}
	next, _ := f.store.store.PendingWorkItem(ctx, process.ID)
	// The fresh deadline follows the overridden priority's 4h window.
	if want := f.clock.Now().Add(4 * time.Hour); !next.Deadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", next.Deadline, want)
	}
	if jobs := f.pusher.byKind(ticketing.PushPriority); len(jobs) != 1 || jobs[0].Priority != 1 {
		t.Fatalf("priority push not queued: %+v", jobs)
	}
}

func TestEscalateValidation(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	process, _ := f.service.TrackTicket(ctx, openTicket("TCK-8", 3, f.clock.Now()))
	item, _ := f.store.store.PendingWorkItem(ctx, process.ID)

	if _, err := f.service.Escalate(ctx, item.ID, "tech1", "", "supervisor", nil); !apperrors.IsValidation(err) {
		t.Fatalf("blank comment: expected VALIDATION_FAILED, got %v", err)
	}
	if _, err := f.service.Escalate(ctx, item.ID, "tech1", "c", "", nil); !apperrors.IsValidation(err) {
		t.Fatalf("blank target: expected VALIDATION_FAILED, got %v", err)
	}
	if _, err := f.service.Escalate(ctx, item.ID, "tech1", "c", "nobody", nil); !apperrors.IsValidation(err) {
		t.Fatalf("unknown target: expected VALIDATION_FAILED, got %v", err)
	}
	// A plain user may not hold a level 2 item.
	if _, err := f.service.Escalate(ctx, item.ID, "tech1", "c", "tech1", nil); !apperrors.IsValidation(err) {
		t.Fatalf("underqualified target: expected VALIDATION_FAILED, got %v", err)
	}
	bad := 9
	if _, err := f.service.Escalate(ctx, item.ID, "tech1", "c", "supervisor", &bad); !apperrors.IsValidation(err) {
		t.Fatalf("priority 9: expected VALIDATION_FAILED, got %v", err)
	}
}

func TestEscalateDoneItemConflicts(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	process, _ := f.service.TrackTicket(ctx, openTicket("TCK-9", 3, f.clock.Now()))
	item, _ := f.store.store.PendingWorkItem(ctx, process.ID)
	if _, err := f.service.Complete(ctx, item.ID, "tech1", "done"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := f.service.Escalate(ctx, item.ID, "tech1", "too late", "supervisor", nil); !apperrors.IsConflict(err) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestReassignKeepsLevel(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	process, _ := f.service.TrackTicket(ctx, openTicket("TCK-10", 3, f.clock.Now()))
	item, _ := f.store.store.PendingWorkItem(ctx, process.ID)

	reassigned, err := f.service.Reassign(ctx, item.ID, "ana@example.com", "supervisor")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if reassigned.ParticipantID != "tech1" {
		t.Fatalf("participant = %s, want tech1", reassigned.ParticipantID)
	}

	process, _ = f.store.store.ProcessByID(ctx, process.ID)
	if process.Metadata.CurrentLevel != 1 {
		t.Fatalf("reassignment changed the level to %d", process.Metadata.CurrentLevel)
	}
	if jobs := f.pusher.byKind(ticketing.PushAssignee); len(jobs) != 1 || jobs[0].Assignee != "tech1" {
		t.Fatalf("assignee push not queued: %+v", jobs)
	}
}

func TestReassignDoneItemConflicts(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	process, _ := f.service.TrackTicket(ctx, openTicket("TCK-11", 3, f.clock.Now()))
	item, _ := f.store.store.PendingWorkItem(ctx, process.ID)
	if _, err := f.service.Complete(ctx, item.ID, "tech1", "done"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := f.service.Reassign(ctx, item.ID, "tech1", "supervisor"); !apperrors.IsConflict(err) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestSweepEscalatesLapsedDeadlines(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	process, _ := f.service.TrackTicket(ctx, openTicket("TCK-12", 2, f.clock.Now()))
	original, _ := f.store.store.PendingWorkItem(ctx, process.ID)

	f.clock.Advance(9 * time.Hour)
	swept, err := f.service.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept %d processes, want 1", swept)
	}

	process, _ = f.store.store.ProcessByID(ctx, process.ID)
	if process.Status != domain.ProcessStatusPending {
		t.Fatalf("status = %s, want PENDING at the next level", process.Status)
	}
	if process.Metadata.CurrentLevel != 2 {
		t.Fatalf("level = %d, want 2", process.Metadata.CurrentLevel)
	}

	item, _ := f.store.store.PendingWorkItem(ctx, process.ID)
	if item.ParticipantID != "supervisor" {
		t.Fatalf("sweep default target = %s, want supervisor", item.ParticipantID)
	}
	if !item.Deadline.After(f.clock.Now()) {
		t.Fatal("escalated work item did not get a fresh deadline")
	}

	old, _ := f.store.store.WorkItemByID(ctx, original.ID)
	if old.Status != domain.WorkItemStatusDone {
		t.Fatal("lapsed work item not closed")
	}
	trail, _ := f.store.store.AuditTrail(ctx, domain.AuditEntityWorkItem, original.ID)
	found := false
	for _, entry := range trail {
		if entry.Action == domain.AuditWorkItemEscalated && entry.Comment == TimeoutComment {
			found = true
		}
	}
	if !found {
		t.Fatalf("timeout escalation not audited: %+v", trail)
	}

	timedOut := false
	for _, entry := range f.store.audit.All() {
		if entry.EntityID == process.ID && entry.Action == domain.AuditProcessTimedOut {
			timedOut = true
		}
	}
	if !timedOut {
		t.Fatal("TIMED_OUT transition not audited")
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	f.service.TrackTicket(ctx, openTicket("TCK-13", 2, f.clock.Now()))

	f.clock.Advance(9 * time.Hour)
	if swept, _ := f.service.Sweep(ctx); swept != 1 {
		t.Fatalf("first sweep escalated %d, want 1", swept)
	}
	// The fresh deadline at level 2 has not lapsed.
	if swept, _ := f.service.Sweep(ctx); swept != 0 {
		t.Fatalf("second sweep escalated %d, want 0", swept)
	}
}

func TestSweepSkipsUnlapsedDeadlines(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	f.service.TrackTicket(ctx, openTicket("TCK-14", 5, f.clock.Now()))

	f.clock.Advance(time.Hour)
	if swept, _ := f.service.Sweep(ctx); swept != 0 {
		t.Fatalf("swept %d processes, want 0", swept)
	}
}

func TestSweepWalksLevelsWithoutSkipping(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	process, _ := f.service.TrackTicket(ctx, openTicket("TCK-15", 2, f.clock.Now()))

	for sweep := 1; sweep <= 3; sweep++ {
		f.clock.Advance(9 * time.Hour)
		if swept, err := f.service.Sweep(ctx); err != nil || swept != 1 {
			t.Fatalf("sweep %d: swept=%d err=%v", sweep, swept, err)
		}
	}

	process, _ = f.store.store.ProcessByID(ctx, process.ID)
	if process.Metadata.CurrentLevel != 4 {
		t.Fatalf("level = %d, want 4 after three sweeps", process.Metadata.CurrentLevel)
	}
	item, _ := f.store.store.PendingWorkItem(ctx, process.ID)
	// Levels past the configured table land on the management default.
	if item.ParticipantID != "manager" {
		t.Fatalf("participant = %s, want manager", item.ParticipantID)
	}
}

func TestNextLevel(t *testing.T) {
	cases := map[int]int{0: 2, 1: 2, 2: 3, 3: 4, 7: 8}
	for current, want := range cases {
		if got := NextLevel(current); got != want {
			t.Fatalf("NextLevel(%d) = %d, want %d", current, got, want)
		}
	}
}

func TestForceCompleteClosesPendingItem(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	process, _ := f.service.TrackTicket(ctx, openTicket("TCK-16", 3, f.clock.Now()))

	if err := f.service.ForceComplete(ctx, process, ClosedExternallyComment); err != nil {
		t.Fatalf("force complete: %v", err)
	}
	process, _ = f.store.store.ProcessByID(ctx, process.ID)
	if process.Status != domain.ProcessStatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", process.Status)
	}
	if item, _ := f.store.store.PendingWorkItem(ctx, process.ID); item != nil {
		t.Fatal("pending work item survived the forced completion")
	}
}
