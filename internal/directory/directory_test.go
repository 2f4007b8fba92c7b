package directory

import (
	"context"
	"testing"

	"github.com/spec-kit/escalation-service/internal/domain"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

func testDirectory() *StaticDirectory {
	return NewStaticDirectory([]domain.Participant{
		{ID: "tech1", DisplayName: "Ana Souza", Email: "ana@example.com", Type: domain.ParticipantUser},
		{ID: "sup1", DisplayName: "Bruno Lima", Email: "bruno@example.com", Type: domain.ParticipantSupervisor},
	})
}

func TestResolveByID(t *testing.T) {
	d := testDirectory()
	p, err := d.Resolve(context.Background(), "tech1")
	if err != nil {
		t.Fatalf("resolve by id: %v", err)
	}
	if p.Type != domain.ParticipantUser {
		t.Fatalf("unexpected type %s", p.Type)
	}
}

func TestResolveByEmailAndDisplayName(t *testing.T) {
	d := testDirectory()
	for _, ref := range []string{"ana@example.com", "ANA@EXAMPLE.COM", "Ana Souza", "  ana souza "} {
		p, err := d.Resolve(context.Background(), ref)
		if err != nil {
			t.Fatalf("resolve %q: %v", ref, err)
		}
		if p.ID != "tech1" {
			t.Fatalf("resolve %q = %s, want tech1", ref, p.ID)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	d := testDirectory()
	_, err := d.Resolve(context.Background(), "nobody")
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestResolveBlank(t *testing.T) {
	d := testDirectory()
	_, err := d.Resolve(context.Background(), "  ")
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestParseParticipants(t *testing.T) {
	parsed := ParseParticipants([]string{
		"tech1:Ana Souza:ana@example.com:user",
		"sup1:Bruno Lima:bruno@example.com:SUPERVISOR",
		"bad-entry",
		"x:Y:z:CONTRACTOR",
	})
	if len(parsed) != 2 {
		t.Fatalf("parsed %d participants, want 2", len(parsed))
	}
	if parsed[0].Type != domain.ParticipantUser {
		t.Fatalf("type not upper-cased: %s", parsed[0].Type)
	}
	if parsed[1].ID != "sup1" {
		t.Fatalf("unexpected second participant %s", parsed[1].ID)
	}
}

func TestTypeForLevelAndCanHoldLevel(t *testing.T) {
	if domain.TypeForLevel(1) != domain.ParticipantUser {
		t.Fatal("level 1 must map to USER")
	}
	if domain.TypeForLevel(2) != domain.ParticipantSupervisor {
		t.Fatal("level 2 must map to SUPERVISOR")
	}
	if domain.TypeForLevel(5) != domain.ParticipantManagerPlus {
		t.Fatal("levels past 2 must map to MANAGER_PLUS")
	}
	if !domain.CanHoldLevel(domain.ParticipantManagerPlus, 1) {
		t.Fatal("a manager may hold a level 1 item")
	}
	if domain.CanHoldLevel(domain.ParticipantUser, 2) {
		t.Fatal("a user may not hold a level 2 item")
	}
}
