// Package directory resolves the ticketing system's inconsistent
// participant references (ids, emails, display names) to normalized
// participants with an operational tier. The core never matches on
// display names internally.
package directory

import (
	"context"
	"strings"

	"github.com/spec-kit/escalation-service/internal/domain"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// Directory is the identity/profile collaborator contract.
type Directory interface {
	// Resolve accepts a participant id, email, or display name.
	Resolve(ctx context.Context, ref string) (*domain.Participant, error)
	// Get returns a participant by its normalized id.
	Get(ctx context.Context, id string) (*domain.Participant, error)
}

// StaticDirectory serves participants from configuration. Deployments
// with a real profile directory swap in an HTTP-backed implementation
// behind the same interface.
type StaticDirectory struct {
	byID    map[string]domain.Participant
	byAlias map[string]string
}

// NewStaticDirectory indexes participants by id, email, and display name.
func NewStaticDirectory(participants []domain.Participant) *StaticDirectory {
	d := &StaticDirectory{
		byID:    make(map[string]domain.Participant, len(participants)),
		byAlias: make(map[string]string),
	}
	for _, p := range participants {
		d.byID[p.ID] = p
		if p.Email != "" {
			d.byAlias[normalize(p.Email)] = p.ID
		}
		if p.DisplayName != "" {
			d.byAlias[normalize(p.DisplayName)] = p.ID
		}
	}
	return d
}

func (d *StaticDirectory) Resolve(ctx context.Context, ref string) (*domain.Participant, error) {
	key := strings.TrimSpace(ref)
	if key == "" {
		return nil, apperrors.NewValidationError("participant reference required", nil)
	}
	if p, ok := d.byID[key]; ok {
		return &p, nil
	}
	if id, ok := d.byAlias[normalize(key)]; ok {
		p := d.byID[id]
		return &p, nil
	}
	return nil, apperrors.NewNotFound("participant", map[string]any{"ref": ref})
}

func (d *StaticDirectory) Get(ctx context.Context, id string) (*domain.Participant, error) {
	if p, ok := d.byID[id]; ok {
		return &p, nil
	}
	return nil, apperrors.NewNotFound("participant", map[string]any{"participant_id": id})
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseParticipants parses configuration entries of the form
// id:displayName:email:type. Malformed entries are skipped.
func ParseParticipants(entries []string) []domain.Participant {
	var result []domain.Participant
	for _, entry := range entries {
		fields := strings.Split(entry, ":")
		if len(fields) != 4 {
			continue
		}
		pt := domain.ParticipantType(strings.ToUpper(strings.TrimSpace(fields[3])))
		switch pt {
		case domain.ParticipantUser, domain.ParticipantSupervisor, domain.ParticipantManagerPlus:
		default:
			continue
		}
		result = append(result, domain.Participant{
			ID:          strings.TrimSpace(fields[0]),
			DisplayName: strings.TrimSpace(fields[1]),
			Email:       strings.TrimSpace(fields[2]),
			Type:        pt,
		})
	}
	return result
}
