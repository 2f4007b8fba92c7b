package domain

// ParticipantType is the responsibility tier of a participant.
type ParticipantType string

const (
	ParticipantUser        ParticipantType = "USER"
	ParticipantSupervisor  ParticipantType = "SUPERVISOR"
	ParticipantManagerPlus ParticipantType = "MANAGER_PLUS"
)

// Participant is the normalized identity the core operates on. The
// ticketing system's mixed name/id references never cross the sync
// boundary unresolved.
type Participant struct {
	ID          string
	DisplayName string
	Email       string
	Type        ParticipantType
}

// TypeForLevel maps an escalation level to the tier expected to hold it.
func TypeForLevel(level int) ParticipantType {
	switch {
	case level <= 1:
		return ParticipantUser
	case level == 2:
		return ParticipantSupervisor
	default:
		return ParticipantManagerPlus
	}
}

// CanHoldLevel reports whether a participant tier may own a work item at
// the given escalation level. Higher tiers may hold lower levels.
func CanHoldLevel(pt ParticipantType, level int) bool {
	switch pt {
	case ParticipantUser:
		return level <= 1
	case ParticipantSupervisor:
		return level <= 2
	case ParticipantManagerPlus:
		return true
	default:
		return false
	}
}
