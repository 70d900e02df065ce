package member

import "github.com/google/uuid"

// Snapshot is an immutable in-memory view of a tenant's members, built
// once before an import or head-of-household recompute. Lookups preserve
// the retrieval order of the underlying slice, which the head policies
// rely on for deterministic tie-breaking.
type Snapshot struct {
	members     []Member
	byID        map[uuid.UUID]int
	byEnvelope  map[int][]int
	byHousehold map[uuid.UUID][]int
}

func NewSnapshot(members []Member) *Snapshot {
	s := &Snapshot{
		members:     members,
		byID:        make(map[uuid.UUID]int, len(members)),
		byEnvelope:  make(map[int][]int),
		byHousehold: make(map[uuid.UUID][]int),
	}
	for i, m := range members {
		if m.ID() != uuid.Nil {
			if _, ok := s.byID[m.ID()]; !ok {
				s.byID[m.ID()] = i
			}
		}
		if n := m.EnvelopeNumber(); n != nil {
			s.byEnvelope[*n] = append(s.byEnvelope[*n], i)
		}
		if m.HouseholdID() != uuid.Nil {
			s.byHousehold[m.HouseholdID()] = append(s.byHousehold[m.HouseholdID()], i)
		}
	}
	return s
}

func (s *Snapshot) Len() int {
	return len(s.members)
}

func (s *Snapshot) All() []Member {
	return s.members
}

func (s *Snapshot) ByID(id uuid.UUID) (Member, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Member{}, false
	}
	return s.members[i], true
}

// ByEnvelope returns the members sharing an envelope number, in
// retrieval order.
func (s *Snapshot) ByEnvelope(envelope int) []Member {
	return s.collect(s.byEnvelope[envelope])
}

// ByHousehold returns the members of one household, in retrieval order.
func (s *Snapshot) ByHousehold(householdID uuid.UUID) []Member {
	return s.collect(s.byHousehold[householdID])
}

func (s *Snapshot) collect(indices []int) []Member {
	if len(indices) == 0 {
		return nil
	}
	out := make([]Member, 0, len(indices))
	for _, i := range indices {
		out = append(out, s.members[i])
	}
	return out
}
