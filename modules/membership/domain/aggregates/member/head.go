package member

import "fmt"

// HeadPolicy selects which head-of-household algorithm a caller wants.
// The two algorithms predate this codebase and are intentionally kept
// separate: member import resolves heads by the sequence column, while
// giving attribution falls back to demographics when no sequence data
// exists.
type HeadPolicy string

const (
	HeadPolicySequence     HeadPolicy = "sequence"
	HeadPolicyDemographics HeadPolicy = "demographics"
)

func ParseHeadPolicy(raw string) (HeadPolicy, error) {
	switch HeadPolicy(raw) {
	case HeadPolicySequence, HeadPolicyDemographics:
		return HeadPolicy(raw), nil
	case "":
		return HeadPolicySequence, nil
	default:
		return "", fmt.Errorf("unknown head policy %q", raw)
	}
}

// HeadBySequence picks the first member whose sequence is head_of_house,
// falling back to the first member in encounter order. False only for
// empty input.
func HeadBySequence(members []Member) (Member, bool) {
	if len(members) == 0 {
		return Member{}, false
	}
	for _, m := range members {
		if m.Sequence() == SequenceHeadOfHouse {
			return m, true
		}
	}
	return members[0], true
}

// HeadByDemographics picks the male member with the earliest date of
// birth; males without a birth date sort after those with one. When the
// group has no male member at all, the overall earliest birth date wins.
// All ties, including all-nil birth dates, resolve to input order, so the
// result is deterministic for any fixed input.
func HeadByDemographics(members []Member) (Member, bool) {
	if len(members) == 0 {
		return Member{}, false
	}
	best := -1
	for i, m := range members {
		if m.Sex() != SexMale {
			continue
		}
		if best == -1 || bornBefore(m, members[best]) {
			best = i
		}
	}
	if best >= 0 {
		return members[best], true
	}
	for i, m := range members {
		if best == -1 || bornBefore(m, members[best]) {
			best = i
		}
	}
	return members[best], true
}

// ResolveHead dispatches to the policy's algorithm.
func ResolveHead(policy HeadPolicy, members []Member) (Member, bool) {
	switch policy {
	case HeadPolicyDemographics:
		return HeadByDemographics(members)
	default:
		return HeadBySequence(members)
	}
}

// bornBefore reports whether a's birth date is strictly earlier than
// b's. A nil birth date never wins, so equal dates keep the earlier
// encounter.
func bornBefore(a, b Member) bool {
	ad, bd := a.DateOfBirth(), b.DateOfBirth()
	switch {
	case ad == nil:
		return false
	case bd == nil:
		return true
	default:
		return ad.Before(*bd)
	}
}
