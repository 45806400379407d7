package team

import "fmt"

// CheckInvariants verifies the membership rules that must hold for every
// persisted team:
//
//   - members has no duplicates and fits in maxSize
//   - joinRequests has no duplicates and shares no id with members
//   - the owner is a member and never a requester
func CheckInvariants(t *Team) error {
	if t.MaxSize < MinMaxSize {
		return fmt.Errorf("%w: maxSize %d below %d", ErrInvariantViolation, t.MaxSize, MinMaxSize)
	}
	if len(t.Members) > t.MaxSize {
		return fmt.Errorf("%w: %d members exceed maxSize %d", ErrInvariantViolation, len(t.Members), t.MaxSize)
	}

	members := make(map[string]struct{}, len(t.Members))
	for _, id := range t.Members {
		if _, dup := members[id]; dup {
			return fmt.Errorf("%w: duplicate member %q", ErrInvariantViolation, id)
		}
		members[id] = struct{}{}
	}

	requests := make(map[string]struct{}, len(t.JoinRequests))
	for _, id := range t.JoinRequests {
		if _, dup := requests[id]; dup {
			return fmt.Errorf("%w: duplicate join request %q", ErrInvariantViolation, id)
		}
		if _, ok := members[id]; ok {
			return fmt.Errorf("%w: %q is both member and requester", ErrInvariantViolation, id)
		}
		requests[id] = struct{}{}
	}

	if _, ok := members[t.CreatedBy]; !ok {
		return fmt.Errorf("%w: owner %q is not a member", ErrInvariantViolation, t.CreatedBy)
	}
	return nil
}
