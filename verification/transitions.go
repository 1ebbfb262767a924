package verification

import (
	"fmt"

	"shodesh/event"
)

// adminDecision computes the outcome of an admin action against the current
// event state. It is pure: callers hold the row lock and apply the result.
func adminDecision(st EventState, action AdminAction) (Decision, error) {
	switch action {
	case AdminApprove:
		if st.Status == event.StatusUnverified {
			return Decision{Status: event.StatusVerified}, nil
		}
		if st.Status == event.StatusPending && !st.SecondVerificationRequired {
			return Decision{Status: event.StatusVerified}, nil
		}
		if st.Status == event.StatusPending {
			return Decision{}, fmt.Errorf("%w: approve while awaiting staff review", ErrInvalidTransition)
		}
		return Decision{}, fmt.Errorf("%w: approve from %s", ErrInvalidTransition, st.Status)

	case AdminReject:
		if st.Status == event.StatusUnverified {
			return Decision{Status: event.StatusRejected}, nil
		}
		if st.Status == event.StatusPending && !st.SecondVerificationRequired {
			return Decision{Status: event.StatusRejected}, nil
		}
		if st.Status == event.StatusPending {
			return Decision{}, fmt.Errorf("%w: reject while awaiting staff review", ErrInvalidTransition)
		}
		return Decision{}, fmt.Errorf("%w: reject from %s", ErrInvalidTransition, st.Status)

	case AdminRequestStaff:
		if st.Status != event.StatusUnverified {
			return Decision{}, fmt.Errorf("%w: request staff from %s", ErrInvalidTransition, st.Status)
		}
		if st.CreatorType != event.CreatorIndividual {
			return Decision{}, fmt.Errorf("%w: staff review only applies to individual creators", ErrInvalidTransition)
		}
		return Decision{Status: event.StatusPending, SecondVerificationRequired: true}, nil

	default:
		return Decision{}, fmt.Errorf("%w: unknown admin action %q", ErrInvalidTransition, action)
	}
}

// staffDecision computes the outcome of a staff action. The caller has already
// verified the actor holds the active assignment.
func staffDecision(st EventState, action StaffAction) (Decision, error) {
	if st.Status != event.StatusPending || !st.SecondVerificationRequired {
		return Decision{}, fmt.Errorf("%w: staff %s from %s", ErrInvalidTransition, action, st.Status)
	}

	switch action {
	case StaffApprove:
		// Back to the admin for final disposition.
		return Decision{Status: event.StatusPending, SecondVerificationRequired: false}, nil
	case StaffReject:
		return Decision{Status: event.StatusRejected, SecondVerificationRequired: false}, nil
	default:
		return Decision{}, fmt.Errorf("%w: unknown staff action %q", ErrInvalidTransition, action)
	}
}

// canAssignStaff guards the assign-staff operation, which keeps the event state
// unchanged but requires the delegated stage to be open.
func canAssignStaff(st EventState) error {
	if st.Status != event.StatusPending || !st.SecondVerificationRequired {
		return fmt.Errorf("%w: assign staff from %s", ErrInvalidTransition, st.Status)
	}
	return nil
}
