package model

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending       BookingStatus = "pending"
	StatusConfirmed     BookingStatus = "confirmed"
	StatusRescheduled   BookingStatus = "rescheduled"
	StatusCompleted     BookingStatus = "completed"
	StatusCancelledUser BookingStatus = "cancelled_user"
	StatusCancelledHost BookingStatus = "cancelled_host"
)

var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:     {StatusConfirmed, StatusCancelledUser, StatusCancelledHost},
	StatusConfirmed:   {StatusCompleted, StatusCancelledUser, StatusCancelledHost, StatusRescheduled},
	StatusRescheduled: {StatusCompleted, StatusCancelledUser, StatusCancelledHost, StatusRescheduled},
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRescheduled,
		StatusCompleted, StatusCancelledUser, StatusCancelledHost:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelledUser || s == StatusCancelledHost
}

// IsCancelled reports whether s is one of the cancellation states.
func (s BookingStatus) IsCancelled() bool {
	return s == StatusCancelledUser || s == StatusCancelledHost
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// CancelledBy returns the cancellation status recorded for actor.
func CancelledBy(actor Actor) BookingStatus {
	if actor == ActorHost {
		return StatusCancelledHost
	}
	return StatusCancelledUser
}
