package domain

import "time"

// BookingStatus represents the lifecycle state of a booking request.
type BookingStatus string

const (
	StatusPendingManager    BookingStatus = "pending_manager"
	StatusRejectedByManager BookingStatus = "rejected_by_manager"
	StatusPendingAdmin      BookingStatus = "pending_admin"
	StatusRejectedByAdmin   BookingStatus = "rejected_by_admin"
	StatusApproved          BookingStatus = "approved"
)

// DateLayout is the wire and storage format of BookingRequest.BookingDate.
const DateLayout = "2006-01-02"

// validTransitions defines the allowed state machine transitions.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPendingManager: {StatusPendingAdmin, StatusRejectedByManager},
	StatusPendingAdmin:   {StatusApproved, StatusRejectedByAdmin},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Decision is the action a reviewer takes on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision accepts only "approve" and "reject".
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject:
		return Decision(s), nil
	default:
		return "", ErrInvalidAction
	}
}

// Stage is one step of the approval chain: who may act, on which status,
// and where each decision leads.
type Stage struct {
	Name      string
	Actor     Role
	From      BookingStatus
	OnApprove BookingStatus
	OnReject  BookingStatus
}

var (
	ManagerStage = Stage{
		Name:      "manager",
		Actor:     RoleTeamManager,
		From:      StatusPendingManager,
		OnApprove: StatusPendingAdmin,
		OnReject:  StatusRejectedByManager,
	}
	AdminStage = Stage{
		Name:      "admin",
		Actor:     RoleAdmin,
		From:      StatusPendingAdmin,
		OnApprove: StatusApproved,
		OnReject:  StatusRejectedByAdmin,
	}
)

// Next returns the status a decision moves the request to.
func (s Stage) Next(d Decision) BookingStatus {
	if d == DecisionApprove {
		return s.OnApprove
	}
	return s.OnReject
}

// BookingRequest is the core aggregate root.
type BookingRequest struct {
	ID              string
	EmployeeID      string
	BookingDate     time.Time
	Status          BookingStatus
	CreatedAt       time.Time
	ManagerActionAt *time.Time
	AdminActionAt   *time.Time
}

// BookingView is a booking request joined with its employee's username.
type BookingView struct {
	BookingRequest
	EmployeeName string
}

// Transition describes a single conditional status change.
type Transition struct {
	ID    string
	Stage Stage
	To    BookingStatus
	At    time.Time
}
