package audit

import "time"

// EventType categorizes an audit event
type EventType string

const (
	EventMemberAdd        EventType = "member.add"
	EventMemberRemove     EventType = "member.remove"
	EventMemberRoleChange EventType = "member.role_change"

	EventInvitationCreate EventType = "invitation.create"
	EventInvitationAccept EventType = "invitation.accept"
	EventInvitationRevoke EventType = "invitation.revoke"

	EventFarmCreate EventType = "farm.create"
	EventFarmDelete EventType = "farm.delete"
)

// EventStatus is the recorded outcome
type EventStatus string

const (
	StatusSuccess EventStatus = "success"
	StatusDenied  EventStatus = "denied"
	StatusFailure EventStatus = "failure"
)

// Event is one audit trail entry. TargetUserID is the user acted upon,
// when the action has one; Detail carries free-form context such as the
// assigned role.
type Event struct {
	ID           int64       `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	Type         EventType   `json:"type"`
	Status       EventStatus `json:"status"`
	ActorID      int64       `json:"actor_id"`
	FarmID       int64       `json:"farm_id"`
	TargetUserID *int64      `json:"target_user_id,omitempty"`
	Detail       string      `json:"detail,omitempty"`
	RequestID    string      `json:"request_id,omitempty"`
}
