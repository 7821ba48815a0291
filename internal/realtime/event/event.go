// Package event defines the socket event vocabulary shared by the hub,
// the dispatcher and clients. Every event name carries exactly one payload
// type so routing stays exhaustive.
package event

import "encoding/json"

// Client-emitted event names.
const (
	SendMessage      = "sendMessage"
	JoinChat         = "joinChat"
	JoinSubscription = "join:subscription"
	JoinCompany      = "join:company"
	StartInterview   = "start-interview"
	EndInterview     = "end-interview"
	UserLeave        = "user:leave"
	UserInInterview  = "user:in-interview"
)

// Server-emitted event names.
const (
	ReceiveMessage          = "receiveMessage"
	InterviewStarted        = "interview:started"
	InterviewEnd            = "interview:end"
	InterviewEnded          = "interview:ended"
	NotifyNewJob            = "notification:newJob"
	NotifyApplicationStatus = "notification:applicationStatus"
	NotifyNewApplication    = "notification:newApplication"
	NotifyVideoCall         = "notification:videoCall"
	SubscriptionUpdated     = "subscription:updated"
)

// Envelope is the wire frame for every socket message, inbound or outbound.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals a payload into an outbound envelope.
func NewEnvelope(name string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: name, Data: data}, nil
}

// JoinPayload identifies the room target for the join events.
type JoinPayload struct {
	UserID    string `json:"user_id,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
}

// MessagePayload is the client's sendMessage body. The broadcast payload is
// the persisted message, not this struct.
type MessagePayload struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
}

// InterviewStartPayload announces an interview to the applicant.
type InterviewStartPayload struct {
	RoomID        string `json:"roomID"`
	ApplicationID string `json:"applicationId"`
	UserID        string `json:"user_id"`
	CompanyID     string `json:"company_id"`
}

// InterviewEndPayload ends an interview and carries what the outcome
// record needs.
type InterviewEndPayload struct {
	RoomID        string `json:"roomID"`
	ApplicationID string `json:"applicationId"`
	UserID        string `json:"user_id"`
	StartTime     string `json:"startTime"`
}

// LeavePayload removes the sender from a chat room.
type LeavePayload struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
}

// PresencePayload marks the sender as busy in an interview.
type PresencePayload struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	InCall    bool   `json:"in_call"`
}

// SubscriptionUpdateType discriminates subscription:updated payloads.
type SubscriptionUpdateType string

const (
	UpdateNewSubscription       SubscriptionUpdateType = "new_subscription"
	UpdateSubscriptionRenewed   SubscriptionUpdateType = "subscription_renewed"
	UpdateSubscriptionCancelled SubscriptionUpdateType = "subscription_cancelled"
)

// SubscriptionUpdate is pushed into a user's subscription room on every
// lifecycle transition.
type SubscriptionUpdate struct {
	Type     SubscriptionUpdateType `json:"type"`
	UserID   string                 `json:"user_id"`
	PlanID   string                 `json:"plan_id,omitempty"`
	PlanName string                 `json:"plan_name,omitempty"`
	EndDate  string                 `json:"end_date,omitempty"`
}
