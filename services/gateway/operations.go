package gateway

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Ashwin12159/Control-Plane/services"
)

// Request is the typed inbound payload of an operation
type Request interface {
	// Backend returns the message sent to the backend method
	Backend() interface{}
	// AuditPayload returns the request snapshot written to the audit log
	AuditPayload() interface{}
}

// checker is implemented by requests with rules struct tags cannot express
type checker interface {
	Check() error
}

// Response is a typed backend response
type Response interface {
	status() *Status
}

// Status is the outcome every backend response carries
type Status struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Status) status() *Status { return s }

// RabbitMQ

// PushQueueRequest publishes a message to a queue.
// payloadJson may be sent as a string or as any JSON value.
type PushQueueRequest struct {
	QueueName   string          `json:"queueName"`
	PayloadJSON json.RawMessage `json:"payloadJson"`
}

// Check requires both fields
func (r *PushQueueRequest) Check() error {
	if strings.TrimSpace(r.QueueName) == "" || !hasPayload(r.PayloadJSON) {
		return services.NewValidationError("queueName and payloadJson are required")
	}
	return nil
}

// Backend maps to the PushToRabbitMQQueue message
func (r *PushQueueRequest) Backend() interface{} {
	return &pushQueueMessage{QueueName: r.QueueName, PayloadJSON: payloadString(r.PayloadJSON)}
}

// AuditPayload records the queue and the serialized payload
func (r *PushQueueRequest) AuditPayload() interface{} {
	return r.Backend()
}

type pushQueueMessage struct {
	QueueName   string `json:"queueName"`
	PayloadJSON string `json:"payloadJson"`
}

// BroadcastExchangeRequest publishes a message to an exchange
type BroadcastExchangeRequest struct {
	ExchangeName string          `json:"exchangeName"`
	PayloadJSON  json.RawMessage `json:"payloadJson"`
}

// Check requires both fields
func (r *BroadcastExchangeRequest) Check() error {
	if strings.TrimSpace(r.ExchangeName) == "" || !hasPayload(r.PayloadJSON) {
		return services.NewValidationError("exchangeName and payloadJson are required")
	}
	return nil
}

// Backend maps to the BroadcastToRabbitMQExchange message
func (r *BroadcastExchangeRequest) Backend() interface{} {
	return &broadcastMessage{ExchangeName: r.ExchangeName, PayloadJSON: payloadString(r.PayloadJSON)}
}

// AuditPayload records the exchange and the serialized payload
func (r *BroadcastExchangeRequest) AuditPayload() interface{} {
	return r.Backend()
}

type broadcastMessage struct {
	ExchangeName string `json:"exchangeName"`
	PayloadJSON  string `json:"payloadJson"`
}

// PushResponse is returned by both RabbitMQ operations
type PushResponse struct {
	Status
	QueueOrExchange string `json:"queueOrExchange,omitempty"`
}

// hasPayload reports whether a raw payload carries something other than null or ""
func hasPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return false
		}
		return s != ""
	}
	return true
}

// payloadString returns a string payload as is and re-serializes any other JSON value
func payloadString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

// Sync checks

// CheckSyncRequest compares one target against Bifrost
type CheckSyncRequest struct {
	CheckType CheckType `json:"checkType"`
}

// CheckType selects exactly one sync target
type CheckType struct {
	Device     *DeviceCheck     `json:"device,omitempty"`
	Location   *LocationCheck   `json:"location,omitempty"`
	Practice   *PracticeCheck   `json:"practice,omitempty"`
	AllBifrost *AllBifrostCheck `json:"allBifrost,omitempty"`
}

// DeviceCheck targets a single handset
type DeviceCheck struct {
	DeviceMake string `json:"deviceMake" validate:"required,oneof=Yealink Polycom"`
	SipAccount string `json:"sipAccount" validate:"required"`
}

// LocationCheck targets a location
type LocationCheck struct {
	LocationID string `json:"locationId" validate:"required"`
}

// PracticeCheck targets a practice
type PracticeCheck struct {
	PracticeID string `json:"practiceId" validate:"required"`
}

// AllBifrostCheck runs a full sweep and must be confirmed
type AllBifrostCheck struct {
	Confirm bool `json:"confirm" validate:"eq=true"`
}

// Check enforces a single target
func (r *CheckSyncRequest) Check() error {
	set := 0
	for _, present := range []bool{
		r.CheckType.Device != nil,
		r.CheckType.Location != nil,
		r.CheckType.Practice != nil,
		r.CheckType.AllBifrost != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return services.NewValidationError("checkType must contain exactly one of device, location, practice or allBifrost")
	}
	return nil
}

// Backend flattens the check type into the CheckSync message
func (r *CheckSyncRequest) Backend() interface{} {
	return &checkSyncMessage{
		Device:     r.CheckType.Device,
		Location:   r.CheckType.Location,
		Practice:   r.CheckType.Practice,
		AllBifrost: r.CheckType.AllBifrost,
	}
}

// AuditPayload records the check type
func (r *CheckSyncRequest) AuditPayload() interface{} {
	return r
}

type checkSyncMessage struct {
	Device     *DeviceCheck     `json:"device,omitempty"`
	Location   *LocationCheck   `json:"location,omitempty"`
	Practice   *PracticeCheck   `json:"practice,omitempty"`
	AllBifrost *AllBifrostCheck `json:"allBifrost,omitempty"`
}

// CheckSyncResponse lists one result per checked identifier
type CheckSyncResponse struct {
	Status
	Results []SyncResult `json:"results"`
}

// SyncResult is the sync state of one identifier
type SyncResult struct {
	Identifier string `json:"identifier"`
	InSync     bool   `json:"inSync"`
	Details    string `json:"details"`
}

// Numbers

// NumbersNotInBifrostRequest lists trunk numbers unknown to Bifrost
type NumbersNotInBifrostRequest struct {
	TrunkSid string `json:"trunkSid" validate:"required"`
}

func (r *NumbersNotInBifrostRequest) Backend() interface{}      { return r }
func (r *NumbersNotInBifrostRequest) AuditPayload() interface{} { return r }

// NumbersNotInNumberCacheRequest takes no parameters
type NumbersNotInNumberCacheRequest struct{}

func (r *NumbersNotInNumberCacheRequest) Backend() interface{}      { return r }
func (r *NumbersNotInNumberCacheRequest) AuditPayload() interface{} { return r }

// NumbersResponse groups phone numbers by practice
type NumbersResponse struct {
	Status
	PracticeNumbers map[string]PhoneNumberList `json:"practiceNumbers"`
}

// PhoneNumberList is the numbers of one practice
type PhoneNumberList struct {
	PhoneNumbers []string `json:"phoneNumbers"`
}

// Signed URLs

// GenerateSignedURLRequest signs a storage URL
type GenerateSignedURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

func (r *GenerateSignedURLRequest) Backend() interface{}      { return r }
func (r *GenerateSignedURLRequest) AuditPayload() interface{} { return r }

// GenerateSignedURLResponse carries the signed URL and its lifetime in seconds
type GenerateSignedURLResponse struct {
	Status
	SignedURL string `json:"signedUrl"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Practices

// ListPracticesRequest takes no parameters
type ListPracticesRequest struct{}

func (r *ListPracticesRequest) Backend() interface{}      { return r }
func (r *ListPracticesRequest) AuditPayload() interface{} { return r }

// ListPracticesResponse lists active practices
type ListPracticesResponse struct {
	Status
	Practices []Practice `json:"practices"`
}

// Practice is a practice id and name
type Practice struct {
	PracticeID   string `json:"practiceId"`
	PracticeName string `json:"practiceName"`
}

// Call details

// GetCallDetailsRequest looks up one call in a practice
type GetCallDetailsRequest struct {
	PracticeID string `json:"practiceId" validate:"required"`
	CallID     string `json:"callId" validate:"required"`
}

func (r *GetCallDetailsRequest) Backend() interface{}      { return r }
func (r *GetCallDetailsRequest) AuditPayload() interface{} { return r }

// GetCallDetailsResponse carries the call summary and flow
type GetCallDetailsResponse struct {
	Status
	CallDetails *CallDetails `json:"callDetails,omitempty"`
}

// CallDetails is a call summary. Times are ISO 8601.
type CallDetails struct {
	GrafanaURL           string    `json:"grafanaUrl,omitempty"`
	CallID               string    `json:"callId"`
	PracticeID           string    `json:"practiceId"`
	CallTime             string    `json:"callTime"`
	ConversationDuration int64     `json:"conversationDuration"`
	CallerNumber         string    `json:"callerNumber"`
	CalleeNumber         string    `json:"calleeNumber"`
	CallDirection        string    `json:"callDirection"`
	Voicemail            bool      `json:"voicemail"`
	RecordingURL         string    `json:"recordingUrl"`
	CallEndTime          string    `json:"callEndTime"`
	CallFlow             *CallFlow `json:"callFlow,omitempty"`
}

// CallFlow is the ordered event trail of a call
type CallFlow struct {
	CallID      string          `json:"callId"`
	PhoneNumber string          `json:"phoneNumber"`
	Events      []CallFlowEvent `json:"events"`
}

// CallFlowEvent is one step of a call flow
type CallFlowEvent struct {
	Action     string            `json:"action"`
	Timestamp  string            `json:"timestamp"`
	Arguments  map[string]string `json:"arguments"`
	IsCampaign *bool             `json:"isCampaign,omitempty"`
}

// GetCompleteCallDetailsRequest exports the raw call documents
type GetCompleteCallDetailsRequest struct {
	CallID     string `json:"callId" validate:"required"`
	PracticeID string `json:"practiceId,omitempty"`
}

func (r *GetCompleteCallDetailsRequest) Backend() interface{}      { return r }
func (r *GetCompleteCallDetailsRequest) AuditPayload() interface{} { return r }

// GetCompleteCallDetailsResponse carries the raw call documents
type GetCompleteCallDetailsResponse struct {
	Status
	CallDetails *CompleteCallDetails `json:"callDetails,omitempty"`
}

// CompleteCallDetails holds the call history and lifecycle documents as JSON text
type CompleteCallDetails struct {
	CallID            string `json:"callId"`
	PracticeID        string `json:"practiceId"`
	CallHistoryJSON   string `json:"callHistoryJson"`
	CallLifecycleJSON string `json:"callLifecycleJson"`
	HasCallHistory    bool   `json:"hasCallHistory"`
	HasCallLifecycle  bool   `json:"hasCallLifecycle"`
}
