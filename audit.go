package authkit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEventType classifies audit events. Sinks filter on it; the values
// are stable and safe to persist.
type AuditEventType string

const (
	AuditIssueSuccess   AuditEventType = "issue_success"
	AuditIssueFailure   AuditEventType = "issue_failure"
	AuditRotateSuccess  AuditEventType = "rotate_success"
	AuditRotateInvalid  AuditEventType = "rotate_invalid"
	// AuditRotateReuse marks presentation of an already-spent refresh
	// credential, the strongest theft signal the engine produces. Sinks
	// doing containment key off this event's IdentityID.
	AuditRotateReuse    AuditEventType = "rotate_reuse_detected"
	AuditRevokeOne      AuditEventType = "revoke_one"
	AuditRevokeAll      AuditEventType = "revoke_all"
	AuditValidateFailed AuditEventType = "validate_failure"
)

// AuditEvent records one security-relevant engine operation.
type AuditEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  AuditEventType    `json:"event_type"`
	IdentityID string            `json:"identity_id,omitempty"`
	RecordID   string            `json:"record_id,omitempty"`
	IP         string            `json:"ip,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives emitted audit events.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
