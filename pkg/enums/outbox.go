package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateAccessRequest OutboxAggregateType = "access_request"
	AggregatePartner       OutboxAggregateType = "partner"
	AggregateAuditEntry    OutboxAggregateType = "audit_entry"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateAccessRequest,
	AggregatePartner,
	AggregateAuditEntry,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventAccessRequestCreated  OutboxEventType = "access_request_created"
	EventAccessRequestApproved OutboxEventType = "access_request_approved"
	EventAccessRequestRejected OutboxEventType = "access_request_rejected"
	EventPartnerDefaultChanged OutboxEventType = "partner_default_changed"
	EventAuditEntryRecorded    OutboxEventType = "audit_entry_recorded"
	EventWhitelistUploaded     OutboxEventType = "whitelist_uploaded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventAccessRequestCreated,
	EventAccessRequestApproved,
	EventAccessRequestRejected,
	EventPartnerDefaultChanged,
	EventAuditEntryRecorded,
	EventWhitelistUploaded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
