package enums

import "fmt"

// AuditAction identifies which privileged mutation produced an audit entry.
type AuditAction string

const (
	AuditActionRequestApprove  AuditAction = "access_request.approve"
	AuditActionRequestReject   AuditAction = "access_request.reject"
	AuditActionPartnerCreate   AuditAction = "partner.create"
	AuditActionPartnerUpdate   AuditAction = "partner.update"
	AuditActionPartnerDelete   AuditAction = "partner.delete"
	AuditActionPartnerDefault  AuditAction = "partner.set_default"
	AuditActionWhitelistUpload AuditAction = "whitelist.upload"
	AuditActionCatalogSync     AuditAction = "catalog.sync"
)

var validAuditActions = []AuditAction{
	AuditActionRequestApprove,
	AuditActionRequestReject,
	AuditActionPartnerCreate,
	AuditActionPartnerUpdate,
	AuditActionPartnerDelete,
	AuditActionPartnerDefault,
	AuditActionWhitelistUpload,
	AuditActionCatalogSync,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}

// AuditEntityType names the entity an audit entry refers to.
type AuditEntityType string

const (
	AuditEntityAccessRequest AuditEntityType = "access_request"
	AuditEntityPartner       AuditEntityType = "partner"
	AuditEntityWhitelist     AuditEntityType = "whitelist"
)

var validAuditEntityTypes = []AuditEntityType{
	AuditEntityAccessRequest,
	AuditEntityPartner,
	AuditEntityWhitelist,
}

// String implements fmt.Stringer.
func (e AuditEntityType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known AuditEntityType.
func (e AuditEntityType) IsValid() bool {
	for _, candidate := range validAuditEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseAuditEntityType converts raw input into an AuditEntityType.
func ParseAuditEntityType(value string) (AuditEntityType, error) {
	for _, candidate := range validAuditEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit entity type %q", value)
}
