package audit

import (
	"time"

	"veritasor/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: issuance, redemptions, defaults.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: rejected redemptions, authorization failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and
	// operational visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory   `json:"category"`
	Timestamp time.Time       `json:"timestamp"`
	BondID    domain.BondID   `json:"bond_id"`
	Action    string          `json:"action"`
	Period    string          `json:"period,omitempty"`
	Amount    int64           `json:"amount,omitempty"`
	Actor     domain.Identity `json:"actor,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventAdminInitialized   AuditEvent = "admin_initialized"
	EventBondIssued         AuditEvent = "bond_issued"
	EventBondRedeemed       AuditEvent = "bond_redeemed"
	EventRedemptionRejected AuditEvent = "redemption_rejected"
	EventOwnershipTransfer  AuditEvent = "ownership_transferred"
	EventBondDefaulted      AuditEvent = "bond_defaulted"
	EventBondFullyRedeemed  AuditEvent = "bond_fully_redeemed"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - the financial record
	EventBondIssued:        CategoryCompliance,
	EventBondRedeemed:      CategoryCompliance,
	EventBondDefaulted:     CategoryCompliance,
	EventBondFullyRedeemed: CategoryCompliance,
	EventOwnershipTransfer: CategoryCompliance,

	// Security events - rejections are the fraud signal
	EventRedemptionRejected: CategorySecurity,

	// Operations events
	EventAdminInitialized: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
