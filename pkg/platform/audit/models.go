package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "custody/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so stores and
// sinks can route and retain them differently.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: customer
	// lifecycle, limit decisions, executed value movements.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events that need alerting: pauses, reserve breaches,
	// failed or expired operations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine ledger activity.
	CategoryOperations EventCategory = "operations"
)

// EventType names an append-only compliance event.
type EventType string

const (
	// KYC registry
	EventCustomerRegistered          EventType = "customer_registered"
	EventTierUpdated                 EventType = "tier_updated"
	EventApprovalChanged             EventType = "approval_changed"
	EventEnhancedVerificationGranted EventType = "enhanced_verification_granted"
	EventEnhancedVerificationRevoked EventType = "enhanced_verification_revoked"
	EventEnhancedVerificationApplied EventType = "enhanced_verification_applied"
	EventComplianceViolation         EventType = "compliance_violation"

	// Compliance enforcer
	EventLimitViolation EventType = "limit_violation"
	EventLimitWarning   EventType = "limit_warning"

	// Reserve manager
	EventReserveDepositRegistered    EventType = "reserve_deposit_registered"
	EventReserveWithdrawalRegistered EventType = "reserve_withdrawal_registered"
	EventReserveThresholdBreached    EventType = "reserve_threshold_breached"
	EventProofOfReservesGenerated    EventType = "proof_of_reserves_generated"

	// Integration router
	EventBitcoinDepositExecuted     EventType = "bitcoin_deposit_executed"
	EventTokenWithdrawalExecuted    EventType = "token_withdrawal_executed"
	EventCrossTokenExchangeExecuted EventType = "cross_token_exchange_executed"
	EventOperationFailed            EventType = "operation_failed"
	EventPendingStepResolved        EventType = "pending_step_resolved"
	EventOperationExpired           EventType = "operation_expired"
	EventSystemPaused               EventType = "system_paused"
	EventSystemResumed              EventType = "system_resumed"
)

var eventCategories = map[EventType]EventCategory{
	EventCustomerRegistered:          CategoryCompliance,
	EventTierUpdated:                 CategoryCompliance,
	EventApprovalChanged:             CategoryCompliance,
	EventEnhancedVerificationGranted: CategoryCompliance,
	EventEnhancedVerificationRevoked: CategoryCompliance,
	EventEnhancedVerificationApplied: CategoryCompliance,
	EventComplianceViolation:         CategoryCompliance,
	EventLimitViolation:              CategoryCompliance,
	EventLimitWarning:                CategoryCompliance,
	EventBitcoinDepositExecuted:      CategoryCompliance,
	EventTokenWithdrawalExecuted:     CategoryCompliance,
	EventCrossTokenExchangeExecuted:  CategoryCompliance,

	EventReserveThresholdBreached: CategorySecurity,
	EventOperationFailed:          CategorySecurity,
	EventOperationExpired:         CategorySecurity,
	EventPendingStepResolved:      CategorySecurity,
	EventSystemPaused:             CategorySecurity,
	EventSystemResumed:            CategorySecurity,
}

// Category returns the EventCategory for this event type.
// Unknown types default to CategoryOperations.
func (t EventType) Category() EventCategory {
	if cat, ok := eventCategories[t]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is an append-only compliance record. Account is empty for system-wide
// events such as pauses and reserve breaches.
type Event struct {
	ID          uuid.UUID
	Category    EventCategory
	Type        EventType
	Account     id.AccountID
	Detail      string
	OperationID string
	ActorID     string
	RequestID   string
	Timestamp   time.Time
}

// Store persists compliance events. Implementations must never update or delete.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, account id.AccountID) ([]Event, error)
	ListByTypes(ctx context.Context, types []EventType, limit int) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Emitter is the write side used by services.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
