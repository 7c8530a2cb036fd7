package coupon

import (
	"github.com/google/uuid"
)

// Reason identifies which eligibility check rejected a coupon. The set is
// closed: every value maps to exactly one check in the evaluation sequence.
type Reason string

const (
	ReasonNotFound             Reason = "not_found"
	ReasonDisabled             Reason = "disabled"
	ReasonNotYetActive         Reason = "not_yet_active"
	ReasonExpired              Reason = "expired"
	ReasonUsageLimitReached    Reason = "usage_limit_reached"
	ReasonCustomerLimitReached Reason = "customer_limit_reached"
	ReasonFirstVisitOnly       Reason = "first_visit_only"
	ReasonReturningOnly        Reason = "returning_only"
	ReasonBelowMinimum         Reason = "below_minimum"
	ReasonMenuNotEligible      Reason = "menu_not_eligible"
	ReasonCategoryNotEligible  Reason = "category_not_eligible"
	ReasonWeekdayNotEligible   Reason = "weekday_not_eligible"
	ReasonOutsideTimeWindow    Reason = "outside_time_window"
)

// Summary is the public slice of a coupon returned to callers on acceptance.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Value       int       `json:"value"`
	Description *string   `json:"description,omitempty"`
}

type Acceptance struct {
	Coupon         Summary `json:"coupon"`
	DiscountAmount int     `json:"discount_amount"`
	Message        string  `json:"message"`
}

type Rejection struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// Result is a tagged union: exactly one of Accepted or Rejected is non-nil.
// Callers must branch on Valid before reading either side.
type Result struct {
	Accepted *Acceptance
	Rejected *Rejection
}

func (r Result) Valid() bool {
	return r.Accepted != nil
}

func reject(reason Reason, message string) Result {
	return Result{Rejected: &Rejection{Reason: reason, Message: message}}
}
