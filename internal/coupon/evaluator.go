package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ryomiyashita/biyori/internal/models"
)

// Store looks up coupons and per-customer usage counts. FindByCode receives
// the already-uppercased code and returns (nil, nil) when no coupon exists.
type Store interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	CustomerUsageCount(ctx context.Context, couponID, customerID uuid.UUID) (int64, error)
}

// VisitHistory reports how many completed transactions a customer has, which
// drives the first-time / returning restrictions.
type VisitHistory interface {
	CompletedVisitCount(ctx context.Context, customerID uuid.UUID) (int64, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Request carries the order context a coupon is evaluated against. Optional
// fields that are absent simply skip the checks that need them: the POS path
// may omit everything but code and subtotal, the customer cart path supplies
// the full context.
type Request struct {
	Code       string
	Subtotal   int
	CustomerID *uuid.UUID
	MenuIDs    []uuid.UUID
	Categories []string
	Weekday    *int   // 0=Sunday..6=Saturday; defaults to the clock's weekday
	TimeOfDay  string // "HH:MM"; defaults to the clock's time
}

// Evaluator runs the ordered eligibility checks and computes the discount.
// It never writes: redemption bookkeeping belongs to the checkout caller
// (see Redeem), so Evaluate may be called repeatedly as a cart changes.
type Evaluator struct {
	store   Store
	history VisitHistory
	clock   Clock
}

func NewEvaluator(store Store, history VisitHistory, clock Clock) *Evaluator {
	if clock == nil {
		clock = systemClock{}
	}
	return &Evaluator{store: store, history: history, clock: clock}
}

// Evaluate returns a business Result for the request. The error return is
// reserved for infrastructure failures (store unreachable, bad stored data);
// an ineligible coupon is a Result with Rejected set, never an error.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (Result, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return reject(ReasonNotFound, "Coupon not found."), nil
	}

	found, err := e.store.FindByCode(ctx, code)
	if err != nil {
		return Result{}, fmt.Errorf("look up coupon %q: %w", code, err)
	}
	if found == nil {
		return reject(ReasonNotFound, "Coupon not found."), nil
	}

	now := e.clock.Now()
	st := &evalState{
		ctx:       ctx,
		evaluator: e,
		req:       req,
		coupon:    found,
		now:       now,
		weekday:   int(now.Weekday()),
		timeOfDay: now.Format("15:04"),
	}
	if req.Weekday != nil && *req.Weekday >= 0 && *req.Weekday <= 6 {
		st.weekday = *req.Weekday
	}
	if req.TimeOfDay != "" {
		st.timeOfDay = req.TimeOfDay
	}

	for _, r := range rules {
		rejection, err := r.check(st)
		if err != nil {
			return Result{}, fmt.Errorf("%s check for coupon %q: %w", r.name, code, err)
		}
		if rejection != nil {
			return Result{Rejected: rejection}, nil
		}
	}

	amount := Discount(found.Type, found.Value, req.Subtotal)
	return Result{Accepted: &Acceptance{
		Coupon: Summary{
			ID:          found.ID,
			Code:        found.Code,
			Name:        found.Name,
			Type:        found.Type,
			Value:       found.Value,
			Description: found.Description,
		},
		DiscountAmount: amount,
		Message:        successMessage(found.Type, found.Value, amount),
	}}, nil
}

// Discount computes the discount amount in yen. Percentage discounts round
// down; fixed discounts are capped at the subtotal so the net total never
// goes negative.
func Discount(couponType string, value, subtotal int) int {
	switch couponType {
	case models.CouponTypePercentage:
		return subtotal * value / 100
	case models.CouponTypeFixed:
		if value > subtotal {
			return subtotal
		}
		return value
	}
	return 0
}

func successMessage(couponType string, value, amount int) string {
	if couponType == models.CouponTypePercentage {
		return fmt.Sprintf("%d%% OFF: ¥%d discount", value, amount)
	}
	return fmt.Sprintf("¥%d discount", amount)
}
