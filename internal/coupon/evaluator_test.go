package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ryomiyashita/biyori/internal/models"
)

type fakeStore struct {
	coupons map[string]*models.Coupon
	usage   map[string]int64
	visits  map[uuid.UUID]int64
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		coupons: make(map[string]*models.Coupon),
		usage:   make(map[string]int64),
		visits:  make(map[uuid.UUID]int64),
	}
}

func (s *fakeStore) add(c *models.Coupon) *models.Coupon {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.coupons[c.Code] = c
	return c
}

func (s *fakeStore) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.coupons[code], nil
}

func (s *fakeStore) CustomerUsageCount(ctx context.Context, couponID, customerID uuid.UUID) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.usage[couponID.String()+customerID.String()], nil
}

func (s *fakeStore) CompletedVisitCount(ctx context.Context, customerID uuid.UUID) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.visits[customerID], nil
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

// Wednesday 2025-06-11 14:30 JST.
var testNow = time.Date(2025, 6, 11, 14, 30, 0, 0, time.FixedZone("JST", 9*3600))

func baseCoupon(code string) *models.Coupon {
	return &models.Coupon{
		Code:       code,
		Name:       "Test coupon",
		Type:       models.CouponTypePercentage,
		Value:      10,
		ValidFrom:  testNow.AddDate(0, -1, 0),
		ValidUntil: testNow.AddDate(0, 1, 0),
		IsActive:   true,
	}
}

func newTestEvaluator(store *fakeStore) *Evaluator {
	return NewEvaluator(store, store, fixedClock{testNow})
}

func intPtr(v int) *int { return &v }

func TestEvaluatePercentageDiscount(t *testing.T) {
	store := newFakeStore()
	store.add(baseCoupon("SUMMER10"))
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "SUMMER10", Subtotal: 5000})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Equal(t, 500, result.Accepted.DiscountAmount)
	assert.Equal(t, "10% OFF: ¥500 discount", result.Accepted.Message)
	assert.Equal(t, "SUMMER10", result.Accepted.Coupon.Code)
}

func TestEvaluateFixedDiscountCappedAtSubtotal(t *testing.T) {
	store := newFakeStore()
	flat := baseCoupon("FLAT500")
	flat.Type = models.CouponTypeFixed
	flat.Value = 500
	store.add(flat)
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "FLAT500", Subtotal: 300})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Equal(t, 300, result.Accepted.DiscountAmount)
	assert.Equal(t, "¥300 discount", result.Accepted.Message)
}

func TestEvaluatePercentageRoundsDown(t *testing.T) {
	store := newFakeStore()
	store.add(baseCoupon("SUMMER10"))
	evaluator := newTestEvaluator(store)

	// floor(999 * 10 / 100) = 99
	result, err := evaluator.Evaluate(context.Background(), Request{Code: "SUMMER10", Subtotal: 999})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Equal(t, 99, result.Accepted.DiscountAmount)
	assert.LessOrEqual(t, result.Accepted.DiscountAmount, 999)
}

func TestEvaluateCodeIsCaseInsensitive(t *testing.T) {
	store := newFakeStore()
	store.add(baseCoupon("SUMMER10"))
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: " summer10 ", Subtotal: 1000})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
}

func TestEvaluateNotFound(t *testing.T) {
	store := newFakeStore()
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "NOPE", Subtotal: 1000})
	assert.NoError(t, err)
	assert.False(t, result.Valid())
	assert.Equal(t, ReasonNotFound, result.Rejected.Reason)
}

func TestEvaluateDisabled(t *testing.T) {
	store := newFakeStore()
	disabled := baseCoupon("OFF")
	disabled.IsActive = false
	store.add(disabled)
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "OFF", Subtotal: 1000})
	assert.NoError(t, err)
	assert.Equal(t, ReasonDisabled, result.Rejected.Reason)
}

func TestEvaluateNotYetActive(t *testing.T) {
	store := newFakeStore()
	future := baseCoupon("SOON")
	future.ValidFrom = testNow.AddDate(0, 0, 7)
	future.ValidUntil = testNow.AddDate(0, 1, 0)
	store.add(future)
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "SOON", Subtotal: 1000})
	assert.NoError(t, err)
	assert.Equal(t, ReasonNotYetActive, result.Rejected.Reason)
	assert.Contains(t, result.Rejected.Message, future.ValidFrom.Format("2006-01-02"))
}

func TestEvaluateExpired(t *testing.T) {
	store := newFakeStore()
	expired := baseCoupon("OLD")
	expired.ValidUntil = testNow.AddDate(0, 0, -1)
	// Other restrictions must not mask the expiry.
	expired.MinimumAmount = intPtr(100000)
	expired.ApplicableWeekdays = "1"
	store.add(expired)
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "OLD", Subtotal: 1000})
	assert.NoError(t, err)
	assert.Equal(t, ReasonExpired, result.Rejected.Reason)
}

func TestEvaluateUsageLimitBoundary(t *testing.T) {
	store := newFakeStore()
	limited := baseCoupon("LIMITED")
	limited.UsageLimit = intPtr(5)
	limited.UsageCount = 5
	store.add(limited)
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "LIMITED", Subtotal: 1000})
	assert.NoError(t, err)
	assert.Equal(t, ReasonUsageLimitReached, result.Rejected.Reason)

	limited.UsageCount = 4
	result, err = evaluator.Evaluate(context.Background(), Request{Code: "LIMITED", Subtotal: 1000})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
}

func TestEvaluatePerCustomerLimit(t *testing.T) {
	store := newFakeStore()
	limited := store.add(func() *models.Coupon {
		c := baseCoupon("ONCE")
		c.UsageLimitPerCustomer = intPtr(1)
		return c
	}())
	customerID := uuid.New()
	store.usage[limited.ID.String()+customerID.String()] = 1
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "ONCE", Subtotal: 1000, CustomerID: &customerID})
	assert.NoError(t, err)
	assert.Equal(t, ReasonCustomerLimitReached, result.Rejected.Reason)

	// Without customer identity the per-customer cap cannot apply.
	result, err = evaluator.Evaluate(context.Background(), Request{Code: "ONCE", Subtotal: 1000})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
}

func TestEvaluateFirstVisitOnly(t *testing.T) {
	store := newFakeStore()
	first := baseCoupon("WELCOME")
	first.OnlyFirstTime = true
	store.add(first)
	returningCustomer := uuid.New()
	store.visits[returningCustomer] = 1
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "WELCOME", Subtotal: 1000, CustomerID: &returningCustomer})
	assert.NoError(t, err)
	assert.Equal(t, ReasonFirstVisitOnly, result.Rejected.Reason)

	newCustomer := uuid.New()
	result, err = evaluator.Evaluate(context.Background(), Request{Code: "WELCOME", Subtotal: 1000, CustomerID: &newCustomer})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
}

func TestEvaluateReturningOnly(t *testing.T) {
	store := newFakeStore()
	returning := baseCoupon("THANKS")
	returning.OnlyReturning = true
	store.add(returning)
	newCustomer := uuid.New()
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "THANKS", Subtotal: 1000, CustomerID: &newCustomer})
	assert.NoError(t, err)
	assert.Equal(t, ReasonReturningOnly, result.Rejected.Reason)

	store.visits[newCustomer] = 2
	result, err = evaluator.Evaluate(context.Background(), Request{Code: "THANKS", Subtotal: 1000, CustomerID: &newCustomer})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
}

func TestEvaluateMinimumAmountInclusive(t *testing.T) {
	store := newFakeStore()
	min := baseCoupon("BIG")
	min.MinimumAmount = intPtr(3000)
	store.add(min)
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "BIG", Subtotal: 2999})
	assert.NoError(t, err)
	assert.Equal(t, ReasonBelowMinimum, result.Rejected.Reason)

	result, err = evaluator.Evaluate(context.Background(), Request{Code: "BIG", Subtotal: 3000})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
}

func TestEvaluateMenuRestriction(t *testing.T) {
	store := newFakeStore()
	cut := models.Menu{ID: uuid.New(), Name: "Cut"}
	perm := models.Menu{ID: uuid.New(), Name: "Perm"}
	restricted := baseCoupon("CUTONLY")
	restricted.ApplicableMenus = []models.Menu{cut}
	store.add(restricted)
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "CUTONLY", Subtotal: 1000, MenuIDs: []uuid.UUID{perm.ID}})
	assert.NoError(t, err)
	assert.Equal(t, ReasonMenuNotEligible, result.Rejected.Reason)

	result, err = evaluator.Evaluate(context.Background(), Request{Code: "CUTONLY", Subtotal: 1000, MenuIDs: []uuid.UUID{perm.ID, cut.ID}})
	assert.NoError(t, err)
	assert.True(t, result.Valid())

	// POS may validate before a cart exists; no menu ids skips the check.
	result, err = evaluator.Evaluate(context.Background(), Request{Code: "CUTONLY", Subtotal: 1000})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
}

func TestEvaluateCategoryRestriction(t *testing.T) {
	store := newFakeStore()
	restricted := baseCoupon("COLORONLY")
	restricted.ApplicableCategories = []models.Category{{ID: uuid.New(), Name: "Color"}}
	store.add(restricted)
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "COLORONLY", Subtotal: 1000, Categories: []string{"Cut"}})
	assert.NoError(t, err)
	assert.Equal(t, ReasonCategoryNotEligible, result.Rejected.Reason)

	result, err = evaluator.Evaluate(context.Background(), Request{Code: "COLORONLY", Subtotal: 1000, Categories: []string{"Cut", "Color"}})
	assert.NoError(t, err)
	assert.True(t, result.Valid())

	result, err = evaluator.Evaluate(context.Background(), Request{Code: "COLORONLY", Subtotal: 1000})
	assert.NoError(t, err)
	assert.True(t, result.Valid())
}

func TestEvaluateWeekdayRestriction(t *testing.T) {
	store := newFakeStore()
	weekdays := baseCoupon("MONTUE")
	weekdays.ApplicableWeekdays = "1,2"
	store.add(weekdays)
	evaluator := newTestEvaluator(store)

	friday := 5
	result, err := evaluator.Evaluate(context.Background(), Request{Code: "MONTUE", Subtotal: 1000, Weekday: &friday})
	assert.NoError(t, err)
	assert.Equal(t, ReasonWeekdayNotEligible, result.Rejected.Reason)

	monday := 1
	result, err = evaluator.Evaluate(context.Background(), Request{Code: "MONTUE", Subtotal: 1000, Weekday: &monday})
	assert.NoError(t, err)
	assert.True(t, result.Valid())

	// testNow is a Wednesday (3), so the clock default also rejects.
	result, err = evaluator.Evaluate(context.Background(), Request{Code: "MONTUE", Subtotal: 1000})
	assert.NoError(t, err)
	assert.Equal(t, ReasonWeekdayNotEligible, result.Rejected.Reason)
}

func TestEvaluateTimeWindowInclusive(t *testing.T) {
	store := newFakeStore()
	window := baseCoupon("MORNING")
	start, end := "09:00", "12:00"
	window.StartTime = &start
	window.EndTime = &end
	store.add(window)
	evaluator := newTestEvaluator(store)

	for timeOfDay, want := range map[string]bool{
		"08:59": false,
		"09:00": true,
		"10:30": true,
		"12:00": true,
		"12:01": false,
	} {
		result, err := evaluator.Evaluate(context.Background(), Request{Code: "MORNING", Subtotal: 1000, TimeOfDay: timeOfDay})
		assert.NoError(t, err)
		assert.Equal(t, want, result.Valid(), "time %s", timeOfDay)
		if !want {
			assert.Equal(t, ReasonOutsideTimeWindow, result.Rejected.Reason)
		}
	}

	// The clock default (14:30) falls outside the window.
	result, err := evaluator.Evaluate(context.Background(), Request{Code: "MORNING", Subtotal: 1000})
	assert.NoError(t, err)
	assert.Equal(t, ReasonOutsideTimeWindow, result.Rejected.Reason)
}

func TestEvaluateCheckOrdering(t *testing.T) {
	store := newFakeStore()
	broken := baseCoupon("BROKEN")
	broken.IsActive = false
	broken.ValidUntil = testNow.AddDate(0, 0, -1)
	broken.MinimumAmount = intPtr(100000)
	broken.ApplicableWeekdays = "0"
	store.add(broken)
	evaluator := newTestEvaluator(store)

	// Several checks would fail; the earliest in the sequence must win.
	result, err := evaluator.Evaluate(context.Background(), Request{Code: "BROKEN", Subtotal: 1000})
	assert.NoError(t, err)
	assert.Equal(t, ReasonDisabled, result.Rejected.Reason)

	broken.IsActive = true
	result, err = evaluator.Evaluate(context.Background(), Request{Code: "BROKEN", Subtotal: 1000})
	assert.NoError(t, err)
	assert.Equal(t, ReasonExpired, result.Rejected.Reason)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.add(baseCoupon("SUMMER10"))
	evaluator := newTestEvaluator(store)

	req := Request{Code: "SUMMER10", Subtotal: 5000}
	first, err := evaluator.Evaluate(context.Background(), req)
	assert.NoError(t, err)
	second, err := evaluator.Evaluate(context.Background(), req)
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 0, store.coupons["SUMMER10"].UsageCount)
}

func TestEvaluateStoreErrorIsNotARejection(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	evaluator := newTestEvaluator(store)

	result, err := evaluator.Evaluate(context.Background(), Request{Code: "SUMMER10", Subtotal: 1000})
	assert.Error(t, err)
	assert.Nil(t, result.Accepted)
	assert.Nil(t, result.Rejected)
}

func TestDiscount(t *testing.T) {
	assert.Equal(t, 500, Discount(models.CouponTypePercentage, 10, 5000))
	assert.Equal(t, 0, Discount(models.CouponTypePercentage, 10, 0))
	assert.Equal(t, 5000, Discount(models.CouponTypePercentage, 100, 5000))
	assert.Equal(t, 500, Discount(models.CouponTypeFixed, 500, 5000))
	assert.Equal(t, 300, Discount(models.CouponTypeFixed, 500, 300))
	assert.Equal(t, 0, Discount("UNKNOWN", 500, 300))
}
