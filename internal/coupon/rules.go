package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/ryomiyashita/biyori/internal/models"
)

type evalState struct {
	ctx       context.Context
	evaluator *Evaluator
	req       Request
	coupon    *models.Coupon
	now       time.Time
	weekday   int
	timeOfDay string
}

type rule struct {
	name  string
	check func(*evalState) (*Rejection, error)
}

// rules is evaluated in order and the first rejection wins, so callers get
// the single most relevant error. The coupon lookup itself runs before this
// sequence. Reordering entries changes which error surfaces when several
// checks would fail at once.
var rules = []rule{
	{"active", checkActive},
	{"window_start", checkWindowStart},
	{"window_end", checkWindowEnd},
	{"usage_limit", checkUsageLimit},
	{"customer_limit", checkCustomerLimit},
	{"first_visit_only", checkFirstVisitOnly},
	{"returning_only", checkReturningOnly},
	{"minimum_amount", checkMinimumAmount},
	{"menus", checkMenus},
	{"categories", checkCategories},
	{"weekdays", checkWeekdays},
	{"time_window", checkTimeWindow},
}

func checkActive(st *evalState) (*Rejection, error) {
	if !st.coupon.IsActive {
		return &Rejection{ReasonDisabled, "This coupon is currently disabled."}, nil
	}
	return nil, nil
}

func checkWindowStart(st *evalState) (*Rejection, error) {
	if st.now.Before(st.coupon.ValidFrom) {
		msg := fmt.Sprintf("This coupon is valid from %s.", st.coupon.ValidFrom.Format("2006-01-02"))
		return &Rejection{ReasonNotYetActive, msg}, nil
	}
	return nil, nil
}

func checkWindowEnd(st *evalState) (*Rejection, error) {
	if st.now.After(st.coupon.ValidUntil) {
		return &Rejection{ReasonExpired, "This coupon has expired."}, nil
	}
	return nil, nil
}

func checkUsageLimit(st *evalState) (*Rejection, error) {
	limit := st.coupon.UsageLimit
	if limit != nil && st.coupon.UsageCount >= *limit {
		return &Rejection{ReasonUsageLimitReached, "This coupon has reached its usage limit."}, nil
	}
	return nil, nil
}

func checkCustomerLimit(st *evalState) (*Rejection, error) {
	limit := st.coupon.UsageLimitPerCustomer
	if st.req.CustomerID == nil || limit == nil {
		return nil, nil
	}
	used, err := st.evaluator.store.CustomerUsageCount(st.ctx, st.coupon.ID, *st.req.CustomerID)
	if err != nil {
		return nil, err
	}
	if used >= int64(*limit) {
		return &Rejection{ReasonCustomerLimitReached, "You have already used this coupon the maximum number of times."}, nil
	}
	return nil, nil
}

func checkFirstVisitOnly(st *evalState) (*Rejection, error) {
	if st.req.CustomerID == nil || !st.coupon.OnlyFirstTime {
		return nil, nil
	}
	visits, err := st.evaluator.history.CompletedVisitCount(st.ctx, *st.req.CustomerID)
	if err != nil {
		return nil, err
	}
	if visits != 0 {
		return &Rejection{ReasonFirstVisitOnly, "This coupon is for first-time customers only."}, nil
	}
	return nil, nil
}

func checkReturningOnly(st *evalState) (*Rejection, error) {
	if st.req.CustomerID == nil || !st.coupon.OnlyReturning {
		return nil, nil
	}
	visits, err := st.evaluator.history.CompletedVisitCount(st.ctx, *st.req.CustomerID)
	if err != nil {
		return nil, err
	}
	if visits < 1 {
		return &Rejection{ReasonReturningOnly, "This coupon is for returning customers only."}, nil
	}
	return nil, nil
}

func checkMinimumAmount(st *evalState) (*Rejection, error) {
	minimum := st.coupon.MinimumAmount
	if minimum != nil && st.req.Subtotal < *minimum {
		msg := fmt.Sprintf("A minimum amount of ¥%d is required to use this coupon.", *minimum)
		return &Rejection{ReasonBelowMinimum, msg}, nil
	}
	return nil, nil
}

// Menu and category restrictions are skipped when the request supplies no
// items at all: the POS path validates amount-only before the cart exists,
// while the customer cart path always sends its items.
func checkMenus(st *evalState) (*Rejection, error) {
	if len(st.coupon.ApplicableMenus) == 0 || len(st.req.MenuIDs) == 0 {
		return nil, nil
	}
	eligible := make(map[string]bool, len(st.coupon.ApplicableMenus))
	for _, m := range st.coupon.ApplicableMenus {
		eligible[m.ID.String()] = true
	}
	for _, id := range st.req.MenuIDs {
		if eligible[id.String()] {
			return nil, nil
		}
	}
	return &Rejection{ReasonMenuNotEligible, "This coupon does not apply to the selected menus."}, nil
}

func checkCategories(st *evalState) (*Rejection, error) {
	if len(st.coupon.ApplicableCategories) == 0 || len(st.req.Categories) == 0 {
		return nil, nil
	}
	eligible := make(map[string]bool, len(st.coupon.ApplicableCategories))
	for _, cat := range st.coupon.ApplicableCategories {
		eligible[cat.Name] = true
	}
	for _, name := range st.req.Categories {
		if eligible[name] {
			return nil, nil
		}
	}
	return &Rejection{ReasonCategoryNotEligible, "This coupon does not apply to the selected categories."}, nil
}

func checkWeekdays(st *evalState) (*Rejection, error) {
	days := st.coupon.WeekdayList()
	if len(days) == 0 {
		return nil, nil
	}
	for _, d := range days {
		if d == st.weekday {
			return nil, nil
		}
	}
	return &Rejection{ReasonWeekdayNotEligible, "This coupon cannot be used on this day of the week."}, nil
}

func checkTimeWindow(st *evalState) (*Rejection, error) {
	start, end := st.coupon.StartTime, st.coupon.EndTime
	if start == nil || end == nil || *start == "" || *end == "" {
		return nil, nil
	}
	// Lexical comparison is safe: both sides are fixed-width "HH:MM".
	if st.timeOfDay < *start || st.timeOfDay > *end {
		msg := fmt.Sprintf("This coupon is only valid between %s and %s.", *start, *end)
		return &Rejection{ReasonOutsideTimeWindow, msg}, nil
	}
	return nil, nil
}
