package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/promo-engine/internal/cache"
	"github.com/noah-isme/promo-engine/internal/common"
	"github.com/noah-isme/promo-engine/internal/condition"
	"github.com/noah-isme/promo-engine/internal/repo"
	"github.com/noah-isme/promo-engine/internal/rule"
)

// RuleStore is the persistence surface the admin handlers need.
type RuleStore interface {
	List(ctx context.Context) ([]rule.Rule, error)
	Get(ctx context.Context, id int64) (rule.Rule, error)
	Create(ctx context.Context, in rule.Rule) (rule.Rule, error)
	Update(ctx context.Context, in rule.Rule) (rule.Rule, error)
	Delete(ctx context.Context, id int64) error
}

// AdminHandler manages the promotion rule catalog. Every write invalidates the
// cached active snapshot so the next pricing pass sees fresh rules.
type AdminHandler struct {
	Store    RuleStore
	Cache    *cache.RuleSet
	Validate *validator.Validate
}

type rulePayload struct {
	Name                string          `json:"name" validate:"required"`
	CouponCode          string          `json:"couponCode"`
	CustomerGroupIDs    []int64         `json:"customerGroupIds"`
	FromDate            *time.Time      `json:"fromDate"`
	ToDate              *time.Time      `json:"toDate"`
	SortOrder           int32           `json:"sortOrder"`
	StopRulesProcessing bool            `json:"stopRulesProcessing"`
	Action              string          `json:"action" validate:"required,oneof=by_percent by_fixed cart_fixed buy_x_get_y"`
	DiscountAmount      int64           `json:"discountAmount" validate:"gte=0"`
	DiscountPercentBps  int32           `json:"discountPercentBps" validate:"gte=0,lte=10000"`
	DiscountStep        int32           `json:"discountStep" validate:"gte=0"`
	ApplyToShipping     bool            `json:"applyToShipping"`
	Conditions          *condition.Node `json:"conditions"`
	ActionConditions    *condition.Node `json:"actionConditions"`
	Active              bool            `json:"active"`
}

// ListRules returns the full rule catalog, paginated.
func (h *AdminHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rule store not configured", nil)
		return
	}
	rules, err := h.Store.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list rules", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	start := (page - 1) * perPage
	if start > len(rules) {
		start = len(rules)
	}
	end := start + perPage
	if end > len(rules) {
		end = len(rules)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": rules[start:end],
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: len(rules),
		},
	})
}

// GetRule returns one rule by id.
func (h *AdminHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rule store not configured", nil)
		return
	}
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	out, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrRuleNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "rule not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load rule", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// CreateRule inserts a new promotion rule.
func (h *AdminHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rule store not configured", nil)
		return
	}
	payload, ok := h.decodeRule(w, r)
	if !ok {
		return
	}
	out, err := h.Store.Create(r.Context(), payload.toRule(0))
	if err != nil {
		h.writeRuleError(w, err, "failed to create rule")
		return
	}
	h.invalidate(r.Context())
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

// UpdateRule replaces a rule's definition.
func (h *AdminHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rule store not configured", nil)
		return
	}
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	payload, ok := h.decodeRule(w, r)
	if !ok {
		return
	}
	out, err := h.Store.Update(r.Context(), payload.toRule(id))
	if err != nil {
		h.writeRuleError(w, err, "failed to update rule")
		return
	}
	h.invalidate(r.Context())
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// DeleteRule removes a rule.
func (h *AdminHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rule store not configured", nil)
		return
	}
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		h.writeRuleError(w, err, "failed to delete rule")
		return
	}
	h.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) decodeRule(w http.ResponseWriter, r *http.Request) (rulePayload, bool) {
	var payload rulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return rulePayload{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid rule", validationDetails(err))
			return rulePayload{}, false
		}
	}
	return payload, true
}

func (h *AdminHandler) writeRuleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repo.ErrRuleNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "rule not found", nil)
	case errors.Is(err, repo.ErrDuplicateCoupon):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}

func (h *AdminHandler) invalidate(ctx context.Context) {
	_ = h.Cache.Invalidate(ctx)
}

func ruleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid rule id", nil)
		return 0, false
	}
	return id, true
}

func (p rulePayload) toRule(id int64) rule.Rule {
	out := rule.Rule{
		ID:                  id,
		Name:                p.Name,
		CouponCode:          p.CouponCode,
		CustomerGroupIDs:    p.CustomerGroupIDs,
		FromDate:            p.FromDate,
		ToDate:              p.ToDate,
		SortOrder:           p.SortOrder,
		StopRulesProcessing: p.StopRulesProcessing,
		Action:              rule.Action(p.Action),
		DiscountAmount:      p.DiscountAmount,
		DiscountPercentBps:  p.DiscountPercentBps,
		DiscountStep:        p.DiscountStep,
		ApplyToShipping:     p.ApplyToShipping,
		ActionCondition:     p.ActionConditions,
		Active:              p.Active,
	}
	if p.Conditions != nil {
		out.Condition = *p.Conditions
	}
	return out
}
