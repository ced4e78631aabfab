package pricing

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/promo-engine/internal/common"
	"github.com/noah-isme/promo-engine/internal/obs"
	"github.com/noah-isme/promo-engine/internal/quote"
)

// Handler exposes the public pricing preview endpoint.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type previewRequest struct {
	QuoteID         string        `json:"quoteId"`
	CouponCode      string        `json:"couponCode"`
	CustomerGroupID int64         `json:"customerGroupId"`
	ShippingAmount  int64         `json:"shippingAmount" validate:"gte=0"`
	Items           []previewItem `json:"items" validate:"required,min=1,dive"`
}

type previewItem struct {
	ID          string            `json:"id"`
	SKU         string            `json:"sku" validate:"required"`
	UnitPrice   int64             `json:"unitPrice" validate:"gte=0"`
	Qty         int32             `json:"qty" validate:"gt=0"`
	CategoryIDs []string          `json:"categoryIds"`
	Attributes  map[string]string `json:"attributes"`
	Children    []previewItem     `json:"children" validate:"dive"`
}

// Preview prices a submitted quote against the active rule set without
// persisting anything.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing service not configured", nil)
		return
	}
	var payload previewRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		observePreview("bad_request")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			observePreview("bad_request")
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid quote", validationDetails(err))
			return
		}
	}
	q := buildQuote(payload)
	result, err := h.Svc.PriceQuote(r.Context(), q)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			observePreview("bad_request")
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		observePreview("error")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing failed", nil)
		return
	}
	observePreview("ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func observePreview(result string) {
	if obs.PricingPreviewTotal != nil {
		obs.PricingPreviewTotal.WithLabelValues(result).Inc()
	}
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, map[string]string{
			"field": fe.Namespace(),
			"rule":  fe.Tag(),
		})
	}
	return details
}

func buildQuote(in previewRequest) *quote.Quote {
	q := &quote.Quote{
		CouponCode:      in.CouponCode,
		CustomerGroupID: in.CustomerGroupID,
		ShippingAddress: &quote.Address{ShippingAmount: in.ShippingAmount},
	}
	if id, err := uuid.Parse(in.QuoteID); err == nil {
		q.ID = id
	} else {
		q.ID = uuid.New()
	}
	q.Items = make([]*quote.Item, 0, len(in.Items))
	for _, it := range in.Items {
		q.Items = append(q.Items, buildItem(it))
	}
	return q
}

func buildItem(in previewItem) *quote.Item {
	item := &quote.Item{
		ID:          in.ID,
		SKU:         in.SKU,
		UnitPrice:   in.UnitPrice,
		Qty:         in.Qty,
		CategoryIDs: in.CategoryIDs,
		Attributes:  in.Attributes,
	}
	if item.ID == "" {
		item.ID = in.SKU
	}
	for _, child := range in.Children {
		item.Children = append(item.Children, buildItem(child))
	}
	return item
}
