package pricing

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/promo-engine/internal/rule"
)

func newTestHandler(rules []rule.Rule) *Handler {
	return &Handler{
		Svc:      &Service{Rules: &stubRules{rules: rules}, Currency: "USD"},
		Validate: validator.New(),
	}
}

func TestPreviewHandler(t *testing.T) {
	handler := newTestHandler([]rule.Rule{
		{ID: 3, Active: true, CouponCode: "HALF", Action: rule.ActionByPercent, DiscountPercentBps: 5000},
	})

	body := map[string]any{
		"couponCode": "HALF",
		"items": []map[string]any{
			{"sku": "sku-a", "unitPrice": 4000, "qty": 1},
			{"sku": "sku-b", "unitPrice": 2000, "qty": 2},
		},
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/preview", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	handler.Preview(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "USD", resp.Data.Currency)
	require.Equal(t, int64(8000), resp.Data.Subtotal)
	require.Equal(t, int64(-4000), resp.Data.DiscountAmount)
	require.Equal(t, int64(4000), resp.Data.GrandTotal)
	require.Equal(t, []int64{3}, resp.Data.AppliedRuleIDs)
	require.Len(t, resp.Data.Items, 2)
}

func TestPreviewHandlerNonMatchingCoupon(t *testing.T) {
	handler := newTestHandler([]rule.Rule{
		{ID: 3, Active: true, CouponCode: "HALF", Action: rule.ActionByPercent, DiscountPercentBps: 5000},
	})

	payload := []byte(`{"items":[{"sku":"sku-a","unitPrice":4000,"qty":1}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/preview", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	handler.Preview(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, int64(0), resp.Data.DiscountAmount)
	require.Empty(t, resp.Data.AppliedRuleIDs)
}

func TestPreviewHandlerRejectsMalformedBody(t *testing.T) {
	handler := newTestHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/preview", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()
	handler.Preview(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPreviewHandlerValidation(t *testing.T) {
	handler := newTestHandler(nil)
	cases := []struct {
		name string
		body string
	}{
		{"no items", `{"items":[]}`},
		{"missing sku", `{"items":[{"unitPrice":100,"qty":1}]}`},
		{"zero qty", `{"items":[{"sku":"a","unitPrice":100,"qty":0}]}`},
		{"negative price", `{"items":[{"sku":"a","unitPrice":-5,"qty":1}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/preview", bytes.NewReader([]byte(tc.body)))
			rr := httptest.NewRecorder()
			handler.Preview(rr, req)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		})
	}
}

func TestPreviewHandlerDefaultsItemID(t *testing.T) {
	handler := newTestHandler(nil)
	payload := []byte(`{"items":[{"sku":"sku-a","unitPrice":1000,"qty":1}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/preview", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	handler.Preview(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "sku-a", resp.Data.Items[0].ID)
}
