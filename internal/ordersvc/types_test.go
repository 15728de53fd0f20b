package ordersvc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hvacdirectapp/hvacdirect/internal/models"
)

func TestDecodeOrderUnion(t *testing.T) {
	t.Parallel()

	t.Run("order payload", func(t *testing.T) {
		t.Parallel()

		raw := json.RawMessage(`{
			"__typename": "Order",
			"id": "42",
			"code": "HV1042",
			"state": "ArrangingPayment",
			"customerEmail": "ana@example.com",
			"subTotal": 2500,
			"shipping": 500,
			"taxTotal": 630,
			"totalWithTax": 3630,
			"lines": [
				{"id": "l1", "productVariantId": "v1", "productVariantName": "Filter 20x25", "quantity": 2, "linePriceWithTax": 2500}
			],
			"shippingAddress": {"fullName": "Ana Pérez", "streetLine1": "Calle Mayor 1", "city": "Madrid", "postalCode": "28001", "countryCode": "ES"},
			"shippingMethod": {"id": "sm1", "name": "Standard", "priceWithTax": 500}
		}`)

		order, err := decodeOrderUnion(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order.Code != "HV1042" || order.State != models.StateArrangingPayment {
			t.Fatalf("unexpected order: %+v", order)
		}
		if order.TotalWithTaxCents != 3630 || order.ShippingCents != 500 {
			t.Fatalf("unexpected totals: %+v", order)
		}
		if len(order.Lines) != 1 || order.Lines[0].VariantName != "Filter 20x25" || order.Lines[0].Quantity != 2 {
			t.Fatalf("unexpected lines: %+v", order.Lines)
		}
		if order.ShippingAddress == nil || order.ShippingAddress.PostalCode != "28001" {
			t.Fatalf("unexpected address: %+v", order.ShippingAddress)
		}
		if order.ShippingMethod == nil || order.ShippingMethod.PriceCents != 500 {
			t.Fatalf("unexpected method: %+v", order.ShippingMethod)
		}
	})

	t.Run("error variant", func(t *testing.T) {
		t.Parallel()

		raw := json.RawMessage(`{
			"__typename": "OrderModificationError",
			"errorCode": "ORDER_MODIFICATION_ERROR",
			"message": "order is locked"
		}`)

		_, err := decodeOrderUnion(raw)
		var result *ErrorResult
		if !errors.As(err, &result) {
			t.Fatalf("expected error result, got %v", err)
		}
		if result.Code != CodeOrderModification || result.Message != "order is locked" {
			t.Fatalf("unexpected error result: %+v", result)
		}
	})

	t.Run("null means no active order", func(t *testing.T) {
		t.Parallel()

		_, err := decodeOrderUnion(json.RawMessage("null"))
		var result *ErrorResult
		if !errors.As(err, &result) || result.Code != CodeNoActiveOrder {
			t.Fatalf("expected no-active-order result, got %v", err)
		}
	})

	t.Run("malformed payload is a transport error", func(t *testing.T) {
		t.Parallel()

		_, err := decodeOrderUnion(json.RawMessage(`{"id": 42`))
		var transport *TransportError
		if !errors.As(err, &transport) {
			t.Fatalf("expected transport error, got %v", err)
		}
	})
}

func TestDecodeIntentUnion(t *testing.T) {
	t.Parallel()

	t.Run("intent payload", func(t *testing.T) {
		t.Parallel()

		raw := json.RawMessage(`{
			"__typename": "PaymentIntent",
			"intentId": "pi_1",
			"clientSecret": "cs_test_1",
			"amount": 3630
		}`)

		intent, err := decodeIntentUnion(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if intent.IntentID != "pi_1" || intent.ClientSecret != "cs_test_1" || intent.AmountCents != 3630 {
			t.Fatalf("unexpected intent: %+v", intent)
		}
	})

	t.Run("error variant", func(t *testing.T) {
		t.Parallel()

		raw := json.RawMessage(`{
			"__typename": "IneligiblePaymentMethodError",
			"errorCode": "INELIGIBLE_PAYMENT_METHOD_ERROR",
			"message": "payment method not configured"
		}`)

		_, err := decodeIntentUnion(raw)
		var result *ErrorResult
		if !errors.As(err, &result) || result.Code != CodeIneligiblePaymentMethod {
			t.Fatalf("expected ineligible payment method result, got %v", err)
		}
	})
}
