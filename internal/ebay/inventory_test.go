package ebay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLister_CreateListing(t *testing.T) {
	var itemBody map[string]interface{}
	var offerBody map[string]interface{}

	client, server := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/sell/inventory/v1/location/"):
			if r.Method == http.MethodGet {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case strings.HasPrefix(r.URL.Path, "/sell/inventory/v1/inventory_item/"):
			json.NewDecoder(r.Body).Decode(&itemBody)
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/sell/inventory/v1/offer":
			json.NewDecoder(r.Body).Decode(&offerBody)
			w.Write([]byte(`{"offerId":"880123"}`))
		case strings.HasSuffix(r.URL.Path, "/publish/"):
			w.Write([]byte(`{"listingId":"110555"}`))
		default:
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer server.Close()

	lister := NewLister(client)
	result, err := lister.CreateListing(context.Background(), ListingRequest{
		SKU:         "B0TEST12345-1756700000",
		Title:       "Seiko 5 Sports Automatic Watch SRPD55",
		Description: "<![CDATA[Japanese domestic model.]]>",
		PriceUSD:    81.99,
		CategoryID:  "31387",
		Images:      []string{"https://img.example/1.jpg"},
		ItemSpecifics: map[string]string{
			"Brand": "Seiko",
			"Model": "",
		},
		WeightKG: 0.6,
		Policies: ListingPolicies{
			FulfillmentPolicyID: "f1",
			PaymentPolicyID:     "p1",
			ReturnPolicyID:      "r1",
		},
	})
	if err != nil {
		t.Fatalf("CreateListing failed: %v", err)
	}

	if result.ListingID != "110555" {
		t.Errorf("Expected listing ID '110555', got '%s'", result.ListingID)
	}
	if result.OfferID != "880123" {
		t.Errorf("Expected offer ID '880123', got '%s'", result.OfferID)
	}
	if result.URL != "https://www.ebay.com/itm/110555" {
		t.Errorf("Unexpected listing URL: %s", result.URL)
	}

	product := itemBody["product"].(map[string]interface{})
	if desc := product["description"].(string); desc != "Japanese domestic model." {
		t.Errorf("Expected CDATA stripped, got '%s'", desc)
	}
	aspects := product["aspects"].(map[string]interface{})
	if _, ok := aspects["Model"]; ok {
		t.Error("Expected empty item specific to be dropped")
	}

	pricing := offerBody["pricingSummary"].(map[string]interface{})
	price := pricing["price"].(map[string]interface{})
	if price["value"] != "81.99" {
		t.Errorf("Expected price '81.99', got '%v'", price["value"])
	}
	if offerBody["merchantLocationKey"] != merchantLocationKey {
		t.Errorf("Expected merchant location, got '%v'", offerBody["merchantLocationKey"])
	}
	policies := offerBody["listingPolicies"].(map[string]interface{})
	if policies["fulfillmentPolicyId"] != "f1" {
		t.Errorf("Expected fulfillment policy wired, got '%v'", policies["fulfillmentPolicyId"])
	}
}

func TestLister_CreateListingRecoversExistingOffer(t *testing.T) {
	client, server := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/sell/inventory/v1/location/"):
			w.Write([]byte(`{"merchantLocationKey":"JP_SAITAMA"}`))
		case strings.HasPrefix(r.URL.Path, "/sell/inventory/v1/inventory_item/"):
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/sell/inventory/v1/offer":
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"errors":[{"errorId":25002,"parameters":[{"name":"offerId","value":"990777"}]}]}`))
		case strings.HasSuffix(r.URL.Path, "/publish/"):
			if !strings.Contains(r.URL.Path, "990777") {
				t.Errorf("Expected recovered offer ID in publish path, got %s", r.URL.Path)
			}
			w.Write([]byte(`{"listingId":"110777"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer server.Close()

	lister := NewLister(client)
	result, err := lister.CreateListing(context.Background(), ListingRequest{
		SKU:        "B0DUP0000-1",
		Title:      "Duplicate SKU",
		PriceUSD:   25.99,
		CategoryID: "1",
	})
	if err != nil {
		t.Fatalf("CreateListing failed: %v", err)
	}
	if result.OfferID != "990777" {
		t.Errorf("Expected recovered offer '990777', got '%s'", result.OfferID)
	}
}

func TestLister_TruncatesLongTitle(t *testing.T) {
	var itemBody map[string]interface{}
	client, server := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/sell/inventory/v1/location/"):
			w.Write([]byte(`{}`))
		case strings.HasPrefix(r.URL.Path, "/sell/inventory/v1/inventory_item/"):
			json.NewDecoder(r.Body).Decode(&itemBody)
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/sell/inventory/v1/offer":
			w.Write([]byte(`{"offerId":"1"}`))
		case strings.HasSuffix(r.URL.Path, "/publish/"):
			w.Write([]byte(`{"listingId":"2"}`))
		}
	})
	defer server.Close()

	lister := NewLister(client)
	// 120 multibyte characters; a byte-indexed cut would split a rune and
	// leave far fewer than 80 characters.
	_, err := lister.CreateListing(context.Background(), ListingRequest{
		SKU:        "B0LONG00001-1",
		Title:      strings.Repeat("時", 120),
		PriceUSD:   10.99,
		CategoryID: "1",
	})
	if err != nil {
		t.Fatalf("CreateListing failed: %v", err)
	}

	product := itemBody["product"].(map[string]interface{})
	title := product["title"].(string)
	if got := len([]rune(title)); got != 80 {
		t.Errorf("Expected title truncated to 80 characters, got %d", got)
	}
	if !utf8.ValidString(title) {
		t.Error("Truncated title is not valid UTF-8")
	}
}

func TestLister_UpdateQuantity(t *testing.T) {
	var updated map[string]interface{}
	client, server := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"sku":"B0TEST12345-1","condition":"NEW","availability":{"shipToLocationAvailability":{"quantity":1}}}`))
		case http.MethodPut:
			json.NewDecoder(r.Body).Decode(&updated)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	defer server.Close()

	lister := NewLister(client)
	if err := lister.UpdateQuantity(context.Background(), "B0TEST12345-1", 0); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}

	avail := updated["availability"].(map[string]interface{})
	ship := avail["shipToLocationAvailability"].(map[string]interface{})
	if qty := ship["quantity"].(float64); qty != 0 {
		t.Errorf("Expected quantity 0, got %v", qty)
	}
	if updated["condition"] != "NEW" {
		t.Error("Expected existing item fields preserved on quantity update")
	}
}
