package ebay

import (
	"context"
	"encoding/json"
	"fmt"
)

// Policy is one business policy (fulfillment, payment, or return).
type Policy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AccountPolicies lists the seller's business policies on the marketplace.
type AccountPolicies struct {
	Fulfillment []Policy `json:"fulfillment"`
	Payment     []Policy `json:"payment"`
	Return      []Policy `json:"return"`
}

// GetPolicies fetches all three business policy sets for the US marketplace.
func (c *Client) GetPolicies(ctx context.Context) (*AccountPolicies, error) {
	out := &AccountPolicies{}

	var err error
	if out.Fulfillment, err = c.fetchPolicies(ctx, "fulfillment_policy", "fulfillmentPolicies", "fulfillmentPolicyId"); err != nil {
		return nil, err
	}
	if out.Payment, err = c.fetchPolicies(ctx, "payment_policy", "paymentPolicies", "paymentPolicyId"); err != nil {
		return nil, err
	}
	if out.Return, err = c.fetchPolicies(ctx, "return_policy", "returnPolicies", "returnPolicyId"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) fetchPolicies(ctx context.Context, resource, listKey, idKey string) ([]Policy, error) {
	endpoint := "/sell/account/v1/" + resource + "?marketplace_id=" + marketplaceID
	raw, err := c.Request(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", resource, err)
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", resource, err)
	}

	var entries []map[string]json.RawMessage
	if list, ok := resp[listKey]; ok {
		if err := json.Unmarshal(list, &entries); err != nil {
			return nil, fmt.Errorf("parsing %s list: %w", resource, err)
		}
	}

	policies := make([]Policy, 0, len(entries))
	for _, e := range entries {
		var p Policy
		if id, ok := e[idKey]; ok {
			_ = json.Unmarshal(id, &p.ID)
		}
		if name, ok := e["name"]; ok {
			_ = json.Unmarshal(name, &p.Name)
		}
		if desc, ok := e["description"]; ok {
			_ = json.Unmarshal(desc, &p.Description)
		}
		policies = append(policies, p)
	}
	return policies, nil
}
