package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/guarzo/crosslist/internal/cache"
)

const (
	taxonomyMarketplace = "EBAY_US"
	// fallbackTreeID is the well-known US marketplace tree, used when the
	// tree ID lookup fails.
	fallbackTreeID = "0"

	taxonomyTTL = 7 * 24 * time.Hour
)

// CategorySuggestion is one suggested leaf category for a query.
type CategorySuggestion struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	CategoryPath string `json:"category_path"`
}

// Aspect describes one item specific a category accepts.
type Aspect struct {
	Name   string   `json:"name"`
	Values []string `json:"values,omitempty"`
}

// CategoryAspects splits a category's item specifics by requirement.
type CategoryAspects struct {
	CategoryID  string   `json:"category_id"`
	Required    []Aspect `json:"required"`
	Recommended []Aspect `json:"recommended"`
}

// Taxonomy answers category and aspect lookups against the Commerce
// Taxonomy API, caching results on disk since trees change rarely.
type Taxonomy struct {
	client *Client
	cache  *cache.Cache
}

// NewTaxonomy creates a Taxonomy. The cache may be nil to disable caching.
func NewTaxonomy(client *Client, c *cache.Cache) *Taxonomy {
	return &Taxonomy{client: client, cache: c}
}

// treeID resolves the marketplace's category tree ID. Trees are effectively
// permanent, so the answer is cached; on lookup failure the well-known US
// tree is assumed.
func (t *Taxonomy) treeID(ctx context.Context) string {
	key := cache.CategoryTreeKey(taxonomyMarketplace)
	if t.cache != nil {
		var cached string
		if found, _ := t.cache.Get(key, &cached); found && cached != "" {
			return cached
		}
	}

	endpoint := "/commerce/taxonomy/v1/get_default_category_tree_id?marketplace_id=" + taxonomyMarketplace
	raw, err := t.client.AppRequest(ctx, "GET", endpoint, nil)
	if err != nil {
		return fallbackTreeID
	}

	var resp struct {
		CategoryTreeID string `json:"categoryTreeId"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.CategoryTreeID == "" {
		return fallbackTreeID
	}

	if t.cache != nil {
		_ = t.cache.Put(key, resp.CategoryTreeID, taxonomyTTL)
	}
	return resp.CategoryTreeID
}

// SuggestCategory returns leaf category suggestions for a product query.
func (t *Taxonomy) SuggestCategory(ctx context.Context, query string) ([]CategorySuggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty category query")
	}

	treeID := t.treeID(ctx)
	key := cache.CategorySuggestionKey(treeID, query)
	if t.cache != nil {
		var cached []CategorySuggestion
		if found, _ := t.cache.Get(key, &cached); found {
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("/commerce/taxonomy/v1/category_tree/%s/get_category_suggestions?q=%s",
		treeID, url.QueryEscape(query))
	raw, err := t.client.AppRequest(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching category suggestions: %w", err)
	}

	var resp struct {
		CategorySuggestions []struct {
			Category struct {
				CategoryID   string `json:"categoryId"`
				CategoryName string `json:"categoryName"`
			} `json:"category"`
			CategoryTreeNodeAncestors []struct {
				CategoryName string `json:"categoryName"`
			} `json:"categoryTreeNodeAncestors"`
		} `json:"categorySuggestions"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parsing category suggestions: %w", err)
	}

	suggestions := make([]CategorySuggestion, 0, len(resp.CategorySuggestions))
	for _, s := range resp.CategorySuggestions {
		// Ancestors come leaf-first; reverse for a root-first breadcrumb.
		parts := make([]string, 0, len(s.CategoryTreeNodeAncestors)+1)
		for i := len(s.CategoryTreeNodeAncestors) - 1; i >= 0; i-- {
			parts = append(parts, s.CategoryTreeNodeAncestors[i].CategoryName)
		}
		parts = append(parts, s.Category.CategoryName)

		suggestions = append(suggestions, CategorySuggestion{
			CategoryID:   s.Category.CategoryID,
			CategoryName: s.Category.CategoryName,
			CategoryPath: strings.Join(parts, " > "),
		})
	}

	if t.cache != nil && len(suggestions) > 0 {
		_ = t.cache.Put(key, suggestions, taxonomyTTL)
	}
	return suggestions, nil
}

// GetItemAspects returns the required and recommended item specifics for a
// leaf category.
func (t *Taxonomy) GetItemAspects(ctx context.Context, categoryID string) (*CategoryAspects, error) {
	if categoryID == "" {
		return nil, fmt.Errorf("empty category id")
	}

	treeID := t.treeID(ctx)
	key := cache.ItemAspectsKey(treeID, categoryID)
	if t.cache != nil {
		var cached CategoryAspects
		if found, _ := t.cache.Get(key, &cached); found {
			return &cached, nil
		}
	}

	endpoint := fmt.Sprintf("/commerce/taxonomy/v1/category_tree/%s/get_item_aspects_for_category?category_id=%s",
		treeID, url.QueryEscape(categoryID))
	raw, err := t.client.AppRequest(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching item aspects: %w", err)
	}

	var resp struct {
		Aspects []struct {
			LocalizedAspectName string `json:"localizedAspectName"`
			AspectConstraint    struct {
				AspectRequired bool `json:"aspectRequired"`
			} `json:"aspectConstraint"`
			AspectValues []struct {
				LocalizedValue string `json:"localizedValue"`
			} `json:"aspectValues"`
		} `json:"aspects"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parsing item aspects: %w", err)
	}

	out := &CategoryAspects{CategoryID: categoryID}
	for _, a := range resp.Aspects {
		aspect := Aspect{Name: a.LocalizedAspectName}
		// Cap sample values; some aspects enumerate thousands.
		for _, v := range a.AspectValues {
			aspect.Values = append(aspect.Values, v.LocalizedValue)
			if len(aspect.Values) >= 25 {
				break
			}
		}
		if a.AspectConstraint.AspectRequired {
			out.Required = append(out.Required, aspect)
		} else {
			out.Recommended = append(out.Recommended, aspect)
		}
	}

	if t.cache != nil {
		_ = t.cache.Put(key, out, taxonomyTTL)
	}
	return out, nil
}
