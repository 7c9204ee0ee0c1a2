// Package classify assigns products to duty/fee categories and shipping size
// classes from catalog text and physical dimensions.
package classify

import (
	"strings"

	"github.com/guarzo/crosslist/internal/pricing"
)

// categoryRule is one ordered classification rule. Rules are evaluated top to
// bottom with early exit, so precedence is explicit: watches must be checked
// before electronics (smartwatch brand text would otherwise land in
// electronics), and jewelry must not swallow watch listings.
type categoryRule struct {
	category pricing.Category
	match    func(text string) bool
}

// Keyword sets are bilingual: catalog titles from amazon.co.jp mix English
// and Japanese freely.
var (
	watchKeywords = []string{
		"watch", "chronograph", "wristwatch", "timepiece",
		"腕時計", "クロノグラフ", "ウォッチ",
	}
	jewelryKeywords = []string{
		"jewelry", "jewellery", "necklace", "bracelet", "ring", "pendant", "earring",
		"ジュエリー", "ネックレス", "ブレスレット", "指輪", "ピアス",
	}
	electronicsKeywords = []string{
		"electronic", "camera", "headphone", "earphone", "speaker", "bluetooth",
		"usb", "charger", "console", "keyboard", "レンズ", "カメラ", "イヤホン",
		"ヘッドホン", "スピーカー", "充電器", "ゲーム機",
	}
	toyKeywords = []string{
		"toy", "figure", "plush", "puzzle", "lego", "gundam",
		"おもちゃ", "フィギュア", "ぬいぐるみ", "プラモデル",
	}
	cosmeticsKeywords = []string{
		"cosmetic", "skincare", "lotion", "serum", "shampoo", "makeup",
		"化粧品", "スキンケア", "美容液", "シャンプー",
	}
	toolKeywords = []string{
		"tool", "wrench", "screwdriver", "drill", "pliers",
		"工具", "ドライバー", "レンチ", "ペンチ",
	}
	foodKeywords = []string{
		"snack", "candy", "tea", "coffee", "sauce", "ramen",
		"お菓子", "スナック", "抹茶", "ラーメン", "調味料",
	}
	clothingKeywords = []string{
		"shirt", "jacket", "hoodie", "kimono", "pants", "dress", "apparel",
		"シャツ", "ジャケット", "パーカー", "着物", "服",
	}
)

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var categoryRules = []categoryRule{
	{pricing.CategoryWatches, func(t string) bool { return matchesAny(t, watchKeywords) }},
	// Jewelry only when no watch keyword matched; a "watch with bracelet
	// band" is a watch for duty purposes.
	{pricing.CategoryJewelry, func(t string) bool {
		return matchesAny(t, jewelryKeywords) && !matchesAny(t, watchKeywords)
	}},
	{pricing.CategoryElectronics, func(t string) bool { return matchesAny(t, electronicsKeywords) }},
	{pricing.CategoryToys, func(t string) bool { return matchesAny(t, toyKeywords) }},
	{pricing.CategoryCosmetics, func(t string) bool { return matchesAny(t, cosmeticsKeywords) }},
	{pricing.CategoryTools, func(t string) bool { return matchesAny(t, toolKeywords) }},
	{pricing.CategoryFood, func(t string) bool { return matchesAny(t, foodKeywords) }},
	{pricing.CategoryClothing, func(t string) bool { return matchesAny(t, clothingKeywords) }},
}

// Category classifies free text (title, brand, category breadcrumb) into a
// duty/fee category. First matching rule wins; no match falls back to
// default.
func Category(freeText string) pricing.Category {
	text := strings.ToLower(freeText)
	for _, rule := range categoryRules {
		if rule.match(text) {
			return rule.category
		}
	}
	return pricing.CategoryDefault
}
