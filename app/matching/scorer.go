package matching

import (
	"strings"

	"github.com/productsafe/recallwatch/app/database"
	"github.com/productsafe/recallwatch/app/normalize"
)

const (
	baseConfidence   = 0.5
	upcBoost         = 0.4
	brandBoost       = 0.2
	keywordBoostCeil = 0.3
	maxConfidence    = 1.0
)

const (
	MatchTypeUPC      = "upc"
	MatchTypeBrand    = "brand"
	MatchTypeKeyword  = "keyword"
	MatchTypeCombined = "combined"
)

// productSignals is everything a product can contribute to matching. A
// product with no signals at all contributes zero matches; that is not an
// error, just an unmatchable product.
type productSignals struct {
	upc          string
	brand        string
	brandTokens  []string
	nameKeywords []string
}

func buildSignals(product database.Product) productSignals {
	nameText := product.NormalizedName
	if nameText == "" {
		nameText = product.Name
	}

	return productSignals{
		upc:          strings.TrimSpace(product.UPC),
		brand:        strings.ToLower(strings.TrimSpace(product.Brand)),
		brandTokens:  normalize.ExtractBrandKeywords(product.Brand),
		nameKeywords: normalize.ExtractKeywords(nameText, normalize.DefaultMaxKeywords),
	}
}

func (s productSignals) empty() bool {
	return s.upc == "" && len(s.brandTokens) == 0 && len(s.nameKeywords) == 0
}

type evaluation struct {
	matched    bool
	matchType  string
	confidence float64
}

// evaluate applies the OR disjunction of the available signals against one
// recall and, when any condition fires, computes the confidence score.
// A single UPC hit is as good as a keyword hit for surfacing a candidate;
// the signals differ only in how much confidence they contribute.
func evaluate(signals productSignals, recall database.Recall) evaluation {
	upcHit := signals.upc != "" && containsExact(recall.UPCCodes, signals.upc)
	brandHit := len(signals.brandTokens) > 0 && tokenOverlap(signals.brandTokens, recall.BrandKeywords)
	keywordMatches := countKeywordMatches(signals.nameKeywords, recall.ProductKeywords)
	keywordHit := keywordMatches > 0

	if !upcHit && !brandHit && !keywordHit {
		return evaluation{}
	}

	confidence := baseConfidence
	if upcHit {
		confidence += upcBoost
	}
	if signals.brand != "" && brandSubstringHit(signals.brand, recall.BrandKeywords) {
		confidence += brandBoost
	}
	if len(signals.nameKeywords) > 0 {
		confidence += keywordBoostCeil * float64(keywordMatches) / float64(len(signals.nameKeywords))
	}
	// Additive boosts can overshoot; the clamp is mandatory
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	return evaluation{
		matched:    true,
		matchType:  matchType(upcHit, brandHit, keywordHit),
		confidence: confidence,
	}
}

func matchType(upcHit, brandHit, keywordHit bool) string {
	fired := 0
	matchType := ""
	if upcHit {
		fired++
		matchType = MatchTypeUPC
	}
	if brandHit {
		fired++
		matchType = MatchTypeBrand
	}
	if keywordHit {
		fired++
		matchType = MatchTypeKeyword
	}
	if fired > 1 {
		return MatchTypeCombined
	}
	return matchType
}

func containsExact(codes []string, upc string) bool {
	for _, code := range codes {
		if code == upc {
			return true
		}
	}
	return false
}

func tokenOverlap(productTokens, recallTokens []string) bool {
	for _, pt := range productTokens {
		for _, rt := range recallTokens {
			if strings.EqualFold(pt, rt) {
				return true
			}
		}
	}
	return false
}

// brandSubstringHit reports whether any recall brand keyword contains the
// product's brand as a case-insensitive substring.
func brandSubstringHit(brand string, recallBrandKeywords []string) bool {
	for _, keyword := range recallBrandKeywords {
		if strings.Contains(strings.ToLower(keyword), brand) {
			return true
		}
	}
	return false
}

// countKeywordMatches counts product name keywords that appear as a
// case-insensitive substring of any recall product keyword.
func countKeywordMatches(productKeywords, recallKeywords []string) int {
	count := 0
	for _, pk := range productKeywords {
		lower := strings.ToLower(pk)
		for _, rk := range recallKeywords {
			if strings.Contains(strings.ToLower(rk), lower) {
				count++
				break
			}
		}
	}
	return count
}
