package scoring

import (
	"testing"

	"github.com/brandlens/visibility-scanner/internal/models"
	"github.com/stretchr/testify/assert"
)

func resultsWithMentions(mentioned, total int) []models.QueryResult {
	results := make([]models.QueryResult, total)
	for i := 0; i < mentioned; i++ {
		results[i].BrandMentioned = true
	}
	return results
}

func TestVisibilityScore(t *testing.T) {
	tests := []struct {
		name      string
		mentioned int
		total     int
		expected  float64
	}{
		{"empty", 0, 0, 0},
		{"none mentioned", 0, 5, 0},
		{"two of five", 2, 5, 40},
		{"all mentioned", 5, 5, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := resultsWithMentions(tt.mentioned, tt.total)
			assert.Equal(t, tt.expected, VisibilityScore(results))
			assert.Equal(t, tt.mentioned, MentionedCount(results))
		})
	}
}

func TestVisibilityScore_Idempotent(t *testing.T) {
	results := resultsWithMentions(3, 7)
	first := VisibilityScore(results)
	assert.Equal(t, first, VisibilityScore(results))
}

func responsesAbout(texts ...string) []models.QueryResult {
	results := make([]models.QueryResult, len(texts))
	for i, text := range texts {
		results[i].Response = text
	}
	return results
}

func TestRankCompetitors_Ordering(t *testing.T) {
	results := responsesAbout(
		"Acme and Zeta both work here.",
		"Zeta is the common pick.",
		"Zeta again, Omega too.",
		"Nothing relevant.",
	)

	ranking := RankCompetitors("Acme", []string{"Zeta", "Omega"}, results)

	assert.Len(t, ranking, 3)
	assert.Equal(t, "Zeta", ranking[0].Name)
	assert.Equal(t, 1, ranking[0].Rank)
	assert.Equal(t, 3, ranking[0].Mentions)
	assert.False(t, ranking[0].IsUserBrand)

	// Ranks are 1-based and consecutive.
	for i, row := range ranking {
		assert.Equal(t, i+1, row.Rank)
		assert.Equal(t, len(results), row.Queries)
	}
}

func TestRank_OwnBrandAdjustment(t *testing.T) {
	// The brand appears in every response; the self-scan discount applies.
	results := responsesAbout("Acme here", "Acme again", "Acme still")

	ranking := RankCompetitors("Acme", nil, results)

	assert.Len(t, ranking, 1)
	assert.True(t, ranking[0].IsUserBrand)
	assert.Equal(t, 85.0, ranking[0].VisibilityScore)
	assert.Equal(t, 3, ranking[0].Mentions)
}

func TestRank_MarketTierAdjustment(t *testing.T) {
	results := responsesAbout(
		"Salesforce, Pipedrive and Anonymoose all get mentioned.",
		"Salesforce, Pipedrive and Anonymoose again.",
	)

	ranking := Rank([]Entry{
		{Name: "Salesforce"},
		{Name: "Pipedrive"},
		{Name: "Anonymoose"},
	}, results)

	byName := make(map[string]models.CompetitorRank)
	for _, row := range ranking {
		byName[row.Name] = row
	}

	// 100% raw rate: major names cap at 95, mid-tier caps too, unknown passes through.
	assert.Equal(t, 95.0, byName["Salesforce"].VisibilityScore)
	assert.Equal(t, 95.0, byName["Pipedrive"].VisibilityScore)
	assert.Equal(t, 100.0, byName["Anonymoose"].VisibilityScore)
}

func TestRank_MidTierBoost(t *testing.T) {
	// One mention in two responses: 50% raw, boosted by the mid-tier factor.
	results := responsesAbout("Pipedrive works.", "Nothing here.")

	ranking := Rank([]Entry{{Name: "Pipedrive"}}, results)
	assert.InDelta(t, 55.0, ranking[0].VisibilityScore, 0.001)
}

func TestRank_TiesKeepEnumerationOrder(t *testing.T) {
	results := responsesAbout("Alpha and Beta tie.")

	ranking := Rank([]Entry{{Name: "Alpha"}, {Name: "Beta"}}, results)

	assert.Equal(t, "Alpha", ranking[0].Name)
	assert.Equal(t, 1, ranking[0].Rank)
	assert.Equal(t, "Beta", ranking[1].Name)
	assert.Equal(t, 2, ranking[1].Rank)
}

func TestRank_DropsDuplicatesAndEmptyNames(t *testing.T) {
	ranking := Rank([]Entry{
		{Name: "Acme", IsUserBrand: true},
		{Name: "acme"},
		{Name: ""},
		{Name: "Zeta"},
	}, nil)

	assert.Len(t, ranking, 2)
	assert.Equal(t, "Acme", ranking[0].Name)
	assert.True(t, ranking[0].IsUserBrand)
}

func TestRank_ErrorResultsExcluded(t *testing.T) {
	results := []models.QueryResult{
		{Response: "Acme mentioned."},
		{Error: "provider timeout"},
	}

	ranking := RankCompetitors("Acme", nil, results)
	assert.Equal(t, 1, ranking[0].Mentions)
	assert.Equal(t, 2, ranking[0].Queries)
}
