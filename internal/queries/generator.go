package queries

import (
	"context"
	"fmt"
	"strings"

	"github.com/brandlens/visibility-scanner/internal/models"
	"github.com/brandlens/visibility-scanner/internal/provider"
	"github.com/sirupsen/logrus"
)

const (
	// MaxQueries bounds every generated plan.
	MaxQueries = 30
	// minUsableLLMQueries is the point below which an LLM-produced plan is
	// discarded in favor of the template plan.
	minUsableLLMQueries = 15
	minUsableLineLen    = 10
	maxKeywords         = 4
	maxCompetitors      = 3
)

// Generator produces the query plan for a scan. With a nil provider it always
// uses the deterministic templates; otherwise it asks the LLM for naturalistic
// queries first and falls back to the templates on failure.
type Generator struct {
	provider provider.Provider
}

// NewGenerator creates a generator. provider may be nil.
func NewGenerator(p provider.Provider) *Generator {
	return &Generator{provider: p}
}

// Generate returns the ordered, deduplicated query plan for a brand.
func (g *Generator) Generate(ctx context.Context, brand *models.BrandProfile) []string {
	if g.provider != nil {
		if qs, err := g.generateWithLLM(ctx, brand); err == nil {
			return qs
		} else {
			logrus.Warnf("LLM query generation failed for brand %s, using templates: %v", brand.Name, err)
		}
	}
	return TemplateQueries(brand.Name, brand.Industry, brand.Keywords, brand.Competitors)
}

func (g *Generator) generateWithLLM(ctx context.Context, brand *models.BrandProfile) ([]string, error) {
	prompt := fmt.Sprintf(
		"Generate %d realistic questions a potential buyer in the %s industry would ask an AI assistant "+
			"when researching tools like %s. Cover discovery, comparisons with %s, pricing, and use cases. "+
			"Return one question per line with no numbering.",
		MaxQueries, brand.Industry, brand.Name, strings.Join(topN(brand.Competitors, maxCompetitors), ", "))

	completion, err := g.provider.Complete(ctx, provider.CompletionRequest{
		Prompt: prompt,
		Context: provider.BrandContext{
			Brand:       brand.Name,
			Industry:    brand.Industry,
			Competitors: brand.Competitors,
			Keywords:    brand.Keywords,
		},
		MaxTokens:   1200,
		Temperature: 0.9,
	})
	if err != nil {
		return nil, err
	}

	usable := usableLines(completion.Text)
	if len(usable) < minUsableLLMQueries {
		return nil, fmt.Errorf("only %d usable queries in LLM output, need %d", len(usable), minUsableLLMQueries)
	}

	return dedupe(usable, MaxQueries), nil
}

// usableLines keeps non-empty lines longer than 10 characters, stripping list
// markers and coercing each to end with a question mark.
func usableLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.-)# ")
		if len(line) <= minUsableLineLen {
			continue
		}
		if !strings.HasSuffix(line, "?") {
			line = strings.TrimRight(line, ".!") + "?"
		}
		out = append(out, line)
	}
	return out
}

// TemplateQueries is the deterministic template mode: a pure function of the
// brand profile that always succeeds. Families are emitted in fixed order so
// plan truncation keeps the broadest queries.
func TemplateQueries(name, industry string, keywords, competitors []string) []string {
	var qs []string

	topCompetitor := name
	if len(competitors) > 0 {
		topCompetitor = competitors[0]
	}

	// Discovery queries.
	qs = append(qs,
		fmt.Sprintf("What are the best %s tools available today?", industry),
		fmt.Sprintf("Which %s platforms do experts recommend for 2025?", industry),
		fmt.Sprintf("How do I choose between %s providers like %s?", industry, topCompetitor),
		fmt.Sprintf("What should I look for in %s software?", industry),
	)

	// Per-keyword queries.
	for _, kw := range topN(keywords, maxKeywords) {
		qs = append(qs,
			fmt.Sprintf("What is the best tool for %s?", kw),
			fmt.Sprintf("How much does good %s software cost?", kw),
			fmt.Sprintf("Which %s solutions work best for %s?", industry, kw),
			fmt.Sprintf("What are best practices for %s?", kw),
		)
	}

	// Per-competitor comparison queries.
	for _, comp := range topN(competitors, maxCompetitors) {
		qs = append(qs,
			fmt.Sprintf("How does %s compare to %s?", name, comp),
			fmt.Sprintf("What is a good alternative to %s?", comp),
			fmt.Sprintf("Is %s or %s better for a small business?", name, comp),
		)
	}

	// Generic use-case queries.
	qs = append(qs,
		fmt.Sprintf("What %s software is best for startups?", industry),
		fmt.Sprintf("Which %s tools integrate well with existing systems?", industry),
		fmt.Sprintf("How can a small team automate %s work?", industry),
		fmt.Sprintf("What is the easiest %s platform to set up?", industry),
		fmt.Sprintf("Which %s product has the best customer support?", industry),
	)

	return dedupe(qs, MaxQueries)
}

func dedupe(qs []string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range qs {
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out
}

func topN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
