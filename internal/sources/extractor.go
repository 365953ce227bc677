// Package sources extracts cited domains and articles from LLM answers.
// Extraction is layered: an explicit marked section the prompt asks the model
// to emit, then a generic scan of the whole text, then deterministic
// synthesis so callers always get a usable attribution set.
package sources

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brandlens/visibility-scanner/internal/models"
)

const (
	maxDomains  = 5
	maxArticles = 5
	// minArticles is the floor below which the synthesized pool tops up the
	// article list.
	minArticles = 3

	// Impact weights decrease with extraction rank. Never 100 (would imply
	// certainty) and never 0 (would imply irrelevance).
	impactStart = 90.0
	impactStep  = 12.0
	impactFloor = 5.0
)

var (
	domainLineRe  = regexp.MustCompile(`(?i)DOMAIN:\s*([^\s-]+)\s*-?\s*(.*)`)
	articleLineRe = regexp.MustCompile(`(?i)ARTICLE:\s*(\S+)\s*-?\s*(.*)`)
	// Bare domain tokens like reviews.example.com. The trailing segment must
	// look like a TLD, not a sentence continuation.
	bareDomainRe = regexp.MustCompile(`\b(?:[a-z0-9][a-z0-9-]*\.)+(?:com|org|net|io|co|dev|ai)\b`)
	urlRe        = regexp.MustCompile(`https?://[^\s)"']+`)
)

// Extract returns cited domains and articles for one response. It never
// returns empty results: when the response carries no usable citations the
// synthesized fallback set (tagged "estimated-*") fills the gap.
func Extract(response, brandName, industry string, keywords []string) ([]models.SourceDomain, []models.SourceArticle) {
	domains := parseMarkedDomains(response)
	articles := parseMarkedArticles(response)

	// The generic scan always runs too; marked sections are a convention the
	// model does not reliably follow.
	domains = mergeDomains(domains, scanDomains(response))
	articles = mergeArticles(articles, scanArticles(response, industry))

	if len(domains) == 0 {
		domains = synthesizeDomains(brandName, industry)
	}
	if len(articles) < minArticles {
		articles = mergeArticles(articles, synthesizeArticles(brandName, industry, keywords))
	}

	domains = capDomains(domains, maxDomains)
	articles = capArticles(articles, maxArticles)

	assignImpact(domains, articles)
	return domains, articles
}

// parseMarkedDomains reads "DOMAIN: x.com - description" lines from the
// SOURCE DOMAINS section, when present.
func parseMarkedDomains(response string) []models.SourceDomain {
	var out []models.SourceDomain

	section, ok := markedSection(response, "SOURCE DOMAINS", "SOURCE ARTICLES")
	if !ok {
		return out
	}

	for _, line := range strings.Split(section, "\n") {
		m := domainLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		domain := strings.Trim(m[1], ".,;")
		if !bareDomainRe.MatchString(strings.ToLower(domain)) {
			continue
		}
		out = append(out, models.SourceDomain{
			Domain:   strings.ToLower(domain),
			Category: categorize(domain + " " + m[2]),
			Mentions: 1,
			Queries:  1,
		})
	}
	return out
}

func parseMarkedArticles(response string) []models.SourceArticle {
	var out []models.SourceArticle

	section, ok := markedSection(response, "SOURCE ARTICLES", "")
	if !ok {
		return out
	}

	for _, line := range strings.Split(section, "\n") {
		m := articleLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		url := strings.Trim(m[1], ".,;")
		if !strings.HasPrefix(url, "http") {
			continue
		}
		title := strings.TrimSpace(m[2])
		if title == "" {
			title = "Referenced article"
		}
		out = append(out, models.SourceArticle{
			URL:      url,
			Title:    title,
			Category: categorize(url + " " + title),
			Queries:  1,
		})
	}
	return out
}

func markedSection(response, start, until string) (string, bool) {
	idx := strings.Index(response, start)
	if idx < 0 {
		return "", false
	}
	section := response[idx+len(start):]
	if until != "" {
		if end := strings.Index(section, until); end >= 0 {
			section = section[:end]
		}
	}
	// A blank line ends the section.
	if end := strings.Index(section, "\n\n"); end >= 0 {
		section = section[:end]
	}
	return section, true
}

// scanDomains is the generic path: any domain-shaped token anywhere in the
// text counts as a likely citation.
func scanDomains(response string) []models.SourceDomain {
	var out []models.SourceDomain
	for _, match := range bareDomainRe.FindAllString(strings.ToLower(response), -1) {
		out = append(out, models.SourceDomain{
			Domain:   match,
			Category: categorize(match),
			Mentions: 1,
			Queries:  1,
		})
	}
	return out
}

func scanArticles(response, industry string) []models.SourceArticle {
	var out []models.SourceArticle
	for _, match := range urlRe.FindAllString(response, -1) {
		url := strings.Trim(match, ".,;")
		out = append(out, models.SourceArticle{
			URL:      url,
			Title:    fmt.Sprintf("Article about %s", industry),
			Category: categorize(url),
			Queries:  1,
		})
	}
	return out
}

// categorize assigns a coarse category by keyword sniffing.
func categorize(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "g2", "capterra", "trustpilot", "review", "rating"):
		return "review"
	case containsAny(lower, "reddit", "forum", "community", "stackoverflow", "discussion"):
		return "forum"
	case containsAny(lower, "blog", "guide", "medium", "article", "news"):
		return "content"
	default:
		return "business"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// synthesizeDomains builds the deterministic fallback set from the brand
// profile. The estimated-* categories mark these as synthesized, not
// observed.
func synthesizeDomains(brandName, industry string) []models.SourceDomain {
	industrySlug := slugify(industry)
	brandSlug := slugify(brandName)

	pool := []models.SourceDomain{
		{Domain: "www.g2.com", Category: "estimated-review"},
		{Domain: "www.capterra.com", Category: "estimated-review"},
		{Domain: "www.trustpilot.com", Category: "estimated-review"},
		{Domain: fmt.Sprintf("www.%snews.com", industrySlug), Category: "estimated-industry"},
		{Domain: fmt.Sprintf("www.%s.com", brandSlug), Category: "estimated-business"},
	}

	for i := range pool {
		pool[i].Mentions = len(pool) - i
		pool[i].Queries = len(pool) - i
	}
	return pool
}

func synthesizeArticles(brandName, industry string, keywords []string) []models.SourceArticle {
	industrySlug := slugify(industry)
	keyword := "software"
	if len(keywords) > 0 && keywords[0] != "" {
		keyword = slugify(keywords[0])
	}

	pool := []models.SourceArticle{
		{
			URL:      fmt.Sprintf("https://www.g2.com/categories/%s/best", industrySlug),
			Title:    fmt.Sprintf("Best %s Software Compared", industry),
			Category: "estimated-review",
		},
		{
			URL:      fmt.Sprintf("https://www.capterra.com/%s-software", industrySlug),
			Title:    fmt.Sprintf("Top %s Solutions", industry),
			Category: "estimated-review",
		},
		{
			URL:      fmt.Sprintf("https://www.trustpilot.com/review/%s.com", slugify(brandName)),
			Title:    fmt.Sprintf("%s Reviews and Ratings", brandName),
			Category: "estimated-community",
		},
		{
			URL:      fmt.Sprintf("https://blog.%s.com/guide", keyword),
			Title:    fmt.Sprintf("Complete Guide to %s Tools", industry),
			Category: "estimated-content",
		},
		{
			URL:      "https://www.techradar.com/best/business-software",
			Title:    fmt.Sprintf("Best %s Software for Business", industry),
			Category: "estimated-content",
		},
	}

	for i := range pool {
		pool[i].Queries = len(pool) - i
	}
	return pool
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "software"
	}
	return strings.ReplaceAll(s, " ", "")
}

// assignImpact weights records by extraction rank: the first is trusted most,
// each subsequent one less, floored at a small positive value.
func assignImpact(domains []models.SourceDomain, articles []models.SourceArticle) {
	for i := range domains {
		domains[i].Impact = impactAt(i)
	}
	for i := range articles {
		articles[i].Impact = impactAt(i)
	}
}

func impactAt(rank int) float64 {
	impact := impactStart - float64(rank)*impactStep
	if impact < impactFloor {
		impact = impactFloor
	}
	return impact
}

func mergeDomains(primary, secondary []models.SourceDomain) []models.SourceDomain {
	seen := make(map[string]bool)
	var out []models.SourceDomain
	for _, d := range append(primary, secondary...) {
		if d.Domain == "" || seen[d.Domain] {
			continue
		}
		seen[d.Domain] = true
		out = append(out, d)
	}
	return out
}

func mergeArticles(primary, secondary []models.SourceArticle) []models.SourceArticle {
	seen := make(map[string]bool)
	var out []models.SourceArticle
	for _, a := range append(primary, secondary...) {
		if a.URL == "" || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		out = append(out, a)
	}
	return out
}

func capDomains(ds []models.SourceDomain, limit int) []models.SourceDomain {
	if len(ds) > limit {
		return ds[:limit]
	}
	return ds
}

func capArticles(as []models.SourceArticle, limit int) []models.SourceArticle {
	if len(as) > limit {
		return as[:limit]
	}
	return as
}
