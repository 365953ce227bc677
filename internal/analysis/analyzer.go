package analysis

import (
	"regexp"
	"strings"
)

// Signals is the structured output extracted from one LLM answer. Extraction
// is heuristic and best-effort: any input, including an empty string, yields
// a well-formed Signals value.
type Signals struct {
	BrandMentioned       bool
	RankingPosition      *int // 1..5
	Sentiment            string
	CompetitorsMentioned []string
	KeyFeatures          []string
	TargetAudience       []string
	UseCases             []string
}

const (
	maxCompetitorsMentioned = 3
	maxKeyFeatures          = 3
	maxTargetAudience       = 2
	maxUseCases             = 2
	maxRankingPosition      = 5
	audienceWindow          = 200
	useCaseCaptureLen       = 100
)

var positiveWords = []string{"good", "great", "excellent", "love", "awesome", "fantastic", "helpful", "works", "best", "recommended", "powerful", "reliable"}

var negativeWords = []string{"bad", "terrible", "awful", "hate", "broken", "limited", "expensive", "fail", "problem", "issue", "weak", "lacking"}

var featureNouns = []string{"feature", "capability", "integration", "analytics", "automation", "dashboard", "reporting", "workflow", "api", "support"}

var audienceTerms = []string{"small business", "enterprise", "startup", "smb", "mid-market", "freelancer", "agency", "developer", "marketing team", "sales team"}

var useCasePatterns = []string{"ideal for", "designed for", "perfect for", "best suited for", "great for", "built for"}

// Leading list markers like "1.", "2)" or "#3".
var listMarkerRe = regexp.MustCompile(`^\s*#?([1-5])[.):]?\s`)

var ordinalPhrases = []struct {
	phrase   string
	position int
}{
	{"top choice", 1},
	{"top pick", 1},
	{"leading solution", 1},
	{"first choice", 1},
	{"number one", 1},
	{"runner-up", 2},
	{"second choice", 2},
	{"also consider", 3},
	{"another option", 3},
	{"worth mentioning", 4},
	{"honorable mention", 4},
}

// Analyze extracts structured signals from one response. It is a pure
// function of its inputs and never fails; when the brand does not appear the
// all-default structure comes back.
func Analyze(response, brandName string, competitors, keywords []string) Signals {
	signals := Signals{
		Sentiment:            "neutral",
		CompetitorsMentioned: []string{},
		KeyFeatures:          []string{},
		TargetAudience:       []string{},
		UseCases:             []string{},
	}

	if response == "" || brandName == "" {
		return signals
	}

	lowerResponse := strings.ToLower(response)
	lowerBrand := strings.ToLower(brandName)

	signals.BrandMentioned = strings.Contains(lowerResponse, lowerBrand)
	signals.CompetitorsMentioned = competitorsMentioned(lowerResponse, competitors)

	if signals.BrandMentioned {
		brandLine := firstLineContaining(response, lowerBrand)
		signals.RankingPosition = rankingPosition(brandLine, lowerResponse, lowerBrand, competitors)
		signals.Sentiment = lineSentiment(brandLine)
		signals.KeyFeatures = keyFeatures(response, lowerBrand, keywords)
		signals.TargetAudience = targetAudience(lowerResponse, lowerBrand)
		signals.UseCases = useCases(response, lowerBrand)
	}

	return signals
}

func firstLineContaining(response, lowerNeedle string) string {
	for _, line := range strings.Split(response, "\n") {
		if strings.Contains(strings.ToLower(line), lowerNeedle) {
			return line
		}
	}
	return ""
}

// rankingPosition tries three heuristics in order: a leading list marker on
// the brand's line, an ordinal keyword phrase on that line, and finally a
// count of competitors mentioned before the brand's first appearance.
func rankingPosition(brandLine, lowerResponse, lowerBrand string, competitors []string) *int {
	if m := listMarkerRe.FindStringSubmatch(brandLine); m != nil {
		pos := int(m[1][0] - '0')
		return &pos
	}

	lowerLine := strings.ToLower(brandLine)
	for _, op := range ordinalPhrases {
		if strings.Contains(lowerLine, op.phrase) {
			pos := op.position
			return &pos
		}
	}

	idx := strings.Index(lowerResponse, lowerBrand)
	if idx < 0 {
		return nil
	}
	preceding := lowerResponse[:idx]
	pos := 1
	for _, comp := range competitors {
		if comp == "" {
			continue
		}
		if strings.Contains(preceding, strings.ToLower(comp)) {
			pos++
		}
	}
	if pos > maxRankingPosition {
		pos = maxRankingPosition
	}
	return &pos
}

// lineSentiment counts sentiment vocabulary on the brand's own line only, so
// praise for a competitor elsewhere in the answer does not leak in.
func lineSentiment(line string) string {
	content := strings.ToLower(line)

	positiveCount := 0
	negativeCount := 0

	for _, word := range positiveWords {
		if strings.Contains(content, word) {
			positiveCount++
		}
	}

	for _, word := range negativeWords {
		if strings.Contains(content, word) {
			negativeCount++
		}
	}

	if positiveCount >= negativeCount && positiveCount > 0 {
		return "positive"
	} else if negativeCount > positiveCount {
		return "negative"
	}

	return "neutral"
}

func competitorsMentioned(lowerResponse string, competitors []string) []string {
	out := []string{}
	for _, comp := range competitors {
		if comp == "" {
			continue
		}
		if strings.Contains(lowerResponse, strings.ToLower(comp)) {
			out = append(out, comp)
			if len(out) == maxCompetitorsMentioned {
				break
			}
		}
	}
	return out
}

// keyFeatures emits "{keyword} {feature-noun}" for each top keyword that
// shares a sentence with the brand and a feature noun.
func keyFeatures(response, lowerBrand string, keywords []string) []string {
	out := []string{}
	seen := make(map[string]bool)

	top := keywords
	if len(top) > maxKeyFeatures {
		top = top[:maxKeyFeatures]
	}

	for _, sentence := range splitSentences(response) {
		lower := strings.ToLower(sentence)
		if !strings.Contains(lower, lowerBrand) {
			continue
		}
		for _, kw := range top {
			if kw == "" || !strings.Contains(lower, strings.ToLower(kw)) {
				continue
			}
			for _, noun := range featureNouns {
				if strings.Contains(lower, noun) {
					feature := strings.ToLower(kw) + " " + noun
					if !seen[feature] {
						seen[feature] = true
						out = append(out, feature)
					}
					break
				}
			}
			if len(out) == maxKeyFeatures {
				return out
			}
		}
	}
	return out
}

// targetAudience flags audience terms co-occurring with the brand within a
// 200-character window.
func targetAudience(lowerResponse, lowerBrand string) []string {
	out := []string{}
	seen := make(map[string]bool)

	brandIdx := strings.Index(lowerResponse, lowerBrand)
	if brandIdx < 0 {
		return out
	}

	for _, term := range audienceTerms {
		if seen[term] {
			continue
		}
		termIdx := strings.Index(lowerResponse, term)
		if termIdx < 0 {
			continue
		}
		distance := termIdx - brandIdx
		if distance < 0 {
			distance = -distance
		}
		if distance <= audienceWindow {
			seen[term] = true
			out = append(out, term)
			if len(out) == maxTargetAudience {
				break
			}
		}
	}
	return out
}

// useCases captures the text following "ideal for"-style phrases in sentences
// that mention the brand, up to 100 characters each.
func useCases(response, lowerBrand string) []string {
	out := []string{}

	for _, sentence := range splitSentences(response) {
		lower := strings.ToLower(sentence)
		if !strings.Contains(lower, lowerBrand) {
			continue
		}
		for _, pattern := range useCasePatterns {
			idx := strings.Index(lower, pattern)
			if idx < 0 {
				continue
			}
			captured := strings.TrimSpace(sentence[idx+len(pattern):])
			if captured == "" {
				continue
			}
			if len(captured) > useCaseCaptureLen {
				captured = captured[:useCaseCaptureLen]
			}
			out = append(out, captured)
			break
		}
		if len(out) == maxUseCases {
			break
		}
	}
	return out
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}
