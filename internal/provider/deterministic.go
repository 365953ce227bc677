package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// DeterministicProvider synthesizes answers without any external service.
// Running without an API key is a supported mode, not an error: the rest of
// the pipeline exercises its full extraction path against these responses.
// Output is a pure function of the request, so scans are reproducible.
type DeterministicProvider struct{}

var _ Provider = (*DeterministicProvider)(nil)

// NewDeterministicProvider creates the fallback provider.
func NewDeterministicProvider() *DeterministicProvider {
	return &DeterministicProvider{}
}

func (p *DeterministicProvider) Name() string {
	return "simulated"
}

var positiveOpeners = []string{
	"is an excellent choice with great automation features",
	"works well and has helpful onboarding",
	"is a fantastic option for growing teams",
}

var neutralOpeners = []string{
	"offers a standard set of tools",
	"covers the basics most teams need",
	"provides typical functionality for the category",
}

// Complete builds a ranked-list style answer seeded by the prompt text. The
// brand is mentioned in roughly 60% of answers; a citation section is
// appended for roughly half so both extractor paths get exercised.
func (p *DeterministicProvider) Complete(_ context.Context, req CompletionRequest) (*Completion, error) {
	h := fnv.New32a()
	h.Write([]byte(req.Prompt))
	h.Write([]byte(req.Context.Brand))
	seed := h.Sum32()

	brand := req.Context.Brand
	if brand == "" {
		brand = "the product"
	}
	industry := req.Context.Industry
	if industry == "" {
		industry = "software"
	}

	mentioned := seed%10 < 6
	position := int(seed%3) + 1

	names := make([]string, 0, 4)
	for i, c := range req.Context.Competitors {
		if i >= 3 {
			break
		}
		names = append(names, c)
	}
	if mentioned {
		// Splice the brand in at its seeded position.
		idx := position - 1
		if idx > len(names) {
			idx = len(names)
		}
		names = append(names[:idx], append([]string{brand}, names[idx:]...)...)
	}
	if len(names) == 0 {
		names = []string{fmt.Sprintf("a popular %s tool", industry)}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here are the leading %s options to consider:\n\n", industry)
	for i, name := range names {
		opener := neutralOpeners[int(seed)%len(neutralOpeners)]
		if name == brand && seed%4 != 0 {
			opener = positiveOpeners[int(seed)%len(positiveOpeners)]
		}
		fmt.Fprintf(&b, "%d. %s %s.\n", i+1, name, opener)
	}

	if mentioned && len(req.Context.Keywords) > 0 {
		kw := req.Context.Keywords[int(seed)%len(req.Context.Keywords)]
		fmt.Fprintf(&b, "\n%s is ideal for small business teams that need %s capability.\n", brand, strings.ToLower(kw))
	}

	if seed%2 == 0 {
		slug := strings.ToLower(strings.ReplaceAll(industry, " ", "-"))
		fmt.Fprintf(&b, "\nSOURCE DOMAINS\n")
		fmt.Fprintf(&b, "DOMAIN: www.g2.com - peer review comparisons\n")
		fmt.Fprintf(&b, "DOMAIN: www.capterra.com - software directory listings\n")
		fmt.Fprintf(&b, "\nSOURCE ARTICLES\n")
		fmt.Fprintf(&b, "ARTICLE: https://www.g2.com/categories/%s - Best %s Software\n", slug, industry)
		fmt.Fprintf(&b, "ARTICLE: https://www.capterra.com/%s-software - Top %s Tools Compared\n", slug, industry)
		fmt.Fprintf(&b, "ARTICLE: https://blog.%s.com/buyers-guide - %s Buyer's Guide\n", slug, industry)
	}

	text := b.String()
	return &Completion{
		Text:       text,
		TokenCount: len(strings.Fields(text)),
	}, nil
}
