package queries

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/brandlens/visibility-scanner/internal/models"
	"github.com/brandlens/visibility-scanner/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of the provider interface
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (*provider.Completion, error) {
	args := m.Called(ctx, req)
	if completion := args.Get(0); completion != nil {
		return completion.(*provider.Completion), args.Error(1)
	}
	return nil, args.Error(1)
}

func testBrand() *models.BrandProfile {
	return &models.BrandProfile{
		ID:          "brand-1",
		Name:        "Acme",
		Industry:    "email marketing",
		Keywords:    []string{"automation", "newsletters"},
		Competitors: []string{"Zeta", "Omega"},
	}
}

func TestTemplateQueries_Bounds(t *testing.T) {
	qs := TemplateQueries("Acme", "email marketing", []string{"automation", "newsletters"}, []string{"Zeta", "Omega"})

	assert.NotEmpty(t, qs)
	assert.LessOrEqual(t, len(qs), MaxQueries)

	seen := make(map[string]bool)
	for _, q := range qs {
		assert.False(t, seen[q], "duplicate query %q", q)
		seen[q] = true
		assert.True(t, strings.HasSuffix(q, "?"), "query %q does not end with a question mark", q)
	}
}

func TestTemplateQueries_DiscoveryFirst(t *testing.T) {
	qs := TemplateQueries("Acme", "crm", nil, nil)

	// Truncated plans must keep the broadest queries, so discovery leads.
	assert.Contains(t, qs[0], "crm")
	assert.Contains(t, qs[0], "best")
}

func TestTemplateQueries_CompetitorComparisons(t *testing.T) {
	qs := TemplateQueries("Acme", "crm", nil, []string{"Zeta"})

	joined := strings.Join(qs, "\n")
	assert.Contains(t, joined, "How does Acme compare to Zeta?")
	assert.Contains(t, joined, "What is a good alternative to Zeta?")
}

func TestTemplateQueries_ManyKeywordsStaysBounded(t *testing.T) {
	keywords := make([]string, 20)
	competitors := make([]string, 20)
	for i := range keywords {
		keywords[i] = fmt.Sprintf("keyword-%d", i)
		competitors[i] = fmt.Sprintf("competitor-%d", i)
	}

	qs := TemplateQueries("Acme", "crm", keywords, competitors)
	assert.LessOrEqual(t, len(qs), MaxQueries)

	// Only the top keywords and competitors contribute.
	joined := strings.Join(qs, "\n")
	assert.NotContains(t, joined, "keyword-4")
	assert.NotContains(t, joined, "competitor-3")
}

func TestGenerate_NilProviderUsesTemplates(t *testing.T) {
	generator := NewGenerator(nil)

	qs := generator.Generate(context.Background(), testBrand())
	assert.Equal(t, TemplateQueries("Acme", "email marketing", []string{"automation", "newsletters"}, []string{"Zeta", "Omega"}), qs)
}

func TestGenerate_LLMFailureFallsBack(t *testing.T) {
	mockProvider := &MockProvider{}
	mockProvider.On("Complete", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("provider unavailable"))

	generator := NewGenerator(mockProvider)
	qs := generator.Generate(context.Background(), testBrand())

	assert.NotEmpty(t, qs)
	assert.Equal(t, TemplateQueries("Acme", "email marketing", []string{"automation", "newsletters"}, []string{"Zeta", "Omega"}), qs)
	mockProvider.AssertExpectations(t)
}

func TestGenerate_ShortLLMOutputFallsBack(t *testing.T) {
	mockProvider := &MockProvider{}
	mockProvider.On("Complete", mock.Anything, mock.Anything).Return(&provider.Completion{
		Text: "What is the best email tool?\nHow much does it cost?",
	}, nil)

	generator := NewGenerator(mockProvider)
	qs := generator.Generate(context.Background(), testBrand())

	// Two usable lines is below the threshold, so the templates win.
	assert.Equal(t, TemplateQueries("Acme", "email marketing", []string{"automation", "newsletters"}, []string{"Zeta", "Omega"}), qs)
}

func TestGenerate_UsableLLMOutput(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("%d. What should I know about email platform number %d", i+1, i+1))
	}

	mockProvider := &MockProvider{}
	mockProvider.On("Complete", mock.Anything, mock.Anything).Return(&provider.Completion{
		Text: strings.Join(lines, "\n"),
	}, nil)

	generator := NewGenerator(mockProvider)
	qs := generator.Generate(context.Background(), testBrand())

	assert.Len(t, qs, 20)
	for _, q := range qs {
		assert.True(t, strings.HasSuffix(q, "?"), "query %q does not end with a question mark", q)
		assert.NotRegexp(t, `^\d`, q, "list marker not stripped from %q", q)
	}
}

func TestUsableLines(t *testing.T) {
	text := "1. What is the best crm tool\n" +
		"- How much does crm software cost?\n" +
		"short\n" +
		"\n" +
		"# Which platform fits a startup best!"

	lines := usableLines(text)

	assert.Equal(t, []string{
		"What is the best crm tool?",
		"How much does crm software cost?",
		"Which platform fits a startup best?",
	}, lines)
}
