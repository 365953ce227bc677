package models

import "time"

// BrandProfile is the tracked entity: its name, industry, keywords and known
// competitors. Keywords and competitors may be updated after creation; the
// rest is fixed.
type BrandProfile struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Name            string     `json:"name"`
	Industry        string     `json:"industry"`
	Keywords        []string   `json:"keywords"`
	Competitors     []string   `json:"competitors"`
	Website         string     `json:"website,omitempty"`
	VisibilityScore float64    `json:"visibility_score"`
	LastScanAt      *time.Time `json:"last_scan_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Sentiment values produced by the response analyzer.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// QueryResult is one LLM interaction: the query asked, the raw answer (or the
// call error), and the signals extracted from it. Immutable once created.
type QueryResult struct {
	Query                string          `json:"query"`
	Platform             string          `json:"platform"`
	Response             string          `json:"response"`
	Error                string          `json:"error,omitempty"`
	BrandMentioned       bool            `json:"brand_mentioned"`
	RankingPosition      *int            `json:"ranking_position,omitempty"` // 1..5
	Sentiment            string          `json:"sentiment"`
	CompetitorsMentioned []string        `json:"competitors_mentioned"`
	KeyFeatures          []string        `json:"key_features"`
	TargetAudience       []string        `json:"target_audience"`
	UseCases             []string        `json:"use_cases"`
	SourceDomains        []SourceDomain  `json:"source_domains"`
	SourceArticles       []SourceArticle `json:"source_articles"`
	TokenCount           int             `json:"token_count"`
}

// Scan lifecycle states. A scan leaves "running" exactly once.
const (
	ScanStatusRunning   = "running"
	ScanStatusCompleted = "completed"
	ScanStatusFailed    = "failed"
)

// ScanProgress tracks one in-flight scan for polling clients. Progress is
// monotonically non-decreasing and only the orchestrator writes it.
type ScanProgress struct {
	ID           string     `json:"scan_id"`
	BrandID      string     `json:"brand_id"`
	UserID       string     `json:"user_id"`
	TotalQueries int        `json:"total_queries"`
	Progress     int        `json:"progress"`
	CurrentQuery string     `json:"current_query,omitempty"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// ScanRecord is the persisted outcome of a completed scan.
type ScanRecord struct {
	ID               string        `json:"id"`
	BrandID          string        `json:"brand_id"`
	UserID           string        `json:"user_id"`
	Tier             ScanTier      `json:"tier"`
	Queries          []string      `json:"queries"`
	Results          []QueryResult `json:"results"`
	VisibilityScore  float64       `json:"visibility_score"`
	MentionedQueries int           `json:"mentioned_queries"`
	TotalQueries     int           `json:"total_queries"`
	CreatedAt        time.Time     `json:"created_at"`
}

// CompetitorRank is one row of the competitor ranking table.
type CompetitorRank struct {
	Name            string  `json:"name"`
	IsUserBrand     bool    `json:"is_user_brand"`
	VisibilityScore float64 `json:"visibility_score"`
	Rank            int     `json:"rank"`
	Mentions        int     `json:"mentions"`
	Queries         int     `json:"queries"`
}

// SourceDomain is a website the analysis attributes as a likely citation
// source. Synthesized records carry "estimated-*" categories so readers can
// tell them from observed ones.
type SourceDomain struct {
	Domain   string  `json:"domain"`
	Category string  `json:"category"`
	Impact   float64 `json:"impact"`
	Mentions int     `json:"mentions"`
	Queries  int     `json:"queries"`
}

// SourceArticle is a specific page attributed as a citation source.
type SourceArticle struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Impact   float64 `json:"impact"`
	Queries  int     `json:"queries"`
}

// ScanTier names a scan size. The tier fixes both the number of queries
// dispatched and the quota cost charged to the user.
type ScanTier string

const (
	TierQuick      ScanTier = "quick"
	TierStandard   ScanTier = "standard"
	TierDeep       ScanTier = "deep"
	TierCompetitor ScanTier = "competitor"
)

// QueryCost returns the number of queries a tier dispatches, which is also
// its fixed quota cost. Unknown tiers fall back to standard.
func (t ScanTier) QueryCost() int {
	switch t {
	case TierQuick:
		return 5
	case TierDeep:
		return 20
	default:
		return 10
	}
}

// Valid reports whether t is a recognized tier.
func (t ScanTier) Valid() bool {
	switch t {
	case TierQuick, TierStandard, TierDeep, TierCompetitor:
		return true
	}
	return false
}

// Plan describes a subscription level. The orchestrator never sees plans
// directly; it receives the resolved Identity below.
type Plan struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Brands    int     `json:"brands"`
	ScanQuota int     `json:"scan_quota"` // total query-units per billing period
}

// Plans is the fixed plan table.
var Plans = []Plan{
	{ID: "free", Name: "Free Plan", Price: 0, Brands: 1, ScanQuota: 10},
	{ID: "starter", Name: "Starter Plan", Price: 39, Brands: 1, ScanQuota: 50},
	{ID: "pro", Name: "Pro Plan", Price: 79, Brands: 4, ScanQuota: 200},
	{ID: "enterprise", Name: "Enterprise Plan", Price: 199, Brands: 20, ScanQuota: 1000},
}

// PlanByID returns the plan with the given id, defaulting to free.
func PlanByID(id string) Plan {
	for _, p := range Plans {
		if p.ID == id {
			return p
		}
	}
	return Plans[0]
}

// Identity is the already-authenticated caller handed to the orchestrator:
// who is scanning and how much quota their plan allows. Authentication and
// plan management live outside this service.
type Identity struct {
	UserID    string
	ScanLimit int
}
