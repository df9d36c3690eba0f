// Package marketing is the marketing hub: demo campaign, A/B test and social
// post data, plus AI idea generation. Campaign data is demo-grade by design;
// real campaign execution lives outside this system.
package marketing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/logger"
)

// CachePrefix namespaces marketing cache keys
const CachePrefix = "marketing:"

// Idea kinds accepted by GenerateIdeas
const (
	KindCampaign = "campaign"
	KindWorkflow = "workflow"
	KindPost     = "post"
)

// Campaign is a demo marketing campaign
type Campaign struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"`
	Status    string    `json:"status"`
	Budget    float64   `json:"budget"`
	Clicks    int       `json:"clicks"`
	Leads     int       `json:"leads"`
	StartDate time.Time `json:"start_date"`
}

// ABTest is a demo A/B experiment
type ABTest struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	VariantA       string  `json:"variant_a"`
	VariantB       string  `json:"variant_b"`
	ConversionA    float64 `json:"conversion_a"`
	ConversionB    float64 `json:"conversion_b"`
	SampleSize     int     `json:"sample_size"`
	WinningVariant string  `json:"winning_variant"`
}

// SocialPost is a demo scheduled social media post
type SocialPost struct {
	ID          string    `json:"id"`
	Platform    string    `json:"platform"`
	Content     string    `json:"content"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Likes       int       `json:"likes"`
	Shares      int       `json:"shares"`
}

// IdeaGenerator is the AI hub surface the service uses for idea generation
type IdeaGenerator interface {
	GenerateIdeas(ctx context.Context, kind, prompt string) ([]string, error)
}

// Service exposes the marketing hub operations
type Service struct {
	ideas     IdeaGenerator
	llm       *openai.Client
	llmModel  string
	cache     *cache.QueryCache
	log       logger.Logger
	staleTime time.Duration
}

// NewService creates a marketing service. llm may be nil when no
// OpenAI-compatible endpoint is configured; ExpandIdea then degrades to an
// error.
func NewService(ideas IdeaGenerator, llm *openai.Client, llmModel string, qc *cache.QueryCache, log logger.Logger, staleTime time.Duration) *Service {
	return &Service{
		ideas:     ideas,
		llm:       llm,
		llmModel:  llmModel,
		cache:     qc,
		log:       log,
		staleTime: staleTime,
	}
}

// NewLLMClient builds an OpenAI-compatible client against a custom base URL.
// Returns nil when no key is configured.
func NewLLMClient(baseURL, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// Campaigns returns the demo campaign set, generated once per cache window
func (s *Service) Campaigns(ctx context.Context) ([]Campaign, error) {
	return cache.ReadThrough(ctx, s.cache, CachePrefix+"campaigns", s.staleTime,
		func(ctx context.Context) ([]Campaign, error) {
			return generateCampaigns(12), nil
		})
}

// ABTests returns the demo experiment set
func (s *Service) ABTests(ctx context.Context) ([]ABTest, error) {
	return cache.ReadThrough(ctx, s.cache, CachePrefix+"abtests", s.staleTime,
		func(ctx context.Context) ([]ABTest, error) {
			return generateABTests(6), nil
		})
}

// SocialPosts returns the demo social post set
func (s *Service) SocialPosts(ctx context.Context) ([]SocialPost, error) {
	return cache.ReadThrough(ctx, s.cache, CachePrefix+"posts", s.staleTime,
		func(ctx context.Context) ([]SocialPost, error) {
			return generateSocialPosts(20), nil
		})
}

// Refresh drops all cached demo data so the next read regenerates it.
// Run nightly by the scheduler.
func (s *Service) Refresh(ctx context.Context) error {
	return s.cache.Invalidate(ctx, CachePrefix)
}

// GenerateIdeas asks the AI hub for ideas of the given kind
func (s *Service) GenerateIdeas(ctx context.Context, kind, prompt string) ([]string, error) {
	switch kind {
	case KindCampaign, KindWorkflow, KindPost:
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("invalid idea kind: %q", kind))
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.NewValidationError("prompt is required")
	}
	return s.ideas.GenerateIdeas(ctx, kind, prompt)
}

// ExpandIdea turns a one-line idea into a short actionable brief using the
// configured LLM endpoint
func (s *Service) ExpandIdea(ctx context.Context, idea string) (string, error) {
	if strings.TrimSpace(idea) == "" {
		return "", domain.NewValidationError("idea is required")
	}
	if s.llm == nil {
		return "", domain.NewUpstreamError("no LLM endpoint configured", nil)
	}

	resp, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.llmModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a marketing strategist. Expand the given idea into a short brief with a goal, target audience and three concrete action items.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: idea,
			},
		},
	})
	if err != nil {
		return "", domain.NewUpstreamError("idea expansion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewUpstreamError("LLM returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func generateCampaigns(n int) []Campaign {
	statuses := []string{"draft", "active", "paused", "completed"}
	channels := []string{"email", "linkedin", "google_ads", "facebook"}

	campaigns := make([]Campaign, 0, n)
	for i := 0; i < n; i++ {
		campaigns = append(campaigns, Campaign{
			ID:        gofakeit.UUID(),
			Name:      gofakeit.Company() + " " + gofakeit.BuzzWord() + " campaign",
			Channel:   channels[gofakeit.Number(0, len(channels)-1)],
			Status:    statuses[gofakeit.Number(0, len(statuses)-1)],
			Budget:    gofakeit.Price(500, 50000),
			Clicks:    gofakeit.Number(100, 20000),
			Leads:     gofakeit.Number(0, 500),
			StartDate: gofakeit.DateRange(time.Now().AddDate(0, -3, 0), time.Now()),
		})
	}
	return campaigns
}

func generateABTests(n int) []ABTest {
	tests := make([]ABTest, 0, n)
	for i := 0; i < n; i++ {
		a := gofakeit.Float64Range(0.5, 12)
		b := gofakeit.Float64Range(0.5, 12)
		winner := "A"
		if b > a {
			winner = "B"
		}
		tests = append(tests, ABTest{
			ID:             gofakeit.UUID(),
			Name:           gofakeit.BuzzWord() + " subject line test",
			VariantA:       gofakeit.Sentence(6),
			VariantB:       gofakeit.Sentence(6),
			ConversionA:    a,
			ConversionB:    b,
			SampleSize:     gofakeit.Number(200, 10000),
			WinningVariant: winner,
		})
	}
	return tests
}

func generateSocialPosts(n int) []SocialPost {
	platforms := []string{"linkedin", "twitter", "facebook", "instagram"}
	statuses := []string{"draft", "scheduled", "published"}

	posts := make([]SocialPost, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, SocialPost{
			ID:          gofakeit.UUID(),
			Platform:    platforms[gofakeit.Number(0, len(platforms)-1)],
			Content:     gofakeit.Sentence(12),
			Status:      statuses[gofakeit.Number(0, len(statuses)-1)],
			ScheduledAt: gofakeit.DateRange(time.Now(), time.Now().AddDate(0, 1, 0)),
			Likes:       gofakeit.Number(0, 2000),
			Shares:      gofakeit.Number(0, 400),
		})
	}
	return posts
}
