package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"veritas/internal/adapters/ai"
	"veritas/internal/adapters/search"
	"veritas/internal/domain/resolution"
	"veritas/pkg/errors"
	"veritas/pkg/logger"
)

// Analysis is the outcome of one natural-language analysis pass over
// retrieved documents.
type Analysis struct {
	Recommendation resolution.Recommendation `json:"recommendation"`
	Confidence     float64                   `json:"confidence"` // 0-1
	Reasoning      string                    `json:"reasoning"`
	Articles       int                       `json:"articles"`
}

// Analyzer produces an independent truth assessment for a claim text.
type Analyzer interface {
	Analyze(ctx context.Context, claimText string) (*Analysis, error)
}

const analysisSystemPrompt = `You are a fact resolution analyst. Given a prediction-market claim and retrieved reference documents, decide whether the claim resolved YES or NO. Only use the provided documents. Respond with a single JSON object:
{"recommendation": "YES" | "NO" | "INCONCLUSIVE", "confidence": <0.0-1.0>, "reasoning": "<one paragraph>"}
Use INCONCLUSIVE when the documents do not settle the claim.`

// LLMAnalyzer retrieves documents for a claim and asks a chat model for a
// recommendation with confidence.
type LLMAnalyzer struct {
	searcher search.Searcher
	chat     ai.ChatProvider
	model    string
	maxDocs  int
	log      *logger.Logger
}

// NewLLMAnalyzer creates an analyzer over a document searcher and chat provider.
func NewLLMAnalyzer(searcher search.Searcher, chat ai.ChatProvider, model string) *LLMAnalyzer {
	return &LLMAnalyzer{
		searcher: searcher,
		chat:     chat,
		model:    model,
		maxDocs:  8,
		log:      logger.Get().With("component", "llm_analyzer"),
	}
}

// Analyze retrieves documents and parses the model's JSON verdict. A claim
// with no retrievable documents returns an inconclusive analysis rather than
// an error: absence of coverage is an answer, not a failure.
func (a *LLMAnalyzer) Analyze(ctx context.Context, claimText string) (*Analysis, error) {
	docs, err := a.searcher.Search(ctx, claimText, a.maxDocs)
	if err != nil {
		return nil, errors.Wrap(err, "search documents")
	}

	if len(docs) == 0 {
		return &Analysis{
			Recommendation: resolution.RecommendUncertain,
			Confidence:     0,
			Reasoning:      "no reference documents found for claim",
			Articles:       0,
		}, nil
	}

	resp, err := a.chat.Chat(ctx, ai.ChatRequest{
		Model:       a.model,
		Temperature: 0,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: analysisSystemPrompt},
			{Role: ai.RoleUser, Content: buildAnalysisPrompt(claimText, docs)},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "chat completion")
	}

	analysis, err := parseAnalysis(resp.Content)
	if err != nil {
		return nil, errors.Wrap(err, "parse analysis")
	}
	analysis.Articles = len(docs)

	a.log.Debugw("Analysis completed",
		"recommendation", analysis.Recommendation,
		"confidence", analysis.Confidence,
		"articles", analysis.Articles,
	)

	return analysis, nil
}

func buildAnalysisPrompt(claimText string, docs []search.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\n\nDocuments:\n", claimText)
	for i, doc := range docs {
		fmt.Fprintf(&b, "%d. [%s] %s - %s\n", i+1, doc.Source, doc.Title, doc.Snippet)
	}
	return b.String()
}

// parseAnalysis extracts the JSON verdict, tolerating markdown code fences
// some models wrap responses in.
func parseAnalysis(content string) (*Analysis, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var raw struct {
		Recommendation string  `json:"recommendation"`
		Confidence     float64 `json:"confidence"`
		Reasoning      string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, err
	}

	analysis := &Analysis{
		Confidence: raw.Confidence,
		Reasoning:  raw.Reasoning,
	}
	switch strings.ToUpper(strings.TrimSpace(raw.Recommendation)) {
	case "YES":
		analysis.Recommendation = resolution.RecommendYes
	case "NO":
		analysis.Recommendation = resolution.RecommendNo
	default:
		analysis.Recommendation = resolution.RecommendUncertain
	}
	if analysis.Confidence < 0 {
		analysis.Confidence = 0
	}
	if analysis.Confidence > 1 {
		analysis.Confidence = 1
	}

	return analysis, nil
}
