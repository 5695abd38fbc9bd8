package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/quickplate/support-core-go/internal/domain"
)

// KeywordClassifier is the degraded-mode classifier used when the NLP
// service is unreachable. Plain keyword matching, low confidence, no
// entity extraction beyond an order id pattern. It keeps the pipeline
// answering instead of erroring.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the fallback classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var orderIDPattern = regexp.MustCompile(`\border[- #]*([A-Za-z0-9-]{4,})`)

// intentKeywords maps keyword groups to intents. Order matters: the
// first group with a hit wins, so the more specific complaints come
// before the generic refund ask.
var intentKeywords = []struct {
	intent   domain.IntentType
	keywords []string
}{
	{domain.IntentEscalationRequest, []string{
		"speak to a human", "talk to a manager", "talk to a supervisor",
		"real person", "human agent", "escalate",
	}},
	{domain.IntentWrongOrder, []string{
		"wrong order", "wrong item", "not what i ordered", "someone else's order",
		"different order", "incorrect order",
	}},
	{domain.IntentMissingItem, []string{
		"missing", "didn't get", "did not get", "wasn't in the bag",
		"not in the bag", "forgot my", "left out",
	}},
	{domain.IntentLateDelivery, []string{
		"late", "took forever", "still waiting", "delayed", "over an hour",
		"cold food",
	}},
	{domain.IntentRefundRequest, []string{
		"refund", "money back", "charge back", "want my money",
	}},
	{domain.IntentOrderStatus, []string{
		"where is my order", "order status", "track my order", "how long until",
	}},
}

type intentPatterns struct {
	intent   domain.IntentType
	patterns []*regexp.Regexp
}

// compiledIntents holds the keyword groups as word-boundary patterns,
// so "late" hits "20 minutes late" but not "chocolate" or "plate".
var compiledIntents = compileIntents()

func compileIntents() []intentPatterns {
	compiled := make([]intentPatterns, 0, len(intentKeywords))
	for _, group := range intentKeywords {
		g := intentPatterns{intent: group.intent}
		for _, kw := range group.keywords {
			g.patterns = append(g.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
		}
		compiled = append(compiled, g)
	}
	return compiled
}

// negativeWords is a tiny sentiment lexicon for degraded mode.
var negativeWords = []string{
	"angry", "furious", "terrible", "awful", "worst", "ridiculous",
	"unacceptable", "disgusting", "never again",
}

// Classify implements port.IntentClassifier with keywords only.
func (c *KeywordClassifier) Classify(_ context.Context, _ string, text string) (*domain.ClassifiedMessage, error) {
	lc := strings.ToLower(text)

	result := &domain.ClassifiedMessage{
		Intent: domain.Intent{Type: domain.IntentGeneralQuery, Confidence: 0.3},
	}

	for _, group := range compiledIntents {
		for _, p := range group.patterns {
			if p.MatchString(lc) {
				result.Intent = domain.Intent{Type: group.intent, Confidence: 0.5}
				break
			}
		}
		if result.Intent.Type != domain.IntentGeneralQuery {
			break
		}
	}

	if m := orderIDPattern.FindStringSubmatch(lc); m != nil {
		result.Entities.OrderID = m[1]
	}

	for _, w := range negativeWords {
		if strings.Contains(lc, w) {
			result.Sentiment -= 0.3
		}
	}
	if result.Sentiment < -1 {
		result.Sentiment = -1
	}

	return result, nil
}
