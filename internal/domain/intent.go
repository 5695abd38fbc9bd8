package domain

// ============================================================
// Intent classification output
// ============================================================

// IntentType tags the complaint category detected for a user message.
// Classification itself happens in the NLP service; this core only
// consumes its output.
type IntentType string

const (
	IntentWrongOrder        IntentType = "WRONG_ORDER"
	IntentMissingItem       IntentType = "MISSING_ITEM"
	IntentLateDelivery      IntentType = "LATE_DELIVERY"
	IntentRefundRequest     IntentType = "REFUND_REQUEST"
	IntentEscalationRequest IntentType = "ESCALATION_REQUEST"
	IntentOrderStatus       IntentType = "ORDER_STATUS"
	IntentGeneralQuery      IntentType = "GENERAL_QUERY"
)

// Intent is the classified intent for one user message.
type Intent struct {
	Type       IntentType `json:"type"`
	Confidence float64    `json:"confidence"`
}

// ExtractedEntities are the structured facts pulled out of the message
// alongside the intent. All fields are optional.
type ExtractedEntities struct {
	OrderID         string   `json:"order_id,omitempty"`
	WrongItems      []string `json:"wrong_items,omitempty"`
	MissingItems    []string `json:"missing_items,omitempty"`
	ReportedIssues  []string `json:"reported_issues,omitempty"`
	FreeTextReason  string   `json:"free_text_reason,omitempty"`
	LatenessMinutes float64  `json:"lateness_minutes,omitempty"`
}

// ClassifiedMessage bundles everything the NLP service returns for a
// message: intent, entities and a sentiment score in [-1,1].
type ClassifiedMessage struct {
	Intent    Intent            `json:"intent"`
	Entities  ExtractedEntities `json:"entities"`
	Sentiment float64           `json:"sentiment"`
}
