package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jqlim/expense-bot/internal/llm"
	"github.com/jqlim/expense-bot/internal/model"
)

// CorrectionPatch carries the fields a correction instruction changes. Nil
// pointers mean the field is untouched.
type CorrectionPatch struct {
	Date          *string  `json:"date"`
	Payee         *string  `json:"payee"`
	Currency      *string  `json:"currency"`
	Total         *float64 `json:"total"`
	Category      *string  `json:"category"`
	PaymentMethod *string  `json:"payment_method"`
}

// Empty reports whether the patch changes nothing.
func (cp CorrectionPatch) Empty() bool {
	return cp.Date == nil && cp.Payee == nil && cp.Currency == nil &&
		cp.Total == nil && cp.Category == nil && cp.PaymentMethod == nil
}

// Apply merges the patch into a candidate. Currency codes are upper-cased;
// category and payment method stay as given since submit re-validates them
// against the definitions sheet.
func (cp CorrectionPatch) Apply(cand *model.ExpenseCandidate) {
	if cp.Date != nil {
		cand.Date = *cp.Date
	}
	if cp.Payee != nil {
		cand.Payee = strings.TrimSpace(*cp.Payee)
	}
	if cp.Currency != nil {
		cand.Currency = strings.ToUpper(strings.TrimSpace(*cp.Currency))
	}
	if cp.Total != nil {
		cand.Total = decimal.NewFromFloat(*cp.Total)
	}
	if cp.Category != nil {
		cand.Category = *cp.Category
	}
	if cp.PaymentMethod != nil {
		cand.PaymentMethod = *cp.PaymentMethod
	}
}

// InterpretCorrection asks the provider how a free-text instruction changes
// an existing candidate. A nil patch means the instruction did not read as a
// correction at all.
func (p *Parser) InterpretCorrection(ctx context.Context, cand model.ExpenseCandidate, instruction string) (*CorrectionPatch, error) {
	candJSON, err := json.Marshal(cand)
	if err != nil {
		return nil, fmt.Errorf("encoding candidate: %w", err)
	}

	response, err := p.client.CompleteChat(ctx, correctionPrompt(string(candJSON), instruction), nil)
	if err != nil {
		return nil, fmt.Errorf("correction interpretation: %w", err)
	}

	cleaned := strings.TrimSpace(llm.StripJSONFence(response))
	if cleaned == "" || cleaned == "null" {
		return nil, nil
	}

	var patch CorrectionPatch
	if err := json.Unmarshal([]byte(cleaned), &patch); err != nil {
		p.logger.Warn("unparseable correction response", "response", truncate(cleaned, 200))
		return nil, nil
	}
	if patch.Empty() {
		return nil, nil
	}
	if patch.Date != nil {
		canonical := model.CanonicalDate(*patch.Date, p.now())
		patch.Date = &canonical
	}
	return &patch, nil
}
