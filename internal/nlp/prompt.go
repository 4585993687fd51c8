package nlp

import (
	"fmt"
	"strings"
)

// systemPrompt builds the extraction instructions with the valid category and
// payment-method lists folded in. The provider must answer with a single JSON
// object and nothing else.
func systemPrompt(categories, methods []string) string {
	return fmt.Sprintf(`You are an expense parsing assistant. Your job is to extract expense information from natural language input.

Available Categories: %s
Available Payment Methods: %s

From the user's input, extract:
1. Amount (required) - must be a positive number
2. Payee/Merchant (required) - name of the store/merchant
3. Category (infer from payee, must be one of the available categories, or "UNKNOWN")
4. Payment Method (infer from user's mention or context, must be one of the available methods, or "UNKNOWN")
5. Currency (infer from user's mention, default to SGD)
6. Date (infer from user's mention, MUST be a valid ISO-8601 date string if provided, otherwise return null)

IMPORTANT RULES:
- If payment method is not mentioned or unknown, use "UNKNOWN"
- Always assume SGD currency unless explicitly stated otherwise
- Smart category inference: NTUC Fairprice → Groceries, Starbucks → Dining, Watsons → Beauty, etc.
- If you can't determine a category, use "UNKNOWN"
- If currency is not SGD, convert the amount to SGD
- NEVER wrap the response in markdown code blocks or `+"```json"+` tags
- For date: if user specifies a date, return valid ISO-8601 format (YYYY-MM-DD). If NO date is mentioned or unknown, return null
- Return ONLY raw JSON, nothing else

Respond with ONLY this JSON structure (no markdown, no extra text):
{"amount": <number>, "payee": "<string>", "category": "<string>", "payment_method": "<string>", "currency": "<string>", "date": "<YYYY-MM-DD or null>", "error": null}

If you cannot parse the input or it's invalid, return:
{"error": "<reason>", "amount": null, "payee": null, "category": null, "payment_method": null, "currency": null, "date": null}`,
		strings.Join(categories, ", "), strings.Join(methods, ", "))
}

// correctionPrompt asks the provider for a patch containing only the fields
// the instruction changes; all other keys must be null.
func correctionPrompt(candidateJSON, instruction string) string {
	return fmt.Sprintf(`You are an expense correction assistant. The user recorded this expense:

%s

The user now says: %q

Return a JSON object with the same keys ("date", "payee", "currency", "total", "category", "payment_method") where ONLY the fields the user wants changed carry their new values and every other field is null. The date, if changed, must be a valid ISO-8601 date string (YYYY-MM-DD). NEVER wrap the response in markdown code blocks. Return ONLY raw JSON, nothing else.`,
		candidateJSON, instruction)
}
