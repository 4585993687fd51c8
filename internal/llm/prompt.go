package llm

import "strings"

// Fallback lists when the caller supplies no definitions.
var (
	defaultReceiptCategories = []string{
		"Auto", "Beauty", "Clothes", "Dining", "Drinks", "Experiences", "Gifts",
		"Groceries", "Home", "Misc", "Pets", "Subscriptions", "Taxi",
		"Technology", "Travel", "Wellness",
	}
	defaultReceiptCards = []string{"Cash", "Card"}
)

const receiptSystemPrompt = "Your task is to assist with the recording of expenses."

// receiptPrompt builds the vision prompt for receipt analysis, folding the
// valid category and payment-method lists into the inference rules.
func receiptPrompt(lists ImageContext) string {
	categories := lists.Categories
	if len(categories) == 0 {
		categories = defaultReceiptCategories
	}
	cards := lists.Cards
	if len(cards) == 0 {
		cards = defaultReceiptCards
	}

	var b strings.Builder
	b.WriteString(`Here is a photograph of a receipt or a screenshot of a mobile payment transaction confirmation.
Extract the following details from this receipt: [date, payee, currency, grand total, category, payment method].
Reply as a JSON-formatted string only. The date must be an ISO-8601 formatted date string (e.g. 2024-02-08).
An example:
{"date":"2024-12-08","payee":"Little Farms","currency":"SGD","total":123.10,"category":"Dining","payment_method":"card"}

Available Categories: `)
	b.WriteString(strings.Join(categories, ", "))
	b.WriteString("\nAvailable Payment Methods: ")
	b.WriteString(strings.Join(cards, ", "))
	b.WriteString(`

IMPORTANT INFERENCE RULES:
1. Infer the category from the receipt content, must be one of the available categories above or "UNKNOWN"
2. Infer the payment method from receipt details:
   - If the receipt appears to be a PayNow transaction, record as "Cash"
   - Otherwise, infer from visible payment method or use "UNKNOWN" if not identifiable
3. If the currency is unknown, default to SGD
4. If unable to process the request, reply as a JSON-formatted string like so:
{"error": "reason"}

NEVER wrap the response in markdown code blocks. Return only valid JSON.`)

	return b.String()
}
