package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/korelabs/kore/internal/model"
)

// buildParsePrompt embeds the current date, the serialized history window and
// the raw utterance into the intent-classification prompt. The bilingual
// response rule is part of the contract: the conversational response must be
// in the same language as the input.
func buildParsePrompt(utterance, historyJSON string, today time.Time) string {
	return fmt.Sprintf(`Current Date: %s
Transaction History: %s
User Input: %q

You are a smart financial assistant. Analyze the User Input and determine the INTENT.
The user may speak in English or Romanian.
If the input is in Romanian, the "conversational_response" MUST be in Romanian.
If the input is in English, the "conversational_response" MUST be in English.

---
INTENT 1: ADD_TRANSACTION
Trigger: User wants to log an expense or income (e.g., "Spent 50 on pizza", "Salary came in", "Am cheltuit 50 lei pe pizza", "A intrat salariul").
Rules for extraction:
- Amount: find the number representing the cost or income. Ignore currency tokens like "lei", "RON", "$", "EUR". If multiple numbers appear, pick the one that looks like a price.
- Category: choose the best match from: %s.
- Date: YYYY-MM-DD, default to today.
Output JSON:
{
  "intent": "add",
  "type": "expense" | "income",
  "amount": number,
  "category": string,
  "note": "short description (keep original language)",
  "date": "YYYY-MM-DD",
  "conversational_response": string
}

---
INTENT 2: QUERY
Trigger: User asks a question about their finances (e.g., "How much did I spend on food?", "Cat am cheltuit pe mancare?").
Action: Answer STRICTLY from the "Transaction History" provided above. Do not invent figures that cannot be derived from it.
Output JSON:
{
  "intent": "query",
  "conversational_response": string
}

---
INTENT 3: FORECAST
Trigger: User asks about future spending or a prediction (e.g., "How much will I spend next month?", "Cat crezi ca o sa cheltui luna viitoare?").
Action: Estimate from recurrence and averages in the "Transaction History".
Output JSON:
{
  "intent": "forecast",
  "conversational_response": string
}

---
Rules:
1. Detect the language of the "User Input".
2. Respond in the SAME language as the input.
3. For ADD, default to "expense" if unclear.
4. Output STRICTLY valid JSON, no prose, no markdown.`,
		today.Format(model.DateLayout),
		historyJSON,
		utterance,
		quotedList(model.Categories))
}

// buildSuggestPrompt asks for a category for a free-text note. Unlike the
// add path, this flow may synthesize a new single-word category.
func buildSuggestPrompt(note string, existing []string) string {
	return fmt.Sprintf(`You are a categorization assistant.
Analyze the transaction note: %q.
Map it to one of these existing categories: %s.

Rules:
1. If it clearly fits an existing category, return that category.
2. If it does not fit, suggest a NEW, short, generic category name (One word, Capitalized, English).
3. Be smart about cultural context (e.g., "Mega Image" is Food/Groceries).
4. Output STRICT JSON: { "category": "CategoryName" }`,
		note, quotedList(existing))
}

// buildForecastPrompt asks for a 30-day daily balance projection from 90
// days of history plus the current balance.
func buildForecastPrompt(historyJSON string, currentBalance float64, today time.Time) string {
	return fmt.Sprintf(`Current Date: %s
Current Balance: %.2f
Transaction History (Last 90 Days): %s

GOAL: Forecast the daily balance for the NEXT 30 DAYS.
INSTRUCTIONS:
1. Analyze the history to identify RECURRING bills/income.
2. Estimate average daily VARIABLE spending.
3. Generate a daily forecast starting from tomorrow.
4. Output STRICT JSON Array: [{ "date": "YYYY-MM-DD", "balance": number, "reason": "string" }]`,
		today.Format(model.DateLayout), currentBalance, historyJSON)
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
