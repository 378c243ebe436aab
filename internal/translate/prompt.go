package translate

import (
	"fmt"

	"crm-segment-engine/internal/segment"
)

// SegmentPrompt wraps a natural-language segment description with
// instructions pinning the output contract. Date rule values must be epoch
// milliseconds; that is the one canonical representation the evaluator
// accepts without guessing.
func SegmentPrompt(description string) string {
	return fmt.Sprintf(`Convert the following natural language segment description to JSON segment rules:

%q

Return only JSON of this shape:
{
  "description": "(original query)",
  "rules": [
    {"field": "lastVisit", "operator": "<", "value": 1700000000000, "humanReadable": "last visit before ..."},
    {"field": "spends", "operator": ">", "value": 5000, "humanReadable": "spent over 5,000"}
  ]
}

Allowed fields: name, email, spends, visits, lastVisit.
Allowed operators: >, <, >=, <=, ==, !=, contains, startsWith, endsWith.
Date values must be epoch milliseconds.
Only return valid JSON. No introductory text or explanations.`, description)
}

// SuggestionPrompt asks for three candidate campaign messages for an
// objective. Same contract discipline as the segment prompt: JSON only,
// fixed shape.
func SuggestionPrompt(objective string) string {
	return fmt.Sprintf(`Generate message suggestions for the following campaign objective:

%q

Return exactly 3 message variations as JSON of this shape:
{
  "objective": "(the original objective)",
  "suggestions": [
    {
      "subject": "(catchy subject line)",
      "body": "(compelling message body)",
      "tone": "(casual/professional/urgent/friendly/etc.)",
      "imageType": "(suggested product or offer image type)"
    }
  ]
}

Only return valid JSON. No introductory text or explanations.`, objective)
}

// InsightPrompt asks the model for a short marketing narrative over the
// computed aggregates. Only the numbers travel; the narrative is an
// integration concern, not part of the stats computation.
func InsightPrompt(st segment.Stats) string {
	return fmt.Sprintf(`Generate a human-readable insight summary for a marketing campaign with the following stats:
- Total audience size: %d
- Messages sent successfully: %d
- Messages failed to deliver: %d
- High-value customers: %d
- Delivery rate for high-value customers: %s
- Customers who purchased in the last week: %d

Keep it to 2-3 sentences a marketing manager would find helpful, include the
specific numbers above, and focus on the marketing implications.`,
		st.AudienceSize,
		st.SentCount,
		st.FailedCount,
		st.HighValueCount,
		segment.FormatRate(st.HighValueDeliveryRate),
		st.RecentPurchaserCount,
	)
}
