package llm

import (
	"regexp"
	"strings"
)

// Models sometimes wrap JSON output in markdown code fences even when told
// not to. The contract tolerates and strips the ```json wrapper before
// parsing.
var fencePattern = regexp.MustCompile("```json\n?|\n?```")

// sanitizeResponse strips markdown code fences and surrounding whitespace
// from a raw model response, leaving (hopefully) bare JSON.
func sanitizeResponse(raw string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
}
