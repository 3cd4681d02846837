package recommend

import (
	"regexp"
	"strings"
)

var (
	jsonCommentLine   = regexp.MustCompile(`//[^\n]*`)
	jsonHashComment   = regexp.MustCompile(`#[^\n]*`)
	trailingCommaObj  = regexp.MustCompile(`,\s*}`)
	trailingCommaList = regexp.MustCompile(`,\s*\]`)
)

// stripCodeFence removes a leading/trailing markdown code fence (```` ``` ````
// or ```` ```json ````) from an LLM completion, grounded on
// original_source's openai_handler._parse_json_from_text.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(text, "```json") && strings.HasSuffix(text, "```"):
		text = strings.TrimSuffix(strings.TrimPrefix(text, "```json"), "```")
	case strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```"):
		text = strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	}

	return strings.TrimSpace(text)
}

// fixCommonJSONDefects strips // and # line comments and trailing commas
// before a closing brace or bracket, grounded on original_source's
// openai_handler._fix_json.
func fixCommonJSONDefects(text string) string {
	text = jsonCommentLine.ReplaceAllString(text, "")
	text = jsonHashComment.ReplaceAllString(text, "")
	text = trailingCommaObj.ReplaceAllString(text, "}")
	text = trailingCommaList.ReplaceAllString(text, "]")
	return text
}
