package prompt

import (
	"fmt"
	"strings"
)

// GetSystemPrompt sets the assistant's role for every completion.
func GetSystemPrompt() string {
	return `You are a sustainability analyst helping a procurement team. Answer in plain text only (no markdown, no lists, no code fences). Be concrete and concise.`
}

// SummaryPrompt asks for a short narrative about the whole batch. Every
// non-blank product name is listed.
func SummaryPrompt(products []string) string {
	names := make([]string, 0, len(products))
	for _, p := range products {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		names = append(names, p)
	}
	if len(names) == 0 {
		names = append(names, "(no product names provided)")
	}
	return fmt.Sprintf(
		"A company purchased the following items: %s. In 2-3 sentences, summarize the overall environmental impact of this purchasing and where the biggest improvement opportunity is.",
		strings.Join(names, ", "),
	)
}

// AlternativePrompt asks for one greener substitute for a single product.
func AlternativePrompt(product string) string {
	return fmt.Sprintf(
		"Suggest one commonly available, more environmentally friendly alternative to %q. Reply with a single short sentence naming the alternative and why it is greener.",
		strings.TrimSpace(product),
	)
}

// Clean strips wrapping quotes and code fences some models add.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
