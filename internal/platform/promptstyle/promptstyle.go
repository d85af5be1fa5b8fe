package promptstyle

import "strings"

const marker = "SESSIONSCRIBE_PROMPT_STYLE_V1"

// ApplySystem prepends a short guidance block to a system prompt. It is idempotent.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou are a careful chronicler of tabletop roleplaying sessions.")
	b.WriteString("\nUse only what the transcript and supplied context state; never invent events, names or outcomes.")
	b.WriteString("\nRefer to players by their characters unless the task says otherwise.")
	if mode == "json" {
		b.WriteString("\nReturn a single JSON object that conforms to the schema and contains no extra keys.")
	} else {
		b.WriteString("\nOutput only the requested document, with no preamble or commentary.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}
