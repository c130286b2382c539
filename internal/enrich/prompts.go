package enrich

import "fmt"

// SuggestionPrompt asks for jargon, glossary terms and follow-up ideas for the conversation
func SuggestionPrompt(context string) string {
	return fmt.Sprintf(`[INST]
You are a real-time conversation enhancer.

Input: %s

Your task:
- Do NOT repeat or reference the input.
- Output only three bullet lists:
  - jargon: domain-relevant jargon (short buzzwords only)
  - glossary: compact glossary terms (noun phrases)
  - followup: follow-up ideas (noun phrases or fragments)

Respond using clean markdown bullet points only. No intro, no explanation, no labels.
[/INST]`, context)
}

// SupportPrompt picks the assistance prompt for the detected speech signals
func SupportPrompt(context string, ambiguous, hesitant bool) string {
	switch {
	case ambiguous && hesitant:
		return fmt.Sprintf(`[INST]
The user appears to be speaking hesitantly while trying to recall a specific name, term, or concept.

Input: %s

Your task:
- Offer 3–5 possible terms or concepts the user may be trying to recall.
- Offer brief descriptions.
- Be helpful and speculative.

Format:
- guess 1: description
- guess 2: description
...
[/INST]`, context)

	case ambiguous:
		return fmt.Sprintf(`[INST]
The user appears to be trying to recall a specific name, term, or concept.

Input: %s

Your task:
- Offer 3–5 possible terms the user may be trying to remember.
- Include short descriptions.

Format:
- guess 1: description
...
[/INST]`, context)

	case hesitant:
		return fmt.Sprintf(`[INST]
The user is speaking hesitantly and might be unsure.

Input: %s

Your task:
- Offer 2–3 clarifying suggestions.
- Suggest possible interpretations.

Format:
- clarification: suggestion
...
[/INST]`, context)

	default:
		return fmt.Sprintf(`[INST]
You are a real-time conversation enhancer.

Input: %s

Your task:
- Output three bullet lists:
  - jargon: domain buzzwords
  - glossary: key noun phrases
  - followup: good next ideas

No input repeats. Markdown bullets only.
[/INST]`, context)
	}
}
