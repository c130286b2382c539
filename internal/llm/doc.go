// Package llm provides the suggestion providers and the ordered fallback chain.
// OpenRouter and Groq are reached through the OpenAI-compatible client, Gemini through genai.
package llm
