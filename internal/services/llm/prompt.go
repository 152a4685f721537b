package llm

import (
	"fmt"

	"farsisub/internal/language"
)

// SystemPrompt returns the translator instruction for the target language.
// Persian gets the wording the service was tuned with.
func SystemPrompt(target string) string {
	if code := language.ToISO2(target); code == "" || code == "fa" {
		return "You are a professional Farsi translator. Translate the text into fluent, natural Persian with accurate tone, and avoid literal translations. Reply with the translation only."
	}
	name := language.DisplayName(target)
	return fmt.Sprintf("You are a professional %s translator. Translate the text into fluent, natural %s with accurate tone, and avoid literal translations. Reply with the translation only.", name, name)
}
