package gateway

import (
	"fmt"
	"strings"

	"github.com/geocoder89/medtranslate/internal/domain/message"
)

func translatePrompt(text, targetLanguage string) string {
	return fmt.Sprintf(
		"Translate the following text to %s. Only provide the translation, nothing else.\n\n%s",
		targetLanguage, text,
	)
}

func summaryPrompt(msgs []message.Message) string {
	var b strings.Builder
	b.WriteString("Summarize the following doctor-patient conversation. ")
	b.WriteString("Include key medical points, concerns, and recommendations.\n\n")

	for _, m := range msgs {
		name := m.SenderName
		if name == "" {
			name = m.SenderRole
		}
		fmt.Fprintf(&b, "%s (%s): %s (Translation: %s)\n", name, m.SenderRole, m.OriginalText, m.Translation())
	}
	return b.String()
}
