package ai

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-kids/internal/domain"
)

const illustrationStyle = "A cute, colorful, flat vector illustration for children educational app. White background. Minimalist style. "

func audienceContext(profile domain.Profile) string {
	if profile == domain.ProfileJunior {
		return "Target audience: 4 year old child (Kindergarten). Keep language extremely simple. Focus on basic vocabulary. Questions should be fun and playful. Visuals should be very simple and clear."
	}
	return "Target audience: 8 year old child (Primary 1/Grade 1). Focus on simple sentences, basic arithmetic, and critical thinking. Tone: Constructive and encouraging."
}

func questionPrompt(topic string, profile domain.Profile) string {
	var b strings.Builder
	b.WriteString("You are a teacher. ")
	b.WriteString(audienceContext(profile))
	fmt.Fprintf(&b, "\nCreate a question about: %q.", topic)
	b.WriteString(`
Provide a question with 3 or 4 multiple choice options.
If the specific topic implies a visual element (like counting, shapes, 'what is this', patterns), set requiresImage to true and provide a detailed visualDescription for an image generator.
If it is purely text based (like 2+2=, or spelling), set requiresImage to false.
The 'visualDescription' must be descriptive enough for an image generator to create a clear, kid-friendly illustration.`)
	return b.String()
}

func fallbackTopic(subject domain.Subject) string {
	return fmt.Sprintf("a fun beginner %s question", strings.ToLower(string(subject)))
}

// questionResponseSchema is the Gemini response schema for a question.
var questionResponseSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"questionText":      map[string]any{"type": "STRING"},
		"options":           map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
		"correctAnswer":     map[string]any{"type": "STRING"},
		"hint":              map[string]any{"type": "STRING"},
		"visualDescription": map[string]any{"type": "STRING"},
		"requiresImage":     map[string]any{"type": "BOOLEAN"},
	},
	"required": []string{"questionText", "options", "correctAnswer", "hint", "visualDescription", "requiresImage"},
}
