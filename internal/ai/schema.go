package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-kids/internal/domain"
)

const questionSchemaJSON = `{
  "type": "object",
  "required": ["questionText", "options", "correctAnswer", "hint", "visualDescription", "requiresImage"],
  "properties": {
    "questionText": {"type": "string", "minLength": 1},
    "options": {
      "type": "array",
      "minItems": 3,
      "maxItems": 4,
      "items": {"type": "string", "minLength": 1}
    },
    "correctAnswer": {"type": "string", "minLength": 1},
    "hint": {"type": "string"},
    "visualDescription": {"type": "string"},
    "requiresImage": {"type": "boolean"}
  }
}`

var questionSchema = mustSchema(questionSchemaJSON)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compile question schema: %v", err))
	}
	return schema
}

// ParseQuestion decodes and validates a generated question payload. Besides
// the shape, the correct answer must be one of the options and options must
// be distinct ignoring case.
func ParseQuestion(data []byte) (domain.Question, error) {
	result, err := questionSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return domain.Question{}, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.Question{}, fmt.Errorf("%w: %s", ErrInvalidQuestion, strings.Join(msgs, "; "))
	}

	var q domain.Question
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.Question{}, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}

	if err := checkOptions(&q); err != nil {
		return domain.Question{}, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	return q, nil
}

// checkOptions rejects duplicate options and a correct answer outside the
// options. A correct answer that differs from an option only by case or
// Unicode form is rewritten to the option's exact text.
func checkOptions(q *domain.Question) error {
	fold := cases.Fold()
	key := func(s string) string {
		return fold.String(norm.NFC.String(strings.TrimSpace(s)))
	}

	seen := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		k := key(opt)
		if seen[k] {
			return fmt.Errorf("duplicate option %q", opt)
		}
		seen[k] = true
	}

	want := key(q.CorrectAnswer)
	for _, opt := range q.Options {
		if key(opt) == want {
			q.CorrectAnswer = opt
			return nil
		}
	}
	return fmt.Errorf("correct answer %q is not among the options", q.CorrectAnswer)
}
