package ai

import (
	"errors"
	"testing"
)

func TestParseQuestion(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantErr     bool
		wantCorrect string
	}{
		{"valid", validQuestionJSON, false, "2"},
		{"case-insensitive answer is canonicalized", `{"questionText":"Pick","options":["Cat","Dog","Hat"],"correctAnswer":"hat","hint":"","visualDescription":"","requiresImage":false}`, false, "Hat"},
		{"too few options", `{"questionText":"q","options":["a","b"],"correctAnswer":"a","hint":"","visualDescription":"","requiresImage":false}`, true, ""},
		{"too many options", `{"questionText":"q","options":["a","b","c","d","e"],"correctAnswer":"a","hint":"","visualDescription":"","requiresImage":false}`, true, ""},
		{"duplicate options", `{"questionText":"q","options":["Sun","sun","Moon"],"correctAnswer":"Moon","hint":"","visualDescription":"","requiresImage":false}`, true, ""},
		{"empty text", `{"questionText":"","options":["a","b","c"],"correctAnswer":"a","hint":"","visualDescription":"","requiresImage":false}`, true, ""},
		{"wrong type", `{"questionText":"q","options":["a","b","c"],"correctAnswer":"a","hint":"","visualDescription":"","requiresImage":"yes"}`, true, ""},
		{"garbage", `not json`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuestion([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseQuestion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidQuestion) {
					t.Errorf("error = %v, want ErrInvalidQuestion", err)
				}
				return
			}
			if q.CorrectAnswer != tt.wantCorrect {
				t.Errorf("CorrectAnswer = %q, want %q", q.CorrectAnswer, tt.wantCorrect)
			}
		})
	}
}
