// Package domain defines the shared vocabulary of the quiz game: age profiles,
// subjects, generated questions, badges and recorded answers.
package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Profile selects the age tier content is generated for.
type Profile string

const (
	ProfileJunior Profile = "junior"
	ProfileSenior Profile = "senior"
)

// ParseProfile accepts the canonical names as well as the "4yo"/"8yo" aliases.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "junior", "4yo":
		return ProfileJunior, nil
	case "senior", "8yo":
		return ProfileSenior, nil
	default:
		return "", fmt.Errorf("unknown profile %q", s)
	}
}

// Greeting is the name the player is addressed by on the home screen.
func (p Profile) Greeting() string {
	if p == ProfileJunior {
		return "Little Explorer"
	}
	return "Junior Genius"
}

// Voice is the prebuilt speech voice used for this profile.
func (p Profile) Voice() string {
	if p == ProfileJunior {
		return "Puck"
	}
	return "Kore"
}

// Subject selects which topic pool a question is drawn from.
type Subject string

const (
	SubjectEnglish Subject = "ENGLISH"
	SubjectMath    Subject = "MATH"
	SubjectLogic   Subject = "LOGIC"
	SubjectPuzzles Subject = "PUZZLES"
)

// Subjects lists every subject in menu order.
var Subjects = []Subject{SubjectEnglish, SubjectMath, SubjectLogic, SubjectPuzzles}

// ParseSubject parses a subject name case-insensitively.
func ParseSubject(s string) (Subject, error) {
	subject := Subject(strings.ToUpper(strings.TrimSpace(s)))
	if !subject.Valid() {
		return "", fmt.Errorf("unknown subject %q", s)
	}
	return subject, nil
}

// Valid reports whether s is one of the known subjects.
func (s Subject) Valid() bool {
	switch s {
	case SubjectEnglish, SubjectMath, SubjectLogic, SubjectPuzzles:
		return true
	}
	return false
}

// Question is a generated multiple choice question.
type Question struct {
	Text              string   `json:"questionText"`
	Options           []string `json:"options"`
	CorrectAnswer     string   `json:"correctAnswer"`
	Hint              string   `json:"hint"`
	VisualDescription string   `json:"visualDescription"`
	RequiresImage     bool     `json:"requiresImage"`
}

// IsCorrect reports whether option is the designated correct answer. Both
// sides are compared in Unicode NFC form with surrounding space trimmed.
func (q Question) IsCorrect(option string) bool {
	return norm.NFC.String(strings.TrimSpace(option)) == norm.NFC.String(strings.TrimSpace(q.CorrectAnswer))
}

// Category groups badges in the sticker book.
type Category string

const (
	CategoryAchievement Category = "achievement"
	CategoryCharacter   Category = "character"
)

// Badge is a catalog entry a player can unlock.
type Badge struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Icon        string   `json:"icon" yaml:"icon"`
	Description string   `json:"description" yaml:"description"`
	Category    Category `json:"category" yaml:"category"`
}

// Answer is one entry of a player's answer history.
type Answer struct {
	Correct bool    `json:"correct"`
	Subject Subject `json:"subject"`
}
