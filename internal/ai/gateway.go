// Package ai is the client side of the generative content service: question
// text, illustrations and speech audio.
package ai

import (
	"context"
	"encoding/base64"

	"github.com/p-n-ai/pai-kids/internal/domain"
)

// Illustration is a generated image.
type Illustration struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// DataURL renders the image as an inline data URL.
func (i Illustration) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Audio is generated speech, ready for playback.
type Audio struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// ContentProvider is the interface all content backends implement.
type ContentProvider interface {
	GenerateQuestion(ctx context.Context, subject domain.Subject, profile domain.Profile) (domain.Question, error)
	GenerateIllustration(ctx context.Context, description string) (Illustration, error)
	Synthesize(ctx context.Context, text string, profile domain.Profile) (Audio, error)
}

// TopicSource supplies the topic a question is generated about.
type TopicSource interface {
	RandomTopic(subject domain.Subject, profile domain.Profile) (string, bool)
}
