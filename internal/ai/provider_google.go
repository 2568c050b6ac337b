package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/p-n-ai/pai-kids/internal/domain"
)

const (
	defaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultQuestionModel     = "gemini-2.5-flash"
	defaultIllustrationModel = "gemini-2.5-flash-image"
	defaultSpeechModel       = "gemini-2.5-flash-preview-tts"
)

// GoogleProvider implements ContentProvider for Google Gemini.
type GoogleProvider struct {
	apiKey            string
	baseURL           string
	client            *http.Client
	topics            TopicSource
	questionModel     string
	illustrationModel string
	speechModel       string
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithGoogleBaseURL sets the base URL (for testing).
func WithGoogleBaseURL(url string) GoogleOption {
	return func(p *GoogleProvider) {
		p.baseURL = url
	}
}

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(p *GoogleProvider) {
		p.client = client
	}
}

// WithGoogleModels overrides the question, illustration and speech models.
// Empty names keep the defaults.
func WithGoogleModels(question, illustration, speech string) GoogleOption {
	return func(p *GoogleProvider) {
		if question != "" {
			p.questionModel = question
		}
		if illustration != "" {
			p.illustrationModel = illustration
		}
		if speech != "" {
			p.speechModel = speech
		}
	}
}

// WithTopicSource sets where question topics are drawn from.
func WithTopicSource(topics TopicSource) GoogleOption {
	return func(p *GoogleProvider) {
		p.topics = topics
	}
}

// NewGoogleProvider creates a new Google Gemini content provider.
func NewGoogleProvider(apiKey string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		apiKey:            apiKey,
		baseURL:           defaultGeminiBaseURL,
		client:            http.DefaultClient,
		questionModel:     defaultQuestionModel,
		illustrationModel: defaultIllustrationModel,
		speechModel:       defaultSpeechModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// geminiRequest is the request body for the Gemini generateContent API.
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseMimeType   string              `json:"responseMimeType,omitempty"`
	ResponseSchema     map[string]any      `json:"responseSchema,omitempty"`
	ResponseModalities []string            `json:"responseModalities,omitempty"`
	SpeechConfig       *geminiSpeechConfig `json:"speechConfig,omitempty"`
}

type geminiSpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

// geminiResponse is the response from the Gemini API.
type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (r geminiResponse) parts() []geminiPart {
	if len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0].Content.Parts
}

func (r geminiResponse) text() string {
	var b strings.Builder
	for _, p := range r.parts() {
		b.WriteString(p.Text)
	}
	return b.String()
}

func (r geminiResponse) inlineData() (*geminiInlineData, bool) {
	for _, p := range r.parts() {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData, true
		}
	}
	return nil, false
}

// GenerateQuestion asks the question model for a structured question about a
// random topic of the subject's pool.
func (p *GoogleProvider) GenerateQuestion(ctx context.Context, subject domain.Subject, profile domain.Profile) (domain.Question, error) {
	const op = "generate question"

	topic := fallbackTopic(subject)
	if p.topics != nil {
		if t, ok := p.topics.RandomTopic(subject, profile); ok {
			topic = t
		}
	}

	resp, err := p.generateContent(ctx, p.questionModel, geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: questionPrompt(topic, profile)}}}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   questionResponseSchema,
		},
	})
	if err != nil {
		return domain.Question{}, &ProviderError{Op: op, Err: err}
	}

	text := resp.text()
	if strings.TrimSpace(text) == "" {
		return domain.Question{}, &ProviderError{Op: op, Err: ErrNoContent}
	}

	q, err := ParseQuestion([]byte(text))
	if err != nil {
		return domain.Question{}, &ProviderError{Op: op, Err: err}
	}

	slog.Debug("question generated",
		"subject", subject,
		"profile", profile,
		"topic", topic,
		"requires_image", q.RequiresImage,
		"input_tokens", resp.UsageMetadata.PromptTokenCount,
		"output_tokens", resp.UsageMetadata.CandidatesTokenCount,
	)
	return q, nil
}

// GenerateIllustration renders a kid-friendly picture of the description.
func (p *GoogleProvider) GenerateIllustration(ctx context.Context, description string) (Illustration, error) {
	const op = "generate illustration"

	resp, err := p.generateContent(ctx, p.illustrationModel, geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: illustrationStyle + description}}}},
	})
	if err != nil {
		return Illustration{}, &ProviderError{Op: op, Err: err}
	}

	inline, ok := resp.inlineData()
	if !ok {
		return Illustration{}, &ProviderError{Op: op, Err: ErrNoImage}
	}
	data, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return Illustration{}, &ProviderError{Op: op, Err: fmt.Errorf("decode image: %w", err)}
	}

	mimeType := inline.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return Illustration{MIMEType: mimeType, Data: data}, nil
}

// Synthesize reads text aloud with the profile's voice. Raw PCM output is
// wrapped in a WAV container so browsers can play it directly.
func (p *GoogleProvider) Synthesize(ctx context.Context, text string, profile domain.Profile) (Audio, error) {
	config := &geminiGenerationConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig:       &geminiSpeechConfig{},
	}
	config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = profile.Voice()

	resp, err := p.generateContent(ctx, p.speechModel, geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		GenerationConfig: config,
	})
	if err != nil {
		return Audio{}, &SpeechError{Err: err}
	}

	inline, ok := resp.inlineData()
	if !ok {
		return Audio{}, &SpeechError{Err: ErrNoAudio}
	}
	data, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return Audio{}, &SpeechError{Err: fmt.Errorf("decode audio: %w", err)}
	}

	if rate, ok := pcmSampleRate(inline.MimeType); ok {
		return Audio{MIMEType: "audio/wav", Data: pcmToWAV(data, rate)}, nil
	}
	return Audio{MIMEType: inline.MimeType, Data: data}, nil
}

func (p *GoogleProvider) generateContent(ctx context.Context, model string, gemReq geminiRequest) (geminiResponse, error) {
	body, err := json.Marshal(gemReq)
	if err != nil {
		return geminiResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return geminiResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return geminiResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return geminiResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return geminiResponse{}, fmt.Errorf("gemini api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var gemResp geminiResponse
	if err := json.Unmarshal(respBody, &gemResp); err != nil {
		return geminiResponse{}, fmt.Errorf("unmarshal response: %w", err)
	}
	return gemResp, nil
}

// HealthCheck verifies the API key can list models.
func (p *GoogleProvider) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/models?key=%s", p.baseURL, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
