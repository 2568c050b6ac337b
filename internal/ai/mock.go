package ai

import (
	"context"
	"sync"

	"github.com/p-n-ai/pai-kids/internal/domain"
)

// MockProvider is a test double for content providers. It is safe for
// concurrent use; configure it with the Set methods.
type MockProvider struct {
	mu              sync.Mutex
	question        domain.Question
	questionErr     error
	illustration    Illustration
	illustrationErr error
	audio           Audio
	speechErr       error
	gate            chan struct{}

	questionCalls     int
	illustrationCalls int
	spoken            []string
}

// NewMockProvider creates a MockProvider that returns q for every question.
func NewMockProvider(q domain.Question) *MockProvider {
	return &MockProvider{
		question:     q,
		illustration: Illustration{MIMEType: "image/png", Data: []byte("png")},
		audio:        Audio{MIMEType: "audio/wav", Data: []byte("wav")},
	}
}

// SetQuestion changes the question result.
func (m *MockProvider) SetQuestion(q domain.Question, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.question, m.questionErr = q, err
}

// SetIllustration changes the illustration result.
func (m *MockProvider) SetIllustration(img Illustration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.illustration, m.illustrationErr = img, err
}

// SetSpeechErr makes Synthesize fail with err.
func (m *MockProvider) SetSpeechErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speechErr = err
}

// Hold makes GenerateQuestion block until the returned release func is called.
func (m *MockProvider) Hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gate == gate {
				m.gate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

func (m *MockProvider) GenerateQuestion(ctx context.Context, _ domain.Subject, _ domain.Profile) (domain.Question, error) {
	m.mu.Lock()
	m.questionCalls++
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Question{}, &ProviderError{Op: "generate question", Err: ctx.Err()}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.questionErr != nil {
		return domain.Question{}, m.questionErr
	}
	q := m.question
	q.Options = append([]string(nil), m.question.Options...)
	return q, nil
}

func (m *MockProvider) GenerateIllustration(_ context.Context, _ string) (Illustration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.illustrationCalls++
	if m.illustrationErr != nil {
		return Illustration{}, m.illustrationErr
	}
	return m.illustration, nil
}

func (m *MockProvider) Synthesize(_ context.Context, text string, _ domain.Profile) (Audio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spoken = append(m.spoken, text)
	if m.speechErr != nil {
		return Audio{}, m.speechErr
	}
	return m.audio, nil
}

// QuestionCalls returns how many questions were requested.
func (m *MockProvider) QuestionCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.questionCalls
}

// IllustrationCalls returns how many illustrations were requested.
func (m *MockProvider) IllustrationCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.illustrationCalls
}

// Spoken returns every text passed to Synthesize.
func (m *MockProvider) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.spoken...)
}
