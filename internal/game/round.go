package game

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-kids/internal/ai"
	"github.com/p-n-ai/pai-kids/internal/domain"
)

// Phase is the lifecycle stage of a round.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhasePresenting Phase = "presenting"
	PhaseAnswered   Phase = "answered"
	PhaseError      Phase = "error"
)

// Feedback phrases spoken after an answer.
const (
	FeedbackCorrect   = "That's right! Amazing job!"
	FeedbackIncorrect = "Not quite, let's keep trying!"
)

// ErrorCodeProvider marks a round that failed because content could not be
// generated.
const ErrorCodeProvider = "PROVIDER_ERROR"

const defaultRoundTimeout = 45 * time.Second

type round struct {
	id           string
	subject      domain.Subject
	profile      domain.Profile
	phase        Phase
	question     *domain.Question
	illustration *ai.Illustration
	imagePending bool
	selected     string
	correct      bool
	outcome      *Outcome
	errMsg       string
}

// RoundView is the presentation of a round. The correct answer and hint are
// withheld until they may be shown.
type RoundView struct {
	ID            string         `json:"id"`
	Subject       domain.Subject `json:"subject"`
	Phase         Phase          `json:"phase"`
	QuestionText  string         `json:"question_text,omitempty"`
	Options       []string       `json:"options,omitempty"`
	Image         string         `json:"image,omitempty"`
	ImagePending  bool           `json:"image_pending"`
	Selected      string         `json:"selected,omitempty"`
	Correct       *bool          `json:"correct,omitempty"`
	CorrectAnswer string         `json:"correct_answer,omitempty"`
	Hint          string         `json:"hint,omitempty"`
	Celebrate     bool           `json:"celebrate"`
	Feedback      string         `json:"feedback,omitempty"`
	Outcome       *Outcome       `json:"outcome,omitempty"`
	Error         string         `json:"error,omitempty"`
	ErrorCode     string         `json:"error_code,omitempty"`
}

func (r *round) view() RoundView {
	v := RoundView{
		ID:           r.id,
		Subject:      r.subject,
		Phase:        r.phase,
		ImagePending: r.imagePending,
	}
	if r.question != nil {
		v.QuestionText = r.question.Text
		v.Options = append([]string(nil), r.question.Options...)
	}
	if r.illustration != nil {
		v.Image = r.illustration.DataURL()
	}
	switch r.phase {
	case PhaseAnswered:
		correct := r.correct
		v.Selected = r.selected
		v.Correct = &correct
		v.CorrectAnswer = r.question.CorrectAnswer
		v.Celebrate = correct
		v.Feedback = feedback(correct)
		if !correct && r.profile == domain.ProfileSenior {
			v.Hint = r.question.Hint
		}
		v.Outcome = r.outcome
	case PhaseError:
		v.Error = r.errMsg
		v.ErrorCode = ErrorCodeProvider
	}
	return v
}

func feedback(correct bool) string {
	if correct {
		return FeedbackCorrect
	}
	return FeedbackIncorrect
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithRoundTimeout bounds each content request of a round.
func WithRoundTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRoundListener registers fn to receive every round transition.
func WithRoundListener(fn func(RoundView)) ControllerOption {
	return func(c *Controller) {
		c.listener = fn
	}
}

// Controller drives one round at a time for a single player. Content is
// fetched in the background; a response that arrives after its round has
// been replaced or abandoned is discarded.
type Controller struct {
	mu       sync.Mutex
	store    *Store
	provider ai.ContentProvider
	narrator *Narrator
	timeout  time.Duration
	listener func(RoundView)
	current  *round
	wg       sync.WaitGroup
}

// NewController creates a round controller reporting outcomes to store.
func NewController(store *Store, provider ai.ContentProvider, narrator *Narrator, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:    store,
		provider: provider,
		narrator: narrator,
		timeout:  defaultRoundTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start selects subject and begins loading its first round.
func (c *Controller) Start(ctx context.Context, subject domain.Subject) (RoundView, error) {
	if err := c.store.SelectSubject(subject); err != nil {
		return RoundView{}, err
	}
	c.mu.Lock()
	v := c.beginLocked(ctx, subject)
	c.mu.Unlock()

	c.emit(v)
	return v, nil
}

// Next begins a new round for the active subject once the current round
// has been answered.
func (c *Controller) Next(ctx context.Context) (RoundView, error) {
	subject, ok := c.store.ActiveSubject()
	if !ok {
		return RoundView{}, ErrNoSubject
	}

	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return RoundView{}, ErrNoRound
	}
	if c.current.phase != PhaseAnswered {
		c.mu.Unlock()
		return RoundView{}, ErrNotAnswered
	}
	v := c.beginLocked(ctx, subject)
	c.mu.Unlock()

	c.emit(v)
	return v, nil
}

// Retry reloads a round that failed to load.
func (c *Controller) Retry(ctx context.Context, roundID string) (RoundView, error) {
	c.mu.Lock()
	r, err := c.roundLocked(roundID)
	if err != nil {
		c.mu.Unlock()
		return RoundView{}, err
	}
	if r.phase != PhaseError {
		c.mu.Unlock()
		return RoundView{}, ErrNotRetryable
	}
	v := c.beginLocked(ctx, r.subject)
	c.mu.Unlock()

	c.emit(v)
	return v, nil
}

// Answer records the first selection for the round. Later selections return
// the existing result without reporting again.
func (c *Controller) Answer(roundID, option string) (RoundView, error) {
	c.mu.Lock()
	r, err := c.roundLocked(roundID)
	if err != nil {
		c.mu.Unlock()
		return RoundView{}, err
	}
	switch r.phase {
	case PhaseAnswered:
		v := r.view()
		c.mu.Unlock()
		return v, nil
	case PhasePresenting:
	default:
		c.mu.Unlock()
		return RoundView{}, ErrNotAnswerable
	}

	selected, ok := matchOption(r.question.Options, option)
	if !ok {
		c.mu.Unlock()
		return RoundView{}, ErrUnknownOption
	}

	// Marking the round answered under the lock keeps the outcome reported
	// once; the store and its observers run without holding c.mu.
	r.phase = PhaseAnswered
	r.selected = selected
	r.correct = r.question.IsCorrect(selected)
	subject, correct, profile := r.subject, r.correct, r.profile
	c.mu.Unlock()

	outcome := c.store.RecordAnswer(subject, correct)

	c.mu.Lock()
	r.outcome = &outcome
	v := r.view()
	c.mu.Unlock()

	slog.Info("round answered",
		"round_id", roundID,
		"subject", subject,
		"correct", correct,
		"score", outcome.Score,
		"new_badges", len(outcome.NewBadges),
	)
	c.emit(v)
	c.narrator.Say(roundID, v.Feedback, profile)
	return v, nil
}

// Abandon discards the current round and returns to subject selection.
func (c *Controller) Abandon() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	c.store.ClearSubject()
}

// Current returns the active round.
func (c *Controller) Current() (RoundView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return RoundView{}, ErrNoRound
	}
	return c.current.view(), nil
}

// SpeakQuestion reads the current question aloud again.
func (c *Controller) SpeakQuestion(roundID string) error {
	c.mu.Lock()
	r, err := c.roundLocked(roundID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if r.question == nil {
		c.mu.Unlock()
		return ErrNoQuestion
	}
	text, profile := r.question.Text, r.profile
	c.mu.Unlock()

	c.narrator.Say(roundID, text, profile)
	return nil
}

// Busy reports whether the current round is still fetching content.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && (c.current.phase == PhaseLoading || c.current.imagePending)
}

// Wait blocks until background content loads have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) roundLocked(roundID string) (*round, error) {
	if c.current == nil {
		return nil, ErrNoRound
	}
	if c.current.id != roundID {
		return nil, ErrStaleRound
	}
	return c.current, nil
}

func (c *Controller) beginLocked(ctx context.Context, subject domain.Subject) RoundView {
	r := &round{
		id:      uuid.NewString(),
		subject: subject,
		profile: c.store.Profile(),
		phase:   PhaseLoading,
	}
	c.current = r

	// The load outlives the request that started it.
	loadCtx := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.load(loadCtx, r.id, subject, r.profile)
	}()

	slog.Debug("round started", "round_id", r.id, "subject", subject, "profile", r.profile)
	return r.view()
}

func (c *Controller) load(ctx context.Context, roundID string, subject domain.Subject, profile domain.Profile) {
	qctx, cancel := context.WithTimeout(ctx, c.timeout)
	q, err := c.provider.GenerateQuestion(qctx, subject, profile)
	cancel()

	c.mu.Lock()
	r, stale := c.current, c.current == nil || c.current.id != roundID
	if stale {
		c.mu.Unlock()
		slog.Debug("discarding stale question", "round_id", roundID)
		return
	}
	if err != nil {
		r.phase = PhaseError
		r.errMsg = "Could not load a question. Please try again."
		v := r.view()
		c.mu.Unlock()

		slog.Error("question generation failed", "round_id", roundID, "subject", subject, "error", err)
		c.emit(v)
		return
	}
	r.phase = PhasePresenting
	r.question = &q
	r.imagePending = q.RequiresImage && q.VisualDescription != ""
	v := r.view()
	c.mu.Unlock()

	c.emit(v)
	if profile == domain.ProfileJunior {
		c.narrator.Say(roundID, q.Text, profile)
	}
	if !v.ImagePending {
		return
	}

	ictx, cancel := context.WithTimeout(ctx, c.timeout)
	img, err := c.provider.GenerateIllustration(ictx, q.VisualDescription)
	cancel()

	c.mu.Lock()
	if c.current == nil || c.current.id != roundID {
		c.mu.Unlock()
		slog.Debug("discarding stale illustration", "round_id", roundID)
		return
	}
	r.imagePending = false
	if err != nil {
		slog.Warn("illustration unavailable", "round_id", roundID, "error", err)
	} else {
		r.illustration = &img
	}
	v = r.view()
	c.mu.Unlock()

	c.emit(v)
}

func (c *Controller) emit(v RoundView) {
	if c.listener != nil {
		c.listener(v)
	}
}

// matchOption finds the choice equal to option after NFC normalization and
// returns it in its original form.
func matchOption(options []string, option string) (string, bool) {
	want := norm.NFC.String(strings.TrimSpace(option))
	i := slices.IndexFunc(options, func(o string) bool {
		return norm.NFC.String(strings.TrimSpace(o)) == want
	})
	if i < 0 {
		return "", false
	}
	return options[i], true
}
