package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/chengzr01/jobscout/internal/extract"
	"github.com/chengzr01/jobscout/internal/llm"
	"github.com/chengzr01/jobscout/internal/profile"
)

// DefaultOpening is the assistant greeting recorded when a controller is
// created.
const DefaultOpening = "Hello! I can help you find a job. Tell me about the company and the role you are looking for."

// State of the slot-filling loop.
type State int

const (
	// Collecting means required keys are still unresolved and the
	// controller answers with clarifying questions.
	Collecting State = iota
	// Complete means the last turn resolved every required key and
	// produced a search query.
	Complete
)

// Result is the outcome of one user turn. Exactly one of the two fields is
// populated: Reply carries a clarifying question while collecting, Query
// carries the finished search profile once every required key is resolved.
type Result struct {
	Reply string
	Query map[string]string
}

// KeyExtractor derives a partial profile mapping from dialogue history.
// Implemented by extract.Extractor.
type KeyExtractor interface {
	Extract(ctx context.Context, history []llm.Message, missingKeys []string) (map[string]string, error)
}

// Controller runs the slot-filling loop for one session: it records turns,
// extracts profile fields from the accumulated history, and either asks for
// more information or hands off a finished query. All methods are safe for
// concurrent use; a single mutex serializes turns so that two requests for
// the same session cannot interleave.
type Controller struct {
	mu        sync.Mutex
	gateway   llm.Gateway
	extractor KeyExtractor
	tracker   *profile.Tracker
	history   []llm.Message

	description string
	streaming   bool
	state       State
	logger      *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithOpening records a custom assistant greeting instead of DefaultOpening.
// Pass an empty string to start with no greeting.
func WithOpening(opening string) ControllerOption {
	return func(c *Controller) {
		c.history = c.history[:0]
		if opening != "" {
			c.history = append(c.history, llm.Message{Role: llm.RoleAssistant, Content: opening})
		}
	}
}

// WithStreaming requests streamed replies. Streaming is not implemented;
// Respond fails fast with llm.ErrStreamingUnsupported while it is set.
func WithStreaming(on bool) ControllerOption {
	return func(c *Controller) { c.streaming = on }
}

// WithDescription seeds the session's free-text personal description.
func WithDescription(description string) ControllerOption {
	return func(c *Controller) { c.description = description }
}

// NewController creates a controller in the Collecting state with the
// opening greeting already recorded as the first assistant turn.
func NewController(gateway llm.Gateway, extractor KeyExtractor, tracker *profile.Tracker, opts ...ControllerOption) *Controller {
	c := &Controller{
		gateway:   gateway,
		extractor: extractor,
		tracker:   tracker,
		history:   []llm.Message{{Role: llm.RoleAssistant, Content: DefaultOpening}},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Respond processes one inbound user message: it appends the user turn, runs
// extraction over the full history, merges the result, and either returns
// the finished query (Complete) or asks a clarifying question (Collecting).
//
// Extraction failures of any kind are swallowed: the turn proceeds as if
// nothing was learned. A gateway failure while generating the clarifying
// question is returned to the caller, and no assistant turn is recorded for
// that attempt.
func (c *Controller) Respond(ctx context.Context, input string) (Result, error) {
	if c.streaming {
		return Result{}, llm.ErrStreamingUnsupported
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, llm.Message{Role: llm.RoleUser, Content: input})

	fields, err := c.extractor.Extract(ctx, c.history, c.tracker.Missing())
	if err != nil {
		if errors.Is(err, extract.ErrMalformedOutput) {
			c.logger.Warn("extraction output unparseable, nothing learned this turn")
		} else {
			c.logger.Warn("extraction failed, nothing learned this turn", "error", err)
		}
	}
	c.tracker.Merge(fields)

	if c.tracker.Complete() {
		c.state = Complete
		query := c.tracker.Snapshot()
		// A new query may start right after the search is dispatched.
		c.state = Collecting
		return Result{Query: query}, nil
	}

	c.state = Collecting
	reply, err := c.gateway.Complete(ctx, c.clarifyPrompt())
	if err != nil {
		return Result{}, fmt.Errorf("generating clarifying question: %w", err)
	}

	c.history = append(c.history, llm.Message{Role: llm.RoleAssistant, Content: reply})
	return Result{Reply: reply}, nil
}

// clarifyPrompt builds the "asking for more information" request: a system
// instruction listing the still-unknown keys (required ones first), biased
// by the personal description when one is set, followed by the history.
// Caller holds c.mu.
func (c *Controller) clarifyPrompt() []llm.Message {
	var required, optional []string
	for _, key := range c.tracker.Missing() {
		if contains(c.tracker.RequiredKeys(), key) {
			required = append(required, key)
		} else {
			optional = append(optional, key)
		}
	}

	var sb strings.Builder
	if c.description != "" {
		sb.WriteString("The user describes themselves as follows: ")
		sb.WriteString(c.description)
		sb.WriteString("\n")
	}
	sb.WriteString("Ask the user to provide more information about the following: ")
	sb.WriteString(strings.Join(required, ", "))
	sb.WriteString(".")
	if len(optional) > 0 {
		sb.WriteString(" If convenient, also ask about: ")
		sb.WriteString(strings.Join(optional, ", "))
		sb.WriteString(".")
	}

	messages := make([]llm.Message, 0, len(c.history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: sb.String()})
	messages = append(messages, c.history...)
	return messages
}

// Query returns the tracker's full current mapping without running a turn.
// Used by the recommendation path.
func (c *Controller) Query() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Snapshot()
}

// Ready reports whether the tracker already holds every required key.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Complete()
}

// History returns a copy of the dialogue turns recorded so far.
func (c *Controller) History() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Message(nil), c.history...)
}

// Flush clears the dialogue history and resets every schema key to unknown.
// The personal description is kept.
func (c *Controller) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = c.history[:0]
	c.tracker.Init(nil)
	c.state = Collecting
}

// Opening returns the greeting recorded as the first assistant turn, or
// DefaultOpening if the history has been flushed.
func (c *Controller) Opening() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) > 0 && c.history[0].Role == llm.RoleAssistant {
		return c.history[0].Content
	}
	return DefaultOpening
}

// SetDescription updates the session's free-text personal description.
func (c *Controller) SetDescription(description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.description = description
}

// Description returns the session's free-text personal description.
func (c *Controller) Description() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.description
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
