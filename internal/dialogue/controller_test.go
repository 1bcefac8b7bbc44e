package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chengzr01/jobscout/internal/extract"
	"github.com/chengzr01/jobscout/internal/llm"
	"github.com/chengzr01/jobscout/internal/profile"
)

// --- Fake gateway ---

type fakeGateway struct {
	reply string
	err   error

	calls       int
	gotMessages []llm.Message
}

func (f *fakeGateway) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.calls++
	f.gotMessages = messages
	return f.reply, f.err
}

// --- Scripted extractor ---

type scriptedExtractor struct {
	script []extraction
	calls  int

	gotMissing []string
}

type extraction struct {
	fields map[string]string
	err    error
}

func (s *scriptedExtractor) Extract(_ context.Context, _ []llm.Message, missingKeys []string) (map[string]string, error) {
	s.gotMissing = missingKeys
	step := s.script[s.calls]
	s.calls++
	if step.fields == nil {
		return map[string]string{}, step.err
	}
	return step.fields, step.err
}

func newTestController(gw *fakeGateway, ex *scriptedExtractor, opts ...ControllerOption) *Controller {
	tracker := profile.NewTracker(profile.DefaultRequiredKeys, profile.DefaultOptionalKeys, nil)
	return NewController(gw, ex, tracker, opts...)
}

// --- Tests ---

func TestNewController_StartsWithOpening(t *testing.T) {
	c := newTestController(&fakeGateway{}, &scriptedExtractor{})

	history := c.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 opening turn, got %d", len(history))
	}
	if history[0].Role != llm.RoleAssistant || history[0].Content != DefaultOpening {
		t.Errorf("unexpected opening turn: %+v", history[0])
	}
	if c.Ready() {
		t.Error("fresh controller must not be ready")
	}
}

func TestRespond_Streaming(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, &scriptedExtractor{}, WithStreaming(true))

	_, err := c.Respond(context.Background(), "hello")
	if !errors.Is(err, llm.ErrStreamingUnsupported) {
		t.Fatalf("expected ErrStreamingUnsupported, got %v", err)
	}
	if gw.calls != 0 {
		t.Error("no gateway call should happen in streaming mode")
	}
	if len(c.History()) != 1 {
		t.Error("streaming failure must not record the turn")
	}
}

func TestRespond_CollectingAsksClarifyingQuestion(t *testing.T) {
	gw := &fakeGateway{reply: "Which company are you interested in?"}
	ex := &scriptedExtractor{script: []extraction{
		{fields: map[string]string{"job title": "Software Engineer"}},
	}}
	c := newTestController(gw, ex)

	result, err := c.Respond(context.Background(), "I want to be a software engineer")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Query != nil {
		t.Error("incomplete profile must not produce a query")
	}
	if result.Reply != gw.reply {
		t.Errorf("Reply = %q, want %q", result.Reply, gw.reply)
	}

	history := c.History()
	if len(history) != 3 {
		t.Fatalf("expected opening+user+assistant turns, got %d", len(history))
	}
	if history[1].Role != llm.RoleUser || history[2].Role != llm.RoleAssistant {
		t.Errorf("turn roles wrong: %+v", history[1:])
	}
	if history[2].Content != gw.reply {
		t.Errorf("assistant turn = %q", history[2].Content)
	}
}

func TestRespond_CompleteReturnsQuery(t *testing.T) {
	gw := &fakeGateway{}
	ex := &scriptedExtractor{script: []extraction{
		{fields: map[string]string{
			"company name": "Google",
			"job title":    "Software Engineer",
		}},
	}}
	c := newTestController(gw, ex)

	result, err := c.Respond(context.Background(), "software engineer at Google please")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Reply != "" {
		t.Errorf("complete turn must not carry a reply, got %q", result.Reply)
	}
	if result.Query == nil {
		t.Fatal("complete turn must carry a query")
	}
	if result.Query["company name"] != "Google" || result.Query["job title"] != "Software Engineer" {
		t.Errorf("query = %v", result.Query)
	}
	// Unknown optional keys are present with empty values.
	if v, ok := result.Query["location"]; !ok || v != profile.Unknown {
		t.Errorf("location missing from snapshot: %v", result.Query)
	}
	if gw.calls != 0 {
		t.Error("no clarifying question should be generated on a complete turn")
	}
	// No assistant turn on backend responses.
	if got := len(c.History()); got != 2 {
		t.Errorf("expected opening+user turns only, got %d", got)
	}
}

func TestRespond_ExtractionFailureDegrades(t *testing.T) {
	gw := &fakeGateway{reply: "Could you tell me more?"}
	for name, step := range map[string]extraction{
		"gateway error": {err: errors.New("upstream down")},
		"malformed":     {err: extract.ErrMalformedOutput},
	} {
		t.Run(name, func(t *testing.T) {
			ex := &scriptedExtractor{script: []extraction{step}}
			c := newTestController(gw, ex)

			result, err := c.Respond(context.Background(), "hmm")
			if err != nil {
				t.Fatalf("extraction failure must not fail the turn: %v", err)
			}
			if result.Reply == "" || result.Query != nil {
				t.Errorf("expected a clarifying question, got %+v", result)
			}
			for _, v := range c.Query() {
				if v != profile.Unknown {
					t.Errorf("nothing should be learned on a failed extraction, got %q", v)
				}
			}
		})
	}
}

func TestRespond_ClarifyFailureIsFatal(t *testing.T) {
	gw := &fakeGateway{err: errors.New("upstream down")}
	ex := &scriptedExtractor{script: []extraction{
		{fields: map[string]string{"company name": "Google"}},
	}}
	c := newTestController(gw, ex)

	_, err := c.Respond(context.Background(), "anything at Google")
	if err == nil {
		t.Fatal("expected error when the clarifying question cannot be generated")
	}

	// The user turn is recorded; no assistant turn is.
	history := c.History()
	if len(history) != 2 {
		t.Fatalf("expected opening+user turns, got %d", len(history))
	}
	if history[1].Role != llm.RoleUser {
		t.Errorf("last turn should be the user's, got %q", history[1].Role)
	}

	// What was extracted before the failure is kept.
	if c.Query()["company name"] != "Google" {
		t.Error("merged fields should survive a clarify failure")
	}
}

func TestRespond_ClarifyPromptBias(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	ex := &scriptedExtractor{script: []extraction{
		{fields: map[string]string{"company name": "Google", "location": "London"}},
	}}
	c := newTestController(gw, ex, WithDescription("Backend engineer with 5 years of Go."))

	if _, err := c.Respond(context.Background(), "something at Google in London"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	system := gw.gotMessages[0]
	if system.Role != llm.RoleSystem {
		t.Fatalf("first outbound message should be system, got %q", system.Role)
	}
	if !strings.Contains(system.Content, "Backend engineer with 5 years of Go.") {
		t.Error("personal description missing from clarify prompt")
	}
	if !strings.Contains(system.Content, "more information about the following: job title.") {
		t.Errorf("unresolved required keys not listed first: %q", system.Content)
	}
	if !strings.Contains(system.Content, "also ask about: level, requirements") {
		t.Errorf("unresolved optional keys not listed: %q", system.Content)
	}
	if strings.Contains(system.Content, "location") {
		t.Error("resolved keys must not be asked about again")
	}
}

// A full scripted conversation: two collecting turns, then completion.
func TestRespond_EndToEnd(t *testing.T) {
	gw := &fakeGateway{reply: "And the role?"}
	ex := &scriptedExtractor{script: []extraction{
		{fields: map[string]string{"company name": "Google"}},
		{fields: map[string]string{"job title": "Software Engineer", "level": "Senior"}},
	}}
	c := newTestController(gw, ex)

	first, err := c.Respond(context.Background(), "I'd love to work at Google")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if first.Reply == "" || first.Query != nil {
		t.Fatalf("turn 1 should collect, got %+v", first)
	}

	second, err := c.Respond(context.Background(), "as a senior software engineer")
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if second.Query == nil || second.Reply != "" {
		t.Fatalf("turn 2 should complete, got %+v", second)
	}
	want := map[string]string{
		"company name": "Google",
		"job title":    "Software Engineer",
		"level":        "Senior",
	}
	for key, value := range want {
		if second.Query[key] != value {
			t.Errorf("query[%q] = %q, want %q", key, second.Query[key], value)
		}
	}

	// Second extraction was scoped to what was still missing.
	for _, key := range ex.gotMissing {
		if key == "company name" {
			t.Error("resolved key still reported missing on turn 2")
		}
	}
}

func TestFlush_KeepsDescription(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	ex := &scriptedExtractor{script: []extraction{
		{fields: map[string]string{"company name": "Google", "job title": "SWE"}},
	}}
	c := newTestController(gw, ex, WithDescription("likes trains"))

	if _, err := c.Respond(context.Background(), "swe at google"); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !c.Ready() {
		t.Fatal("setup: controller should be ready")
	}

	c.Flush()

	if c.Ready() {
		t.Error("flush must reset the tracker")
	}
	if len(c.History()) != 0 {
		t.Error("flush must clear the history")
	}
	if c.Description() != "likes trains" {
		t.Error("flush must keep the personal description")
	}
}

func TestWithOpening_Custom(t *testing.T) {
	c := newTestController(&fakeGateway{}, &scriptedExtractor{}, WithOpening("Welcome aboard."))
	if got := c.Opening(); got != "Welcome aboard." {
		t.Errorf("Opening() = %q", got)
	}

	c = newTestController(&fakeGateway{}, &scriptedExtractor{}, WithOpening(""))
	if got := len(c.History()); got != 0 {
		t.Errorf("empty opening should leave history empty, got %d turns", got)
	}
}
