package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
)

// Call records one request made to a Scripted provider.
type Call struct {
	Method string
	Arg    string
}

// Scripted is a deterministic ServiceProvider for tests and offline play.
// Responses are looked up by the first key contained in the request text;
// unmatched requests return the method's default.
type Scripted struct {
	mu sync.Mutex

	Text     map[string]string
	JSON     map[string]map[string]any
	Media    map[string]string
	Fetch    map[string][]byte
	Flagged  []string
	Fail     map[string]error
	Defaults map[string]string

	calls []Call
}

// NewScripted returns an empty Scripted provider.
func NewScripted() *Scripted {
	return &Scripted{
		Text:     map[string]string{},
		JSON:     map[string]map[string]any{},
		Media:    map[string]string{},
		Fetch:    map[string][]byte{},
		Fail:     map[string]error{},
		Defaults: map[string]string{},
	}
}

var _ ports.ServiceProvider = (*Scripted)(nil)

// Calls returns the recorded requests.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount counts recorded requests for method.
func (s *Scripted) CallCount(method string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (s *Scripted) record(method, arg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: method, Arg: arg})
	if err, ok := s.Fail[method]; ok {
		return err
	}
	return nil
}

func match[T any](table map[string]T, text string) (T, bool) {
	var zero T
	if v, ok := table[text]; ok {
		return v, true
	}
	best := ""
	for k := range table {
		if k != "" && strings.Contains(text, k) && len(k) > len(best) {
			best = k
		}
	}
	if best == "" {
		return zero, false
	}
	return table[best], true
}

func (s *Scripted) GenerateText(_ context.Context, req ports.TextRequest) (string, error) {
	if err := s.record("GenerateText", req.Prompt); err != nil {
		return "", err
	}
	if v, ok := match(s.Text, req.Prompt); ok {
		return v, nil
	}
	return s.Defaults["GenerateText"], nil
}

func (s *Scripted) GenerateJSON(_ context.Context, req ports.TextRequest, _ map[string]any) (map[string]any, error) {
	if err := s.record("GenerateJSON", req.Prompt); err != nil {
		return nil, err
	}
	if v, ok := match(s.JSON, req.Prompt); ok {
		return v, nil
	}
	return map[string]any{}, nil
}

func (s *Scripted) GenerateChat(_ context.Context, messages []ports.ChatMessage, _ []string) (string, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	if err := s.record("GenerateChat", last); err != nil {
		return "", err
	}
	if v, ok := match(s.Text, last); ok {
		return v, nil
	}
	return s.Defaults["GenerateChat"], nil
}

func (s *Scripted) media(method, arg string) (string, error) {
	if err := s.record(method, arg); err != nil {
		return "", err
	}
	if v, ok := match(s.Media, arg); ok {
		return v, nil
	}
	if d, ok := s.Defaults[method]; ok {
		return d, nil
	}
	return "", nil
}

func (s *Scripted) GenerateSpeech(_ context.Context, req ports.SpeechRequest) (string, error) {
	return s.media("GenerateSpeech", req.Text)
}

func (s *Scripted) GenerateVoice(_ context.Context, description string) (string, error) {
	return s.media("GenerateVoice", description)
}

func (s *Scripted) GenerateMusic(_ context.Context, prompt string, _ time.Duration) (string, error) {
	return s.media("GenerateMusic", prompt)
}

func (s *Scripted) GenerateSound(_ context.Context, prompt string, _ time.Duration) (string, error) {
	return s.media("GenerateSound", prompt)
}

func (s *Scripted) GenerateImage(_ context.Context, prompt string) (string, error) {
	return s.media("GenerateImage", prompt)
}

func (s *Scripted) ModerateText(_ context.Context, text string) (bool, error) {
	if err := s.record("ModerateText", text); err != nil {
		return false, err
	}
	lower := strings.ToLower(text)
	for _, f := range s.Flagged {
		if strings.Contains(lower, strings.ToLower(f)) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Scripted) FetchURL(_ context.Context, url string) ([]byte, error) {
	if err := s.record("FetchURL", url); err != nil {
		return nil, err
	}
	if b, ok := s.Fetch[url]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnavailable, url)
}
