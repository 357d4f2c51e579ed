package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/fable/pkg/domain"
)

// TextHandler implements line-oriented terminal play.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	// Pace honors sleep ops by pausing output.
	Pace bool

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption configures a TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithPace makes the handler wait out sleep ops.
func WithPace(pace bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Pace = pace
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// The pump reads lines in the background so Input can honor cancellation.
func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

// Output prints dialogue, media cues and story status lines.
func (h *TextHandler) Output(ctx context.Context, res *domain.Result) error {
	for _, op := range res.Ops {
		switch op.Type {
		case domain.OpPlayMedia:
			h.media(op)
		case domain.OpSleep:
			if h.Pace && op.Duration > 0 {
				if err := pause(ctx, op.Duration); err != nil {
					return err
				}
			}
		case domain.OpRequestInput:
			if op.Body != "" {
				fmt.Fprintln(h.Writer, h.render(op.Body))
			}
		case domain.OpStoryError:
			fmt.Fprintf(h.Writer, "[error] %s\n", op.Reason)
		case domain.OpStoryEnd:
			fmt.Fprintln(h.Writer, "[the end]")
		}
	}
	return nil
}

func (h *TextHandler) media(op domain.Op) {
	switch op.Kind {
	case domain.MediaAudio:
		fmt.Fprintf(h.Writer, "[audio] %s\n", op.URL)
		return
	case domain.MediaImage:
		fmt.Fprintf(h.Writer, "[image] %s\n", op.URL)
		return
	}
	if op.Body == "" {
		return
	}
	line := h.render(op.Body)
	if op.From != "" {
		line = op.From + ": " + line
	}
	fmt.Fprintln(h.Writer, line)
}

func (h *TextHandler) render(text string) string {
	if h.Renderer != nil {
		if rendered, err := h.Renderer(text); err == nil {
			text = rendered
		}
	}
	return strings.TrimSpace(text)
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Input prompts and reads one line. Replies that fail sanitizing are
// reported and asked again.
func (h *TextHandler) Input(ctx context.Context, req domain.Op) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

// SystemOutput prints msg with a [System] prefix.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return err
}
