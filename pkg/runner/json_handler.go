package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
)

// JSONHandler speaks JSON Lines: one object per advance result out, one
// reply per line in.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// Message is one line written by the JSONHandler.
type Message struct {
	Type    string      `json:"type"`
	Seam    domain.Seam `json:"seam,omitempty"`
	Address string      `json:"address,omitempty"`
	Ops     []domain.Op `json:"ops,omitempty"`
	Text    string      `json:"text,omitempty"`
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

// Output writes the result as a single line.
func (h *JSONHandler) Output(ctx context.Context, res *domain.Result) error {
	return h.Encoder.Encode(Message{
		Type:    "result",
		Seam:    res.Seam,
		Address: res.Address,
		Ops:     res.Ops,
	})
}

// Input reads one line. A JSON string, an object with an "input" field,
// or raw text are accepted.
func (h *JSONHandler) Input(ctx context.Context, req domain.Op) (string, error) {
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return SanitizeInput(val)
	}
	var obj struct {
		Input *string `json:"input"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj.Input != nil {
		return SanitizeInput(*obj.Input)
	}
	return SanitizeInput(text)
}

// SystemOutput writes a system message line.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(Message{Type: "system", Text: msg})
}
