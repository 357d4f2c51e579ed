package runtime

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/script"
	"gopkg.in/yaml.v3"
)

// textHandler speaks a line of dialogue.
type textHandler struct{}

func (textHandler) Tags() []string { return []string{domain.TagParagraph, domain.TagText} }

func (textHandler) Handle(ctx context.Context, a *Action) Outcome {
	body := strings.TrimSpace(a.Render(a.Node.Text))
	if body == "" {
		return a.Skip()
	}
	attrs := a.Attrs()
	from := attrs[domain.AttrFrom]
	if from == "" {
		from = domain.NarratorSpeaker
	}
	to := splitList(attrs[domain.AttrTo])
	voice := voiceFor(ctx, a, from, attrs[domain.AttrVoice])

	op := domain.Op{
		Type:    domain.OpPlayMedia,
		Kind:    domain.MediaSpeech,
		From:    from,
		To:      to,
		Body:    body,
		Voice:   voice,
		Address: a.Node.Address,
	}
	if a.Options().GenerateAudio {
		op.URL, _ = a.Provider().GenerateSpeech(ctx, ports.SpeechRequest{
			Text:    pronounce(body, a.Cartridge().Pronunciations),
			Speaker: from,
			Voice:   voice,
		})
	}
	a.Record(domain.Event{Kind: domain.EventDialog, From: from, To: to, Body: body})
	return Outcome{Ops: []domain.Op{op}, Next: a.Next(true)}
}

// voiceFor resolves the voice of a speaker: an explicit attribute wins,
// then the cartridge voice table. Described voices without an id are
// designed once per session and cached.
func voiceFor(ctx context.Context, a *Action, speaker, explicit string) string {
	if explicit != "" {
		return explicit
	}
	v, ok := a.Cartridge().Voices[speaker]
	if !ok {
		return ""
	}
	if v.ID != "" || v.Description == "" || !a.Options().GenerateAudio {
		return v.ID
	}
	key := "voice:" + speaker
	cache := a.Session().Cache
	if cached, ok := cache[key]; ok {
		return cached.String()
	}
	id, _ := a.Provider().GenerateVoice(ctx, v.Description)
	if id != "" {
		cache[key] = domain.Str(id)
	}
	return id
}

// pronounce applies the cartridge pronunciation table to whole words, longest
// entries first.
func pronounce(text string, table map[string]string) string {
	if len(table) == 0 {
		return text
	}
	words := make([]string, 0, len(table))
	for w := range table {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
	for _, w := range words {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(w) + `\b`)
		if err != nil {
			continue
		}
		text = re.ReplaceAllLiteralString(text, table[w])
	}
	return text
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// varHandler assigns a variable from a value attribute, an expression or
// its rendered text.
type varHandler struct{}

func (varHandler) Tags() []string { return []string{domain.TagVar} }

func (varHandler) Handle(ctx context.Context, a *Action) Outcome {
	name := a.Node.AttrOr(domain.AttrName, "")
	if name == "" {
		return Outcome{Ops: []domain.Op{storyError(a, "var without name")}}
	}

	var v domain.Value
	if expr, ok := a.Node.Attr(domain.AttrExpr); ok {
		var err error
		v, err = a.Evaluate(ctx, a.Interpolate(expr))
		if err != nil {
			a.Logger().WarnContext(ctx, "var expression failed", "name", name, "err", err)
			return a.Skip()
		}
	} else {
		attrs := a.Attrs()
		raw, ok := attrs[domain.AttrValue]
		if !ok {
			raw = a.Render(a.Node.Text)
		}
		v = domain.Coerce(raw, a.Node.AttrOr(domain.AttrType, ""))
	}

	if a.Node.AttrOr(domain.AttrScope, "") == "global" {
		a.Scope().SetGlobal(name, v)
	} else {
		a.Scope().Set(name, v)
	}
	return a.Skip()
}

// codeHandler runs script statements. Failures are logged and skipped.
type codeHandler struct{}

func (codeHandler) Tags() []string { return []string{domain.TagCode, domain.TagScript} }

func (codeHandler) Handle(ctx context.Context, a *Action) Outcome {
	if strings.TrimSpace(a.Node.Text) != "" {
		if err := a.Exec(ctx, a.Node.Text); err != nil {
			a.Logger().WarnContext(ctx, "script failed", "err", err)
		}
	}
	return a.Skip()
}

type sleepHandler struct{}

func (sleepHandler) Tags() []string { return []string{domain.TagSleep} }

func (sleepHandler) Handle(_ context.Context, a *Action) Outcome {
	d := parseDuration(a.Attrs()[domain.AttrDuration])
	if d <= 0 {
		return a.Skip()
	}
	op := domain.Sleep(d)
	op.Address = a.Node.Address
	return Outcome{Ops: []domain.Op{op}, Next: a.Next(true)}
}

// parseDuration accepts Go durations ("1.5s") or plain milliseconds.
func parseDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(ms * float64(time.Millisecond))
	}
	return 0
}

// mediaHandler plays a prerecorded audio file.
type mediaHandler struct{}

func (mediaHandler) Tags() []string { return []string{domain.TagMedia} }

func (mediaHandler) Handle(_ context.Context, a *Action) Outcome {
	attrs := a.Attrs()
	src := strings.TrimSpace(attrs[domain.AttrSrc])
	if src == "" {
		return a.Skip()
	}
	op := audioOp(a, attrs, src)
	a.Record(domain.Event{Kind: domain.EventMedia, Body: src})
	return Outcome{Ops: []domain.Op{op}, Next: a.Next(true)}
}

// generatedAudioHandler plays generated sound effects and music.
type generatedAudioHandler struct{}

func (generatedAudioHandler) Tags() []string { return []string{domain.TagSound, domain.TagMusic} }

func (generatedAudioHandler) Handle(ctx context.Context, a *Action) Outcome {
	attrs := a.Attrs()
	prompt := strings.TrimSpace(attrs[domain.AttrPrompt])
	if prompt == "" {
		prompt = strings.TrimSpace(a.Render(a.Node.Text))
	}
	if prompt == "" {
		return a.Skip()
	}
	d := parseDuration(attrs[domain.AttrDuration])

	var url string
	if a.Node.Type == domain.TagMusic {
		url, _ = a.Provider().GenerateMusic(ctx, prompt, d)
		if _, set := attrs[domain.AttrBG]; !set {
			attrs[domain.AttrBG] = "true"
		}
	} else {
		url, _ = a.Provider().GenerateSound(ctx, prompt, d)
	}
	if url == "" {
		return a.Skip()
	}
	op := audioOp(a, attrs, url)
	a.Record(domain.Event{Kind: domain.EventMedia, Body: prompt})
	return Outcome{Ops: []domain.Op{op}, Next: a.Next(true)}
}

func audioOp(a *Action, attrs map[string]string, url string) domain.Op {
	op := domain.Op{
		Type:    domain.OpPlayMedia,
		Kind:    domain.MediaAudio,
		URL:     url,
		Fade:    parseDuration(attrs[domain.AttrFade]),
		Address: a.Node.Address,
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(attrs[domain.AttrVolume]), 64); err == nil {
		op.Volume = v
	}
	op.Background, _ = strconv.ParseBool(strings.TrimSpace(attrs[domain.AttrBG]))
	return op
}

// imageHandler shows an image when image generation is enabled.
type imageHandler struct{}

func (imageHandler) Tags() []string { return []string{domain.TagImage} }

func (imageHandler) Handle(ctx context.Context, a *Action) Outcome {
	if !a.Options().GenerateImage {
		return a.Skip()
	}
	attrs := a.Attrs()
	url := strings.TrimSpace(attrs[domain.AttrSrc])
	prompt := strings.TrimSpace(attrs[domain.AttrPrompt])
	if prompt == "" {
		prompt = strings.TrimSpace(a.Render(a.Node.Text))
	}
	if url == "" && prompt != "" {
		url, _ = a.Provider().GenerateImage(ctx, prompt)
	}
	if url == "" {
		return a.Skip()
	}
	op := domain.Op{Type: domain.OpPlayMedia, Kind: domain.MediaImage, URL: url, Body: prompt, Address: a.Node.Address}
	a.Record(domain.Event{Kind: domain.EventMedia, Body: url})
	return Outcome{Ops: []domain.Op{op}, Next: a.Next(true)}
}

// dataHandler loads structured data inline or from a URL into a variable.
type dataHandler struct{}

func (dataHandler) Tags() []string { return []string{domain.TagData} }

func (dataHandler) Handle(ctx context.Context, a *Action) Outcome {
	name := a.Node.AttrOr(domain.AttrName, "")
	if name == "" {
		return Outcome{Ops: []domain.Op{storyError(a, "data without name")}}
	}
	attrs := a.Attrs()
	raw := []byte(a.Node.Text)
	format := strings.ToLower(attrs[domain.AttrFormat])

	if src := strings.TrimSpace(attrs[domain.AttrSrc]); src != "" {
		body, err := a.Provider().FetchURL(ctx, src)
		if err != nil {
			a.Logger().WarnContext(ctx, "data fetch failed", "src", src, "err", err)
			return a.Skip()
		}
		raw = body
		if format == "" && (strings.HasSuffix(src, ".yaml") || strings.HasSuffix(src, ".yml")) {
			format = "yaml"
		}
	}

	decoded, err := decodeData(raw, format)
	if err != nil {
		a.Logger().WarnContext(ctx, "data decode failed", "name", name, "err", err)
		return a.Skip()
	}
	if path := strings.TrimSpace(attrs[domain.AttrPath]); path != "" {
		decoded, err = script.Select(decoded, path)
		if err != nil {
			a.Logger().WarnContext(ctx, "data selection failed", "path", path, "err", err)
			return a.Skip()
		}
	}

	v := domain.FromAny(decoded)
	if a.Node.AttrOr(domain.AttrScope, "") == "global" {
		a.Scope().SetGlobal(name, v)
	} else {
		a.Scope().Set(name, v)
	}
	return a.Skip()
}

// decodeData parses JSON, falling back to YAML (a superset) when the format
// is not stated.
func decodeData(raw []byte, format string) (any, error) {
	var out any
	switch format {
	case "yaml", "yml":
		err := yaml.Unmarshal(raw, &out)
		return out, err
	case "json":
		err := json.Unmarshal(raw, &out)
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err == nil {
		return out, nil
	}
	err := yaml.Unmarshal(raw, &out)
	return out, err
}
