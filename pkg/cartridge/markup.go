package cartridge

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
	"gopkg.in/yaml.v3"
)

// rawTags keep their text verbatim; every other tag has whitespace collapsed.
var rawTags = map[string]bool{
	domain.TagCode:   true,
	domain.TagScript: true,
	domain.TagData:   true,
}

// inlineTags are folded into the text of their parent.
var inlineTags = map[string]bool{
	"b": true, "i": true, "em": true, "strong": true, "span": true, "u": true,
}

type frontMatter struct {
	Name           string                  `yaml:"name"`
	Voices         map[string]domain.Voice `yaml:"voices"`
	Pronunciations map[string]string       `yaml:"pronunciations"`
	Meta           map[string]any          `yaml:"meta"`
}

const fence = "---"

// ParseMarkup decodes story markup. Top-level elements become children of
// a root node unless the document already is a single <root>.
func ParseMarkup(data []byte) (*domain.Cartridge, error) {
	fm, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, err
	}

	src := "<fable>" + escapeLoose(string(body)) + "</fable>"
	dec := xml.NewDecoder(strings.NewReader(src))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	wrapper := &domain.Node{Type: domain.TagRoot}
	stack := []*domain.Node{}
	texts := []*strings.Builder{}
	var open []string

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCartridge, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			tag := strings.ToLower(t.Name.Local)
			if len(stack) > 0 && inlineTags[tag] {
				open = append(open, tag)
				continue
			}
			var n *domain.Node
			if len(stack) == 0 {
				n = wrapper
			} else {
				n = &domain.Node{Type: tag}
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			for _, a := range t.Attr {
				if n.Attributes == nil {
					n.Attributes = map[string]string{}
				}
				n.Attributes[strings.ToLower(a.Name.Local)] = a.Value
			}
			stack = append(stack, n)
			texts = append(texts, &strings.Builder{})
			open = append(open, tag)

		case xml.EndElement:
			if len(open) == 0 {
				continue
			}
			tag := open[len(open)-1]
			open = open[:len(open)-1]
			if inlineTags[tag] && len(stack) > 1 {
				continue
			}
			n := stack[len(stack)-1]
			n.Text = finishText(n.Type, texts[len(texts)-1].String())
			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]

		case xml.CharData:
			if len(texts) > 0 {
				texts[len(texts)-1].Write(t)
			}
		}
	}

	root := wrapper
	if len(wrapper.Children) == 1 && wrapper.Children[0].Type == domain.TagRoot {
		root = wrapper.Children[0]
	}
	root.Type = domain.TagRoot
	if root == wrapper {
		root.Text = ""
		root.Attributes = nil
	}

	return &domain.Cartridge{
		Name:           fm.Name,
		Root:           root,
		Voices:         fm.Voices,
		Pronunciations: fm.Pronunciations,
		Meta:           fm.Meta,
	}, nil
}

func finishText(tag, raw string) string {
	if rawTags[tag] {
		return strings.Trim(raw, "\n")
	}
	return strings.Join(strings.Fields(raw), " ")
}

func splitFrontMatter(data []byte) (frontMatter, []byte, error) {
	var fm frontMatter
	trimmed := bytes.TrimLeft(data, "\ufeff \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte(fence)) {
		return fm, data, nil
	}
	rest := trimmed[len(fence):]
	end := bytes.Index(rest, []byte("\n"+fence))
	if end < 0 {
		return fm, data, nil
	}
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return fm, nil, fmt.Errorf("%w: front matter: %v", domain.ErrInvalidCartridge, err)
	}
	body := rest[end+len(fence)+1:]
	return fm, body, nil
}

var entityRe = regexp.MustCompile(`^&(?:[A-Za-z][A-Za-z0-9]*|#[0-9]+|#x[0-9A-Fa-f]+);`)

// escapeLoose escapes the characters authors tend to write unescaped:
// comparison operators in attribute values and in text, and bare
// ampersands. Comments and CDATA sections are copied untouched.
func escapeLoose(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inTag := false
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case !inTag && strings.HasPrefix(s[i:], "<!--"):
			end := strings.Index(s[i:], "-->")
			if end < 0 {
				end = len(s) - i - 3
			}
			b.WriteString(s[i : i+end+3])
			i += end + 2
		case !inTag && strings.HasPrefix(s[i:], "<![CDATA["):
			end := strings.Index(s[i:], "]]>")
			if end < 0 {
				end = len(s) - i - 3
			}
			b.WriteString(s[i : i+end+3])
			i += end + 2
		case c == '&' && !entityRe.MatchString(s[i:]):
			b.WriteString("&amp;")
		case inTag && quote != 0:
			switch c {
			case quote:
				quote = 0
				b.WriteByte(c)
			case '<':
				b.WriteString("&lt;")
			case '>':
				b.WriteString("&gt;")
			default:
				b.WriteByte(c)
			}
		case inTag:
			if c == '"' || c == '\'' {
				quote = c
			} else if c == '>' {
				inTag = false
			}
			b.WriteByte(c)
		case c == '<':
			if i+1 < len(s) && isTagStart(s[i+1]) {
				inTag = true
				b.WriteByte(c)
			} else {
				b.WriteString("&lt;")
			}
		case c == '>':
			b.WriteString("&gt;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isTagStart(c byte) bool {
	return c == '/' || c == '?' || c == '!' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
