// Package loam loads a story spread over a directory of documents managed
// by Loam. Each document holds story markup with YAML front matter.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/fable/pkg/cartridge"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"
)

// Loader adapts a Loam repository to ports.CartridgeLoader.
type Loader struct {
	Repo *loam.TypedRepository[ChapterMetadata]
	Name string
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[ChapterMetadata]) *Loader {
	return &Loader{Repo: repo}
}

type chapter struct {
	id   string
	path string
	meta ChapterMetadata
	body string
}

// Load assembles every document into one cartridge. Chapters are ordered
// by ID, so a numeric filename prefix controls play order.
func (l *Loader) Load(ctx context.Context) (*domain.Cartridge, error) {
	listed, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	chapters := make([]chapter, 0, len(listed))
	for _, entry := range listed {
		// List only carries identities; bodies come from Get.
		doc, err := l.Repo.Get(ctx, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("loam get failed for %s: %w", entry.ID, err)
		}
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existing, entry.ID)
		}
		seen[id] = entry.ID
		chapters = append(chapters, chapter{id: id, path: entry.ID, meta: doc.Data, body: doc.Content})
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].path < chapters[j].path })

	c := &domain.Cartridge{
		Name: l.Name,
		Root: &domain.Node{Type: domain.TagRoot},
	}
	var errs []string
	for _, ch := range chapters {
		if err := l.merge(c, ch); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: found %d errors:\n- %s", domain.ErrInvalidCartridge, len(errs), strings.Join(errs, "\n- "))
	}

	cartridge.Prepare(c)
	return c, nil
}

func (l *Loader) merge(c *domain.Cartridge, ch chapter) error {
	parsed, err := cartridge.ParseMarkup([]byte(ch.body))
	if err != nil {
		return fmt.Errorf("%s: %w", ch.path, err)
	}

	for speaker, raw := range ch.meta.Voices {
		var v domain.Voice
		switch val := raw.(type) {
		case string:
			v.ID = val
		default:
			if err := mapstructure.Decode(val, &v); err != nil {
				return fmt.Errorf("%s: voice %q: %w", ch.path, speaker, err)
			}
		}
		if c.Voices == nil {
			c.Voices = map[string]domain.Voice{}
		}
		c.Voices[speaker] = v
	}
	for word, say := range ch.meta.Pronunciations {
		if c.Pronunciations == nil {
			c.Pronunciations = map[string]string{}
		}
		c.Pronunciations[word] = say
	}
	for k, v := range ch.meta.Meta {
		if c.Meta == nil {
			c.Meta = map[string]any{}
		}
		c.Meta[k] = v
	}
	if ch.meta.Name != "" && c.Name == "" {
		c.Name = ch.meta.Name
	}

	if len(parsed.Root.Children) == 0 {
		return nil
	}

	tag := ch.meta.Tag
	if tag == "" {
		tag = domain.TagSection
	}
	node := &domain.Node{
		Type:       tag,
		Attributes: map[string]string{domain.AttrID: ch.id},
		Children:   parsed.Root.Children,
	}
	for k, v := range ch.meta.Attributes {
		node.Attributes[k] = v
	}
	if ch.meta.If != "" {
		node.Attributes[domain.AttrIf] = ch.meta.If
	}
	c.Root.Children = append(c.Root.Children, node)
	return nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Loam debounces; a full reload follows any change.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}
