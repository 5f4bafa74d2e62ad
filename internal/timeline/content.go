package timeline

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/capgenie/capgenie/internal/draft"
)

// content wraps a decoded draft_content.json. Lists it does not touch keep
// their decoded values, so unknown keys and categories round-trip unchanged.
type content struct {
	doc       draft.Document
	materials map[string]any
}

func newContent(doc draft.Document) (*content, error) {
	var materials map[string]any
	switch m := doc["materials"].(type) {
	case nil:
		materials = map[string]any{}
		doc["materials"] = materials
	case map[string]any:
		materials = m
	default:
		return nil, fmt.Errorf("%w: materials is not an object", draft.ErrMalformedInput)
	}
	return &content{doc: doc, materials: materials}, nil
}

func (c *content) list(category string) ([]any, error) {
	return listValue(c.materials[category], "materials."+category)
}

func (c *content) setList(category string, items []any) {
	c.materials[category] = items
}

func (c *content) tracks() ([]any, error) {
	return listValue(c.doc["tracks"], "tracks")
}

func (c *content) duration() int64 {
	switch v := c.doc["duration"].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func listValue(v any, name string) ([]any, error) {
	switch l := v.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return l, nil
	default:
		return nil, fmt.Errorf("%w: %s is not an array", draft.ErrMalformedInput, name)
	}
}

// ensureAudioFadeKeys gives every decoded video material an audio_fade key.
// Typed VideoMaterial values always encode one.
func ensureAudioFadeKeys(videos []any) {
	for _, v := range videos {
		if m, ok := v.(map[string]any); ok {
			if _, has := m["audio_fade"]; !has {
				m["audio_fade"] = nil
			}
		}
	}
}

// auxCategory is one path-deduplicated auxiliary material list (canvases,
// speeds or placeholder_infos) with its material_name → id index.
type auxCategory struct {
	name   string
	items  []any
	byPath map[string]string
}

func newAuxCategory(c *content, name string) (*auxCategory, error) {
	items, err := c.list(name)
	if err != nil {
		return nil, err
	}
	a := &auxCategory{name: name, items: items, byPath: make(map[string]string, len(items))}
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		path, _ := m["material_name"].(string)
		id, _ := m["id"].(string)
		if path == "" || id == "" {
			continue
		}
		if _, seen := a.byPath[path]; !seen {
			a.byPath[path] = id
		}
	}
	return a, nil
}

func (a *auxCategory) idFor(path string, ids IDGenerator, build func(id string) any) string {
	if id, ok := a.byPath[path]; ok {
		return id
	}
	id := ids.NewID()
	a.items = append(a.items, build(id))
	a.byPath[path] = id
	return id
}

// pass accumulates the material lists touched while placing sequences into
// one content document.
type pass struct {
	c     *content
	ids   IDGenerator
	media *mediaCache

	videos, audios, fades          []any
	canvases, speeds, placeholders *auxCategory
}

// newPass prepares a document for placement. With reset, tracks and the
// video, audio and fade lists start empty; auxiliary lists always persist.
func newPass(doc draft.Document, ids IDGenerator, media *mediaCache, reset bool) (*pass, error) {
	c, err := newContent(doc)
	if err != nil {
		return nil, err
	}
	p := &pass{c: c, ids: ids, media: media, videos: []any{}, audios: []any{}, fades: []any{}}
	if !reset {
		if p.videos, err = c.list(CategoryVideos); err != nil {
			return nil, err
		}
		if p.audios, err = c.list(CategoryAudios); err != nil {
			return nil, err
		}
		if p.fades, err = c.list(CategoryAudioFades); err != nil {
			return nil, err
		}
	}
	if p.canvases, err = newAuxCategory(c, CategoryCanvases); err != nil {
		return nil, err
	}
	if p.speeds, err = newAuxCategory(c, CategorySpeeds); err != nil {
		return nil, err
	}
	if p.placeholders, err = newAuxCategory(c, CategoryPlaceholders); err != nil {
		return nil, err
	}
	return p, nil
}

// place creates the material, fade and auxiliary records for one sequence and
// returns the segment referencing them.
func (p *pass) place(seq Sequence) Segment {
	materialID := p.ids.NewID()
	sourceIn := SecondsToMicros(seq.ResolvedSourceIn())
	sourceOut := SecondsToMicros(seq.ResolvedSourceOut())
	fadeIn := SecondsToMicros(seq.FadeInDuration)
	fadeOut := SecondsToMicros(seq.FadeOutDuration)
	hasFade := fadeIn > 0 || fadeOut > 0
	name := filepath.Base(seq.Path)

	var fadeID string
	switch seq.Type {
	case KindVideo:
		w, h := p.media.Dimensions(seq.Path)
		vm := &VideoMaterial{
			ID:           materialID,
			Path:         seq.Path,
			Duration:     sourceOut - sourceIn,
			Width:        w,
			Height:       h,
			MaterialName: name,
			Volume:       seq.ResolvedVolume(),
			Type:         KindVideo,
		}
		if hasFade {
			vm.AudioFade = newAudioFade(p.ids.NewID(), fadeIn, fadeOut)
			p.fades = append(p.fades, vm.AudioFade)
			fadeID = vm.AudioFade.ID
		}
		p.videos = append(p.videos, vm)
	case KindAudio:
		p.audios = append(p.audios, &AudioMaterial{
			ID:           materialID,
			Path:         seq.Path,
			Duration:     sourceOut - sourceIn,
			MaterialName: name,
			Volume:       seq.ResolvedVolume(),
			Type:         KindAudio,
		})
		if hasFade {
			p.fades = append(p.fades, newAudioFade(materialID, fadeIn, fadeOut))
			fadeID = materialID
		}
	}

	refs := []string{
		p.canvases.idFor(seq.Path, p.ids, func(id string) any {
			return &Canvas{ID: id, Type: "canvas_color", MaterialName: seq.Path}
		}),
		p.speeds.idFor(seq.Path, p.ids, func(id string) any {
			return &Speed{ID: id, Type: "speed", Speed: 1.0, MaterialName: seq.Path}
		}),
		p.placeholders.idFor(seq.Path, p.ids, func(id string) any {
			return &PlaceholderInfo{ID: id, Type: "placeholder_info", MetaType: "none", MaterialName: seq.Path}
		}),
	}
	if fadeID != "" {
		refs = append(refs, fadeID)
	}

	start := SecondsToMicros(seq.StartTime)
	return Segment{
		ID:                p.ids.NewID(),
		MaterialID:        materialID,
		TargetTimerange:   TimeRange{Start: start, Duration: SecondsToMicros(seq.EndTime) - start},
		SourceTimerange:   TimeRange{Start: sourceIn, Duration: sourceOut - sourceIn},
		Volume:            seq.ResolvedVolume(),
		FadeIn:            FadeSpan{Duration: fadeIn},
		FadeOut:           FadeSpan{Duration: fadeOut},
		ExtraMaterialRefs: refs,
	}
}

// commit writes the accumulated lists back into the document.
func (p *pass) commit() {
	ensureAudioFadeKeys(p.videos)
	p.c.setList(CategoryVideos, p.videos)
	p.c.setList(CategoryAudios, p.audios)
	p.c.setList(CategoryAudioFades, p.fades)
	p.c.setList(CategoryCanvases, p.canvases.items)
	p.c.setList(CategorySpeeds, p.speeds.items)
	p.c.setList(CategoryPlaceholders, p.placeholders.items)
}
