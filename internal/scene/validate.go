package scene

import (
	"strings"

	"github.com/ivlev/audiogram/internal/animation"
	"github.com/ivlev/audiogram/internal/apperr"
	"github.com/ivlev/audiogram/internal/storage"
)

// Resolver maps an uploaded resource name to a local path.
type Resolver interface {
	Resolve(kind storage.Kind, id, name string) string
}

// normalize приводит значения перечислений к нижнему регистру: клиенты
// присылают их как "SPECTROGRAM", "FAD" и т.п.
func (s *Scene) normalize() {
	lower := func(v string) string { return strings.ToLower(strings.TrimSpace(v)) }

	if s.Background != nil {
		s.Background.Type = BackgroundType(lower(string(s.Background.Type)))
	}
	s.Meta.Tracker.Type = lower(s.Meta.Tracker.Type)
	for i := range s.Waveforms {
		w := &s.Waveforms[i]
		w.Type = WaveformType(lower(string(w.Type)))
		w.Design = Design(lower(string(w.Design)))
		w.FillMode = FillMode(lower(string(w.FillMode)))
		if w.Design == "" {
			w.Design = DesignDefault
		}
		if w.FillMode == "" {
			w.FillMode = FillMono
		}
	}
	for i := range s.Effects {
		e := &s.Effects[i]
		e.EffectType = EffectType(lower(string(e.EffectType)))
		e.EffectMode = EffectMode(lower(string(e.EffectMode)))
		if e.EffectMode == "" {
			e.EffectMode = EffectDefault
		}
	}
	for i := range s.Images {
		img := &s.Images[i]
		img.Frame = FrameType(lower(string(img.Frame)))
		img.Mask = MaskType(lower(string(img.Mask)))
		img.Align = Align(lower(string(img.Align)))
		img.ImageEffect = ImageEffect(lower(string(img.ImageEffect)))
		img.Filter = FilterType(lower(string(img.Filter)))
	}
	for i := range s.Texts {
		t := &s.Texts[i]
		t.Align = Align(lower(string(t.Align)))
		t.FontStyle = lower(t.FontStyle)
		t.FontWeight = lower(t.FontWeight)
	}
	for i := range s.Shapes {
		s.Shapes[i].ShapeType = ShapeType(lower(string(s.Shapes[i].ShapeType)))
	}
	for i := range s.Animations {
		for _, p := range []*animation.Parameter{s.Animations[i].PosX, s.Animations[i].PosY, s.Animations[i].Opacity} {
			if p == nil {
				continue
			}
			p.Direction = animation.Direction(lower(string(p.Direction)))
			p.Interpolation = animation.Interpolation(lower(string(p.Interpolation)))
			if p.Interpolation == "" {
				p.Interpolation = animation.Linear
			}
		}
	}
}

// Validate reports the first configuration problem found.
func (s *Scene) Validate() error {
	const op = "validate scene"

	if s.ID == "" {
		return apperr.Configuration(op, "missing scene id")
	}
	if s.Meta.Video.Width <= 0 || s.Meta.Video.Height <= 0 {
		return apperr.Configuration(op, "video size must be positive, got %.0fx%.0f", s.Meta.Video.Width, s.Meta.Video.Height)
	}
	if err := checkColor("meta.video.fill", s.Meta.Video.Fill); err != nil {
		return err
	}
	if s.Meta.Tracker.Display {
		if t := s.Meta.Tracker.Type; t != "" && t != "horizontal_bar" {
			return apperr.Configuration(op, "unknown tracker type %q", t)
		}
		if err := checkColor("meta.tracker.fill", s.Meta.Tracker.Fill); err != nil {
			return err
		}
	}

	if bg := s.Background; bg != nil {
		if bg.Type != BackgroundGIF && bg.Type != BackgroundVideo {
			return apperr.Configuration(op, "unknown background type %q", bg.Type)
		}
		if bg.File == "" {
			return apperr.Configuration(op, "background file is required")
		}
		if bg.Width <= 0 || bg.Height <= 0 {
			return apperr.Configuration(op, "background size must be positive")
		}
	}

	models := make(map[string]bool, len(s.Animations))
	for _, m := range s.Animations {
		if m.ID == "" {
			return apperr.Configuration(op, "animation model without id")
		}
		if err := m.Validate(); err != nil {
			return apperr.Configuration(op, "%v", err)
		}
		models[m.ID] = true
	}
	for _, l := range s.layers() {
		animated, key := l.animation()
		if animated && !models[key] {
			return apperr.Configuration(op, "%s layer references unknown animation model %q", l.Kind, key)
		}
	}

	for i, img := range s.Images {
		if img.File == "" {
			return apperr.Configuration(op, "image %d: file is required", i)
		}
	}
	for i, sh := range s.Shapes {
		switch sh.ShapeType {
		case ShapeBox, ShapeCircle, ShapeLine:
		case ShapeSVG:
			if sh.SVG == "" {
				return apperr.Configuration(op, "shape %d: svg source is required", i)
			}
		case ShapeQR:
			if sh.Value == "" {
				return apperr.Configuration(op, "shape %d: qr value is required", i)
			}
		default:
			return apperr.Configuration(op, "shape %d: unknown shape type %q", i, sh.ShapeType)
		}
		if err := checkColor("shape.fill", sh.Fill); err != nil {
			return err
		}
	}
	for _, t := range s.Texts {
		if err := checkColor("text.color", t.Color); err != nil {
			return err
		}
	}

	for i, w := range s.Waveforms {
		switch w.Type {
		case FrequencyWave, SignalWave:
		default:
			return apperr.Configuration(op, "waveform %d: unknown type %q", i, w.Type)
		}
		switch w.FillMode {
		case FillMono, FillGradientMid, FillGradientLR, FillGradientRL, FillTriad:
		default:
			return apperr.Configuration(op, "waveform %d: unknown fill mode %q", i, w.FillMode)
		}
		for _, c := range []string{w.Fill1, w.Fill2, w.Fill3, w.StrokeFill} {
			if err := checkColor("waveform fill", c); err != nil {
				return err
			}
		}
	}
	for i, e := range s.Effects {
		if e.EffectType != EffectParticle {
			return apperr.Configuration(op, "effect %d: unknown effect type %q", i, e.EffectType)
		}
		switch e.EffectMode {
		case EffectDefault, EffectAlpha, EffectBeta, EffectGamma:
		default:
			return apperr.Configuration(op, "effect %d: unknown effect mode %q", i, e.EffectMode)
		}
	}
	return nil
}

func checkColor(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := ParseHex(value); err != nil {
		return apperr.Configuration("validate scene", "%s: %v", field, err)
	}
	return nil
}

// Prepare normalises and validates the scene, resolves resource names to
// local paths and splits layers into static (z-sorted) and animated ones.
// Each animated layer receives its own clone of the referenced model.
func (s *Scene) Prepare(r Resolver) error {
	s.normalize()
	if err := s.Validate(); err != nil {
		return err
	}

	if r != nil {
		for i := range s.Images {
			s.Images[i].File = r.Resolve(storage.KindImage, s.ID, s.Images[i].File)
		}
		if s.Background != nil {
			s.Background.File = r.Resolve(storage.KindBackground, s.ID, s.Background.File)
		}
		if s.Audio != "" {
			s.Audio = r.Resolve(storage.KindAudio, s.ID, s.Audio)
		}
		for i := range s.Shapes {
			if s.Shapes[i].ShapeType == ShapeSVG && !strings.HasPrefix(strings.TrimSpace(s.Shapes[i].SVG), "<") {
				s.Shapes[i].SVG = r.Resolve(storage.KindImage, s.ID, s.Shapes[i].SVG)
			}
		}
	}

	models := make(map[string]animation.Model, len(s.Animations))
	for _, m := range s.Animations {
		models[m.ID] = m
	}

	s.static = s.static[:0]
	s.animated = s.animated[:0]
	for _, l := range s.layers() {
		animated, key := l.animation()
		if animated {
			s.animated = append(s.animated, Animated{Layer: l, Model: models[key].Clone()})
		} else {
			s.static = append(s.static, l)
		}
	}
	sortByZ(s.static)
	s.prepared = true
	return nil
}

// Prepared reports whether Prepare succeeded.
func (s *Scene) Prepared() bool { return s.prepared }
