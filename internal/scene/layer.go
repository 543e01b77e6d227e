package scene

import (
	"sort"

	"github.com/ivlev/audiogram/internal/animation"
)

type FrameType string

const (
	FrameNone   FrameType = "none"
	FrameThin   FrameType = "thin"
	FrameNormal FrameType = "normal"
	FrameSolid  FrameType = "solid"
)

type MaskType string

const (
	MaskNone   MaskType = "none"
	MaskCircle MaskType = "circle"
	MaskSquare MaskType = "square"
)

type Align string

const (
	AlignCenter Align = "center"
	AlignLeft   Align = "left"
	AlignRight  Align = "right"
)

type ImageEffect string

const (
	ImageEffectNone       ImageEffect = "none"
	ImageEffectBlur       ImageEffect = "blur"
	ImageEffectJitter     ImageEffect = "jitter"
	ImageEffectMonochrome ImageEffect = "monochrome"
)

type FilterType string

const (
	FilterNone   FilterType = "none"
	FilterScreen FilterType = "screen"
)

type ShapeType string

const (
	ShapeBox    ShapeType = "box"
	ShapeCircle ShapeType = "circle"
	ShapeLine   ShapeType = "line"
	ShapeSVG    ShapeType = "svg"
	ShapeQR     ShapeType = "qr"
)

type Image struct {
	Animated       bool        `json:"animated,omitempty" yaml:"animated,omitempty"`
	AnimationModel string      `json:"animationModel,omitempty" yaml:"animationModel,omitempty"`
	File           string      `json:"file" yaml:"file"`
	Frame          FrameType   `json:"frame,omitempty" yaml:"frame,omitempty"`
	FrameColor     string      `json:"frameColor,omitempty" yaml:"frameColor,omitempty"`
	Width          float64     `json:"width" yaml:"width"`
	Height         float64     `json:"height" yaml:"height"`
	Mask           MaskType    `json:"mask,omitempty" yaml:"mask,omitempty"`
	Transform      string      `json:"transform,omitempty" yaml:"transform,omitempty"` // "rotate:<deg>"
	PosX           float64     `json:"posX" yaml:"posX"`
	PosY           float64     `json:"posY" yaml:"posY"`
	ZIndex         int         `json:"zIndex" yaml:"zIndex"`
	Align          Align       `json:"align,omitempty" yaml:"align,omitempty"`
	ImageEffect    ImageEffect `json:"imageEffect,omitempty" yaml:"imageEffect,omitempty"`
	Filter         FilterType  `json:"filter,omitempty" yaml:"filter,omitempty"`
	FilterFill     string      `json:"filterFill,omitempty" yaml:"filterFill,omitempty"`
	Opacity        int         `json:"opacity" yaml:"opacity"`
}

type Text struct {
	Animated       bool    `json:"animated,omitempty" yaml:"animated,omitempty"`
	AnimationModel string  `json:"animationModel,omitempty" yaml:"animationModel,omitempty"`
	Value          string  `json:"value" yaml:"value"`
	Font           string  `json:"font,omitempty" yaml:"font,omitempty"`
	FontSize       int     `json:"fontSize" yaml:"fontSize"`
	FontStyle      string  `json:"fontStyle,omitempty" yaml:"fontStyle,omitempty"`   // italic
	FontWeight     string  `json:"fontWeight,omitempty" yaml:"fontWeight,omitempty"` // thin, normal, bold
	Color          string  `json:"color,omitempty" yaml:"color,omitempty"`
	PosX           float64 `json:"posX" yaml:"posX"`
	PosY           float64 `json:"posY" yaml:"posY"`
	ZIndex         int     `json:"zIndex" yaml:"zIndex"`
	Align          Align   `json:"align,omitempty" yaml:"align,omitempty"`
	Width          int     `json:"width,omitempty" yaml:"width,omitempty"`
	Spacing        float64 `json:"spacing,omitempty" yaml:"spacing,omitempty"`
	Opacity        int     `json:"opacity" yaml:"opacity"`
}

type Shape struct {
	Animated       bool      `json:"animated,omitempty" yaml:"animated,omitempty"`
	AnimationModel string    `json:"animationModel,omitempty" yaml:"animationModel,omitempty"`
	ShapeType      ShapeType `json:"shapeType" yaml:"shapeType"`
	PosX           float64   `json:"posX" yaml:"posX"`
	PosY           float64   `json:"posY" yaml:"posY"`
	Width          int       `json:"width" yaml:"width"`
	Height         int       `json:"height" yaml:"height"`
	Fill           string    `json:"fill,omitempty" yaml:"fill,omitempty"`
	SVG            string    `json:"svg,omitempty" yaml:"svg,omitempty"`
	Value          string    `json:"value,omitempty" yaml:"value,omitempty"` // содержимое QR-кода
	Outline        bool      `json:"outline,omitempty" yaml:"outline,omitempty"`
	OutlineWidth   int       `json:"outlineWidth,omitempty" yaml:"outlineWidth,omitempty"`
	OutlineColor   string    `json:"outlineColor,omitempty" yaml:"outlineColor,omitempty"`
	ZIndex         int       `json:"zIndex" yaml:"zIndex"`
	Opacity        int       `json:"opacity" yaml:"opacity"`
}

type LayerKind int

const (
	LayerImage LayerKind = iota + 1
	LayerText
	LayerShape
)

func (k LayerKind) String() string {
	switch k {
	case LayerImage:
		return "image"
	case LayerText:
		return "text"
	case LayerShape:
		return "shape"
	}
	return "unknown"
}

// Layer is a positionable, z-ordered drawable. Exactly one of Image,
// Text and Shape is set, matching Kind.
type Layer struct {
	Kind  LayerKind
	Image *Image
	Text  *Text
	Shape *Shape
}

func (l Layer) Z() int {
	switch l.Kind {
	case LayerImage:
		return l.Image.ZIndex
	case LayerText:
		return l.Text.ZIndex
	case LayerShape:
		return l.Shape.ZIndex
	}
	return 0
}

func (l Layer) Position() (float64, float64) {
	switch l.Kind {
	case LayerImage:
		return l.Image.PosX, l.Image.PosY
	case LayerText:
		return l.Text.PosX, l.Text.PosY
	case LayerShape:
		return l.Shape.PosX, l.Shape.PosY
	}
	return 0, 0
}

func (l Layer) SetPosition(x, y float64) {
	switch l.Kind {
	case LayerImage:
		l.Image.PosX, l.Image.PosY = x, y
	case LayerText:
		l.Text.PosX, l.Text.PosY = x, y
	case LayerShape:
		l.Shape.PosX, l.Shape.PosY = x, y
	}
}

func (l Layer) Opacity() int {
	switch l.Kind {
	case LayerImage:
		return l.Image.Opacity
	case LayerText:
		return l.Text.Opacity
	case LayerShape:
		return l.Shape.Opacity
	}
	return 100
}

func (l Layer) SetOpacity(o int) {
	switch l.Kind {
	case LayerImage:
		l.Image.Opacity = o
	case LayerText:
		l.Text.Opacity = o
	case LayerShape:
		l.Shape.Opacity = o
	}
}

func (l Layer) animation() (bool, string) {
	switch l.Kind {
	case LayerImage:
		return l.Image.Animated, l.Image.AnimationModel
	case LayerText:
		return l.Text.Animated, l.Text.AnimationModel
	case LayerShape:
		return l.Shape.Animated, l.Shape.AnimationModel
	}
	return false, ""
}

// Animated pairs a layer with the model driving it.
type Animated struct {
	Layer
	Model animation.Model
}

// Tick interpolates every configured property of the model and writes the
// result into the layer.
func (a *Animated) Tick(optimised bool) {
	x, y := a.Position()
	if a.Model.PosX != nil {
		x = a.Model.PosX.Interpolate(optimised)
	}
	if a.Model.PosY != nil {
		y = a.Model.PosY.Interpolate(optimised)
	}
	a.SetPosition(x, y)
	if a.Model.Opacity != nil {
		a.SetOpacity(int(a.Model.Opacity.Interpolate(optimised)))
	}
}

// layers копирует слои сцены, чтобы анимация не меняла исходное описание.
func (s *Scene) layers() []Layer {
	out := make([]Layer, 0, len(s.Images)+len(s.Texts)+len(s.Shapes))
	for i := range s.Images {
		img := s.Images[i]
		out = append(out, Layer{Kind: LayerImage, Image: &img})
	}
	for i := range s.Texts {
		txt := s.Texts[i]
		out = append(out, Layer{Kind: LayerText, Text: &txt})
	}
	for i := range s.Shapes {
		sh := s.Shapes[i]
		out = append(out, Layer{Kind: LayerShape, Shape: &sh})
	}
	return out
}

func sortByZ(layers []Layer) {
	sort.SliceStable(layers, func(i, j int) bool { return layers[i].Z() < layers[j].Z() })
}
