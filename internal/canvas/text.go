package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// DefaultFamily is used when a text layer names an unknown font.
const DefaultFamily = "go"

type variant int

const (
	regular variant = iota
	bold
	italic
	boldItalic
	light
)

type family map[variant]*opentype.Font

var fonts = struct {
	sync.RWMutex
	families map[string]family
	once     sync.Once
}{families: map[string]family{}}

func registerGoFonts() {
	fonts.once.Do(func() {
		for v, data := range map[variant][]byte{
			regular:    goregular.TTF,
			bold:       gobold.TTF,
			italic:     goitalic.TTF,
			boldItalic: gobolditalic.TTF,
		} {
			f, err := opentype.Parse(data)
			if err != nil {
				panic(fmt.Sprintf("go font: %v", err))
			}
			register(DefaultFamily, v, f)
		}
	})
}

func register(name string, v variant, f *opentype.Font) {
	fonts.Lock()
	defer fonts.Unlock()
	key := strings.ToLower(name)
	fam, ok := fonts.families[key]
	if !ok {
		fam = family{}
		fonts.families[key] = fam
	}
	if _, taken := fam[v]; !taken {
		fam[v] = f
	}
}

// LoadFonts registers the built-in Go fonts and every .ttf/.otf file in
// dir under its family name. A missing dir is not an error. It returns
// the number of registered families.
func LoadFonts(dir string) (int, error) {
	registerGoFonts()
	if dir == "" {
		return len(Families()), nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return len(Families()), nil
		}
		return 0, fmt.Errorf("read fonts dir: %w", err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return 0, fmt.Errorf("read font %s: %w", e.Name(), err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return 0, fmt.Errorf("parse font %s: %w", e.Name(), err)
		}
		name, v := describe(f, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		register(name, v, f)
	}
	return len(Families()), nil
}

// describe извлекает семейство и начертание из таблицы имён шрифта.
func describe(f *opentype.Font, fallback string) (string, variant) {
	var buf sfnt.Buffer
	name, err := f.Name(&buf, sfnt.NameIDFamily)
	if err != nil || name == "" {
		name = fallback
	}
	sub, _ := f.Name(&buf, sfnt.NameIDSubfamily)
	sub = strings.ToLower(sub)
	isBold := strings.Contains(sub, "bold")
	isItalic := strings.Contains(sub, "italic") || strings.Contains(sub, "oblique")
	switch {
	case isBold && isItalic:
		return name, boldItalic
	case isBold:
		return name, bold
	case isItalic:
		return name, italic
	case strings.Contains(sub, "light") || strings.Contains(sub, "thin"):
		return name, light
	}
	return name, regular
}

// Families lists the registered font families.
func Families() []string {
	fonts.RLock()
	defer fonts.RUnlock()
	out := make([]string, 0, len(fonts.families))
	for name := range fonts.families {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func lookup(name string, v variant) *opentype.Font {
	registerGoFonts()
	fonts.RLock()
	defer fonts.RUnlock()
	fam, ok := fonts.families[strings.ToLower(name)]
	if !ok {
		fam = fonts.families[DefaultFamily]
	}
	if f, ok := fam[v]; ok {
		return f
	}
	switch v {
	case boldItalic:
		if f, ok := fam[bold]; ok {
			return f
		}
	case light:
		if f, ok := fam[regular]; ok {
			return f
		}
	}
	if f, ok := fam[regular]; ok {
		return f
	}
	return fonts.families[DefaultFamily][regular]
}

type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// TextOptions describes one block of text. The block starts at (X, Y),
// its top edge, and wraps at Width when Width is positive.
type TextOptions struct {
	Value   string
	Family  string
	Size    float64
	Bold    bool
	Italic  bool
	Light   bool
	Color   color.NRGBA
	X, Y    float64
	Width   float64
	Align   TextAlign
	Spacing float64 // трекинг в долях кегля
}

type faceKey struct {
	font *opentype.Font
	size float64
}

// Typesetter draws text with cached faces. Faces are not safe for
// concurrent use, so every render owns its own Typesetter.
type Typesetter struct {
	faces map[faceKey]font.Face
}

func NewTypesetter() *Typesetter {
	return &Typesetter{faces: map[faceKey]font.Face{}}
}

func (t *Typesetter) face(o TextOptions) (font.Face, error) {
	v := regular
	switch {
	case o.Bold && o.Italic:
		v = boldItalic
	case o.Bold:
		v = bold
	case o.Italic:
		v = italic
	case o.Light:
		v = light
	}
	key := faceKey{font: lookup(o.Family, v), size: o.Size}
	if f, ok := t.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(key.font, &opentype.FaceOptions{
		Size:    o.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	t.faces[key] = f
	return f, nil
}

// Draw renders o onto dst.
func (t *Typesetter) Draw(dst draw.Image, o TextOptions) error {
	if o.Value == "" || o.Size <= 0 {
		return nil
	}
	face, err := t.face(o)
	if err != nil {
		return err
	}
	tracking := fixed.Int26_6(o.Spacing * o.Size * 64)
	metrics := face.Metrics()

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(o.Color), Face: face}
	baseline := fixed.Int26_6(o.Y*64) + metrics.Ascent
	for _, line := range wrap(face, o.Value, fixed.Int26_6(o.Width*64), tracking) {
		w := measure(face, line, tracking)
		x := fixed.Int26_6(o.X * 64)
		if o.Width > 0 {
			box := fixed.Int26_6(o.Width * 64)
			switch o.Align {
			case AlignCenter:
				x += (box - w) / 2
			case AlignRight:
				x += box - w
			}
		}
		d.Dot = fixed.Point26_6{X: x, Y: baseline}
		for _, r := range line {
			d.DrawString(string(r))
			d.Dot.X += tracking
		}
		baseline += metrics.Height
	}
	return nil
}

// Close releases the cached faces.
func (t *Typesetter) Close() error {
	for k, f := range t.faces {
		f.Close()
		delete(t.faces, k)
	}
	return nil
}

func measure(face font.Face, s string, tracking fixed.Int26_6) fixed.Int26_6 {
	var w fixed.Int26_6
	n := 0
	for _, r := range s {
		adv, _ := face.GlyphAdvance(r)
		w += adv
		n++
	}
	if n > 1 {
		w += tracking * fixed.Int26_6(n-1)
	}
	return w
}

// wrap разбивает текст по словам так, чтобы строка помещалась в width.
func wrap(face font.Face, s string, width, tracking fixed.Int26_6) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if width <= 0 || len(words) == 0 {
			lines = append(lines, para)
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			next := cur + " " + w
			if measure(face, next, tracking) > width {
				lines = append(lines, cur)
				cur = w
				continue
			}
			cur = next
		}
		lines = append(lines, cur)
	}
	return lines
}
