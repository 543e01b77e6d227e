package visualizer

import (
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"time"

	"github.com/ivlev/audiogram/internal/apperr"
	"github.com/ivlev/audiogram/internal/audio"
	"github.com/ivlev/audiogram/internal/canvas"
	"github.com/ivlev/audiogram/internal/scene"
)

// Effect draws a scene effect for one frame. Effects keep state between
// frames and always read the frequency series.
type Effect interface {
	Apply(dst draw.Image, f audio.Frame)
}

// MaxParticles caps the pool of an amplitude-driven particle field.
const MaxParticles = 1000

// defaultSpread — высота полосы появления частиц, если у эффекта не задана
// своя.
const defaultSpread = 200

type Option func(*options)

type options struct {
	rnd *rand.Rand
}

// WithRand makes particle spawning deterministic.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rnd = r }
}

// NewEffects builds one effect per effect descriptor of the scene.
func NewEffects(sc *scene.Scene, opts ...Option) ([]Effect, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rnd == nil {
		o.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	effects := make([]Effect, 0, len(sc.Effects))
	for _, e := range sc.Effects {
		switch e.EffectType {
		case scene.EffectParticle:
			effects = append(effects, NewParticleField(e, o.rnd))
		default:
			return nil, apperr.Configuration("new effect", "unknown effect type %q", e.EffectType)
		}
	}
	return effects, nil
}

type particle struct {
	x, y     float64
	dx, dy   float64
	radius   float64
	lifespan float64
}

// ParticleField spawns particles inside the effect box and moves them
// along the mode's direction, faster when the bass is loud.
type ParticleField struct {
	e         scene.Effect
	fill      color.NRGBA
	rnd       *rand.Rand
	cap       int
	particles []particle
}

func NewParticleField(e scene.Effect, rnd *rand.Rand) *ParticleField {
	return &ParticleField{
		e:         e,
		fill:      scene.Color(e.Fill, white),
		rnd:       rnd,
		cap:       MaxParticles,
		particles: make([]particle, 0, MaxParticles),
	}
}

// Len is the number of live particles.
func (p *ParticleField) Len() int { return len(p.particles) }

func (p *ParticleField) spawn() particle {
	r := p.rnd
	spread := p.e.Height
	if spread <= 0 {
		spread = defaultSpread
	}
	speed := r.Float64()*4 + 1
	pt := particle{
		x:        float64(p.e.PosX) + r.Float64()*p.e.Width + 1,
		y:        float64(p.e.PosY) + r.Float64()*spread + 1,
		radius:   r.Float64()*5 + 1,
		lifespan: r.Float64()*300 + 1,
	}
	switch p.e.EffectMode {
	case scene.EffectAlpha: // вверх
		pt.dy = -speed
	case scene.EffectBeta: // вбок
		pt.dx = speed
	case scene.EffectGamma: // во все стороны
		a := r.Float64() * 2 * math.Pi
		pt.dx, pt.dy = speed*math.Cos(a), speed*math.Sin(a)
	default: // вниз
		pt.dy = speed
	}
	return pt
}

// Apply tops the pool up to its cap, reaps expired particles and draws
// and advances the rest. The push of the frame is (f[0]+f[1])/10 pixels
// along each particle's direction.
func (p *ParticleField) Apply(dst draw.Image, f audio.Frame) {
	for len(p.particles) < p.cap {
		p.particles = append(p.particles, p.spawn())
	}
	vel := math.Trunc((f[0] + f[1]) / 10)

	live := p.particles[:0]
	for _, pt := range p.particles {
		if pt.lifespan < 0 {
			continue
		}
		p.draw(dst, pt)
		pt.advance(vel)
		live = append(live, pt)
	}
	p.particles = live
}

func (pt *particle) advance(vel float64) {
	speed := math.Hypot(pt.dx, pt.dy)
	if speed > 0 {
		pt.x += math.Trunc(pt.dx + vel*pt.dx/speed)
		pt.y += math.Trunc(pt.dy + vel*pt.dy/speed)
	}
	pt.lifespan--
}

func (p *ParticleField) draw(dst draw.Image, pt particle) {
	for _, ring := range [...]struct{ scale, alpha float64 }{
		{1, 0.1},
		{0.75, 0.3},
		{0.5, 0.6},
	} {
		canvas.Fill(dst, canvas.Circle(pt.x, pt.y, pt.radius*ring.scale), canvas.Solid{Color: canvas.WithAlpha(p.fill, ring.alpha)})
	}
}
