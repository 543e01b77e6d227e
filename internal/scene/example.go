package scene

import "github.com/ivlev/audiogram/internal/animation"

// Example returns a starter scene: a cover image sliding in, a title, a
// spectrogram ribbon, a particle field and the progress tracker.
func Example(id, audio, cover string) *Scene {
	return &Scene{
		ID:    id,
		Audio: audio,
		Meta: Meta{
			Video: Video{Fill: "#101018", Width: 1280, Height: 720, Quality: 6},
			Tracker: Tracker{
				Display: true, Type: "horizontal_bar", Fill: "#ffffff",
				PosX: 0, PosY: 710, Opacity: 80, Length: 1280,
			},
		},
		Images: []Image{{
			Animated: true, AnimationModel: "slide-in",
			File: cover, Width: 320, Height: 320, PosX: 80, PosY: 200,
			Mask: MaskCircle, Opacity: 100, ZIndex: 1,
		}},
		Texts: []Text{{
			Value: "Episode 1", FontSize: 48, FontWeight: "bold", Color: "#ffffff",
			PosX: 480, PosY: 260, Width: 720, Align: AlignLeft, Opacity: 100, ZIndex: 2,
		}},
		Waveforms: []Waveform{{
			Type: FrequencyWave, Design: DesignSpectrogram, FillMode: FillGradientLR,
			Fill1: "#00c6ff", Fill2: "#7a00ff",
			Width: 720, Height: 160, PosX: 480, PosY: 460, Opacity: 90,
		}},
		Effects: []Effect{{
			EffectType: EffectParticle, EffectMode: EffectDefault,
			PosX: 0, PosY: 620, Width: 1280, Height: 100, Fill: "#ffffff",
		}},
		Animations: []animation.Model{{
			ID: "slide-in",
			PosX: &animation.Parameter{
				Start: -320, End: 80, Duration: 800,
				Direction: animation.Forward, Interpolation: animation.EaseOut,
			},
			Opacity: &animation.Parameter{
				Start: 0, End: 100, Duration: 800,
				Direction: animation.Forward, Interpolation: animation.Linear,
			},
		}},
	}
}
