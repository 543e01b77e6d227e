// Package framerate loops background media at the output frame rate.
package framerate

// Mode of conversion between the source and target frame rates.
type Mode int

const (
	Equal Mode = iota
	Up         // target > source: some source frames are repeated
	Down       // target < source: some source frames are skipped
)

func (m Mode) String() string {
	switch m {
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "equal"
}

// BuildSchedule distributes r active slots evenly over n positions:
// slot ((r-1) + i*n) / r mod n is active for every i in [0, r).
func BuildSchedule(n, r int) []bool {
	if n <= 0 {
		return nil
	}
	values := make([]bool, n)
	offset := r - 1
	for i := 0; i < r; i++ {
		pos := (offset + i*n) / r
		values[pos%n] = true
	}
	return values
}

// modeFor выбирает режим и расписание для пары частот.
func modeFor(sourceFPS, targetFPS int) (Mode, []bool) {
	switch {
	case targetFPS > sourceFPS:
		return Up, BuildSchedule(targetFPS, sourceFPS)
	case targetFPS < sourceFPS:
		return Down, BuildSchedule(sourceFPS, targetFPS)
	default:
		return Equal, nil
	}
}
