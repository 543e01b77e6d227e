// Package series приводит временные ряды к заданной длине.
package series

import "math"

// Resample возвращает n элементов s, взятых с равным шагом из центров
// интервалов. Если n >= len(s), s возвращается без изменений.
func Resample[T any](s []T, n int) []T {
	if n <= 0 {
		return []T{}
	}
	if n >= len(s) {
		return s
	}

	interval := float64(len(s)) / float64(n)
	out := make([]T, n)
	for i := 0; i < n; i++ {
		idx := int(math.Floor(float64(i)*interval + interval/2))
		if idx >= len(s) {
			idx = len(s) - 1
		}
		out[i] = s[idx]
	}
	return out
}

// FrameCount returns the number of video frames covering a track of the
// given length.
func FrameCount(fps int, trackLength float64) int {
	return int(math.Round(float64(fps) * trackLength))
}
