package dice_test

import "sync"

// scriptedSource replays face values in order: Intn(n) returns faces[i]-1
// clamped into [0, n). It loops when the script runs out.
type scriptedSource struct {
	mu    sync.Mutex
	faces []int
	next  int
}

func newScriptedSource(faces ...int) *scriptedSource {
	return &scriptedSource{faces: faces}
}

func (s *scriptedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		panic("scriptedSource: Intn called with n <= 0")
	}
	f := s.faces[s.next%len(s.faces)]
	s.next++
	v := f - 1
	if v < 0 {
		v = 0
	}
	if v >= n {
		v = n - 1
	}
	return v
}
