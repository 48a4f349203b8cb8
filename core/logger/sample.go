package logger

import (
	"strconv"
	"strings"
	"sync"
)

// debugSampler lets through num out of every den high-volume debug events.
type debugSampler struct {
	mu   sync.Mutex
	num  int
	den  int
	seen int
}

func (s *debugSampler) configure(num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = 0
	if num <= 0 || den <= 0 {
		s.num, s.den = 0, 0
		return
	}
	s.num, s.den = min(num, den), den
}

func (s *debugSampler) allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.num == 0 || s.den == 0 {
		return true
	}
	s.seen = s.seen%s.den + 1
	return s.seen <= s.num
}

// parseSampleRatio accepts "n/d" or a bare "d" meaning 1/d.
// A zero or negative ratio disables sampling.
func parseSampleRatio(ratio string) (int, int) {
	ratio = strings.TrimSpace(ratio)
	if ratio == "" {
		return 0, 0
	}
	if numStr, denStr, ok := strings.Cut(ratio, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(numStr))
		den, err2 := strconv.Atoi(strings.TrimSpace(denStr))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return num, den
	}
	den, err := strconv.Atoi(ratio)
	if err != nil || den <= 0 {
		return 0, 0
	}
	return 1, den
}
