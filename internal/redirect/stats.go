package redirect

import (
	"sync"
)

// Statistics is the run-scoped, append-only aggregate of detected
// redirects. It lives for one run and is never persisted across runs.
// Guarded by a mutex because workers append concurrently.
type Statistics struct {
	mu         sync.Mutex
	infos      []Info
	byType     map[Type]int
	redirected map[string]struct{}
}

// NewStatistics creates an empty aggregate.
func NewStatistics() *Statistics {
	return &Statistics{
		byType:     make(map[Type]int),
		redirected: make(map[string]struct{}),
	}
}

// Record appends one detected redirect.
func (s *Statistics) Record(info Info) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, info)
	s.byType[info.Type]++
	s.redirected[info.OriginalURL] = struct{}{}
}

// WasRedirected reports whether url was recorded as a redirect origin.
func (s *Statistics) WasRedirected(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.redirected[url]
	return ok
}

// Total returns the number of recorded redirects.
func (s *Statistics) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.infos)
}

// Summary is the JSON shape merged into the run summary document.
type Summary struct {
	Total          int            `json:"total"`
	ByType         map[string]int `json:"byType"`
	RedirectedURLs []string       `json:"redirectedUrls"`
	Redirects      []Info         `json:"redirects"`
}

// Snapshot builds the mergeable summary block.
func (s *Statistics) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	byType := make(map[string]int, len(s.byType))
	for t, n := range s.byType {
		byType[string(t)] = n
	}
	urls := make([]string, 0, len(s.redirected))
	for u := range s.redirected {
		urls = append(urls, u)
	}
	return Summary{
		Total:          len(s.infos),
		ByType:         byType,
		RedirectedURLs: urls,
		Redirects:      append([]Info(nil), s.infos...),
	}
}
