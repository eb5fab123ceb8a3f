package testutil

import (
	"context"
	"sync"

	"github.com/macrat/scout/internal/alert"
)

// DummySink is an alert.Sink that records payloads instead of sending them.
type DummySink struct {
	sync.Mutex

	URLs     []string
	Payloads []alert.Payload

	// Err is returned from Send if set.
	Err error
}

func (s *DummySink) Send(ctx context.Context, url string, p alert.Payload) (string, error) {
	s.Lock()
	defer s.Unlock()

	if s.Err != nil {
		return "", s.Err
	}

	s.URLs = append(s.URLs, url)
	s.Payloads = append(s.Payloads, p)
	return "ok", nil
}

// Count returns the number of payloads sent.
func (s *DummySink) Count() int {
	s.Lock()
	defer s.Unlock()

	return len(s.Payloads)
}
