// Package journal writes Scout's events as tab-separated lines.
//
// A line consists of time, status, latency in milliseconds, scope, and message.
// The scope is "patrol:<target>" for probe outcomes, "alert:<target>" for alert delivery, and "scout:<component>" for internal events.
package journal

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/macrat/scout/lib-scout"
)

const (
	StatusInfo    = "INFO"
	StatusFailure = "FAILURE"
)

// Entry is a line in the journal.
type Entry struct {
	Time    time.Time     `json:"time"`
	Status  string        `json:"status"`
	Latency time.Duration `json:"-"`
	Scope   string        `json:"scope"`
	Message string        `json:"message"`
}

func escapeMessage(s string) string {
	for _, x := range []struct {
		From string
		To   string
	}{
		{`\`, `\\`},
		{"\t", `\t`},
		{"\n", `\n`},
	} {
		s = strings.ReplaceAll(s, x.From, x.To)
	}
	return s
}

// String makes Entry a line of journal, without the trailing newline.
func (e Entry) String() string {
	return strings.Join([]string{
		e.Time.Format(time.RFC3339),
		e.Status,
		strconv.FormatFloat(float64(e.Latency.Microseconds())/1000, 'f', 3, 64),
		e.Scope,
		escapeMessage(e.Message),
	}, "\t")
}

// Journal writes entries to a writer, and delivers them to subscribers.
// It is safe to use from multiple goroutines.
type Journal struct {
	// Now returns current time. It is replaceable for testing.
	Now func() time.Time

	mu     sync.Mutex
	w      io.Writer
	subs   map[int]chan Entry
	nextID int
}

// New creates a Journal that writes to w.
func New(w io.Writer) *Journal {
	return &Journal{
		Now:  time.Now,
		w:    w,
		subs: make(map[int]chan Entry),
	}
}

// Write writes an entry.
// Write errors are ignored because there is nowhere else to report them.
func (j *Journal) Write(e Entry) {
	if e.Time.IsZero() {
		e.Time = j.Now()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	io.WriteString(j.w, e.String()+"\n")

	for _, ch := range j.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Snapshot writes a probe outcome of the target.
func (j *Journal) Snapshot(t api.Target, s api.Snapshot) {
	msg := s.ErrMessage
	if s.Status == api.StatusOK {
		msg = "status=" + strconv.Itoa(s.StatusCode)
	} else if s.Status == api.StatusIdle {
		msg = "out of work time"
	} else if s.StatusCode != 0 {
		msg = "status=" + strconv.Itoa(s.StatusCode) + ": " + msg
	}

	j.Write(Entry{
		Time:    s.Timestamp,
		Status:  s.Status.String(),
		Latency: s.ResponseTime,
		Scope:   "patrol:" + t.Name,
		Message: msg,
	})
}

// Info writes an informational message.
func (j *Journal) Info(scope, message string) {
	j.Write(Entry{
		Status:  StatusInfo,
		Scope:   scope,
		Message: message,
	})
}

// Failure writes an error.
// It does nothing if err is nil.
func (j *Journal) Failure(scope string, err error) {
	if err == nil {
		return
	}
	j.Write(Entry{
		Status:  StatusFailure,
		Scope:   scope,
		Message: err.Error(),
	})
}

// Subscribe registers a channel that receives following entries.
// Entries are dropped if the channel is full.
// The cancel function unregisters and closes the channel.
func (j *Journal) Subscribe(buffer int) (entries <-chan Entry, cancel func()) {
	ch := make(chan Entry, buffer)

	j.mu.Lock()
	id := j.nextID
	j.nextID++
	j.subs[id] = ch
	j.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			j.mu.Lock()
			delete(j.subs, id)
			j.mu.Unlock()
			close(ch)
		})
	}
}
