package scout

import (
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/macrat/scout/internal/scouterr"
)

// TargetSpec is the user-supplied definition of a Target.
//
// The numeric fields accept fractional values, and they are floored on Build.
// Nil numeric fields use the default values.
type TargetSpec struct {
	ID         string     `json:"id,omitempty" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Tags       []string   `json:"tags,omitempty" yaml:"tags"`
	Method     string     `json:"method,omitempty" yaml:"method"`
	URL        string     `json:"url" yaml:"url"`
	Body       string     `json:"body,omitempty" yaml:"body"`
	Headers    [][]string `json:"headers,omitempty" yaml:"headers"`
	ReadType   string     `json:"readType,omitempty" yaml:"read_type"`
	TestCase   string     `json:"testCase,omitempty" yaml:"test_case"`
	Recipients []string   `json:"recipients,omitempty" yaml:"recipients"`

	ApdexTarget *float64 `json:"apdexTarget,omitempty" yaml:"apdex_target"`
	Interval    *float64 `json:"interval,omitempty" yaml:"interval"`
	Tolerance   *float64 `json:"tolerance,omitempty" yaml:"tolerance"`

	WorkTime [][][]int `json:"workTime,omitempty" yaml:"work_time"`
}

func floorField(errs *scouterr.ListBuilder, name string, v *float64, def, min int) int {
	if v == nil {
		return def
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		errs.Pushf("%s must be a finite number", name)
		return def
	}

	x := math.Floor(*v)
	if x < float64(min) {
		errs.Pushf("%s must be %d or more but got %v", name, min, *v)
		return def
	}
	if x > math.MaxInt32 {
		errs.Pushf("%s is too large: %v", name, *v)
		return def
	}
	return int(x)
}

func buildWeekTime(xs []int) (WeekTime, error) {
	if len(xs) != 3 {
		return WeekTime{}, scouterr.New(ErrConfiguration, nil, "week time must be [weekday, hour, minute] but got %v", xs)
	}
	w := WeekTime{time.Weekday(xs[0]), xs[1], xs[2]}
	return w, w.Valid()
}

// Build validates the spec, and makes a Target.
// The returned error can be checked with errors.Is(err, ErrConfiguration).
//
// Build does not set ID if the spec doesn't have it.
func (s TargetSpec) Build() (Target, error) {
	errs := &scouterr.ListBuilder{Kind: ErrConfiguration}

	t := Target{
		ID:         s.ID,
		Name:       strings.TrimSpace(s.Name),
		Tags:       s.Tags,
		Method:     strings.ToUpper(strings.TrimSpace(s.Method)),
		URL:        strings.TrimSpace(s.URL),
		Body:       s.Body,
		ReadType:   ReadType(strings.ToLower(strings.TrimSpace(s.ReadType))),
		TestCase:   s.TestCase,
		Recipients: s.Recipients,
	}

	if t.Name == "" {
		errs.Pushf("name is required")
	}

	if t.URL == "" {
		errs.Pushf("url is required")
	} else if u, err := url.Parse(t.URL); err != nil {
		errs.Pushf("url is invalid: %s", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs.Pushf("url must be http or https but got %q", t.URL)
	} else if u.Host == "" {
		errs.Pushf("url must have host: %q", t.URL)
	}

	switch t.Method {
	case "":
		t.Method = "GET"
	case "GET", "HEAD", "POST":
	default:
		errs.Pushf("method must be GET, HEAD, or POST but got %q", s.Method)
	}

	switch t.ReadType {
	case "":
		t.ReadType = ReadText
	case ReadText, ReadJSON:
	default:
		errs.Pushf("read type must be text or json but got %q", s.ReadType)
	}

	for i, h := range s.Headers {
		if len(h) != 2 {
			errs.Pushf("header #%d must be [name, value] but got %d elements", i+1, len(h))
			continue
		}
		if strings.TrimSpace(h[0]) == "" {
			errs.Pushf("header #%d has empty name", i+1)
			continue
		}
		t.Headers = append(t.Headers, Header{strings.TrimSpace(h[0]), h[1]})
	}

	t.ApdexTarget = floorField(errs, "apdex target", s.ApdexTarget, DefaultApdexTarget, MinApdexTarget)
	t.Interval = floorField(errs, "interval", s.Interval, DefaultInterval, MinInterval)
	t.Tolerance = floorField(errs, "tolerance", s.Tolerance, DefaultTolerance, 0)

	for i, r := range s.WorkTime {
		if len(r) != 2 {
			errs.Pushf("work time #%d must be [start, end] but got %d elements", i+1, len(r))
			continue
		}
		start, err := buildWeekTime(r[0])
		if err != nil {
			errs.Pushf("work time #%d start: %s", i+1, err)
			continue
		}
		end, err := buildWeekTime(r[1])
		if err != nil {
			errs.Pushf("work time #%d end: %s", i+1, err)
			continue
		}
		t.WorkTime = append(t.WorkTime, WorkTimeRange{start, end})
	}

	if err := errs.Build(); err != nil {
		return Target{}, err
	}
	return t, nil
}
