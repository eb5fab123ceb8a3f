package scouterr

import (
	"fmt"
	"strings"
)

// List is a set of problems found while checking one thing, like a target definition or a configuration file.
// errors.Is matches both its Kind and any of its Problems.
type List struct {
	Kind     error
	Problems []error
}

// Error reports the kind on the first line, and each problem indented below it.
func (l List) Error() string {
	var sb strings.Builder
	sb.WriteString(l.Kind.Error())
	sb.WriteByte(':')

	for _, p := range l.Problems {
		for _, line := range strings.Split(p.Error(), "\n") {
			sb.WriteString("\n  ")
			sb.WriteString(line)
		}
	}

	return sb.String()
}

func (l List) Unwrap() []error {
	return append([]error{l.Kind}, l.Problems...)
}

// ListBuilder collects problems, so that a caller can report every invalid field at once.
type ListBuilder struct {
	Kind     error
	Problems []error
}

func (lb *ListBuilder) Push(err ...error) {
	lb.Problems = append(lb.Problems, err...)
}

// Pushf pushes a problem formatted by fmt.Errorf.
func (lb *ListBuilder) Pushf(format string, values ...interface{}) {
	lb.Push(fmt.Errorf(format, values...))
}

// Build returns nil if no problem was pushed.
func (lb *ListBuilder) Build() error {
	if len(lb.Problems) == 0 {
		return nil
	}

	return List{
		Kind:     lb.Kind,
		Problems: lb.Problems,
	}
}
