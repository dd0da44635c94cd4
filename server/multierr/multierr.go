// Package multierr collects errors from independent steps, typically during
// shutdown, and exposes cause checking that sees through juju/errors
// annotations.
package multierr

import (
	e "errors"
	"fmt"
	"strings"

	"github.com/juju/errors"
)

type MultiErr struct {
	first error
	all   []error
}

func New() *MultiErr {
	return &MultiErr{}
}

// Add records err. Nil errors are ignored.
func (m *MultiErr) Add(err error) {
	if err == nil {
		return
	}

	if m.first == nil {
		m.first = err
	}

	m.all = append(m.all, err)
}

// Err returns nil when nothing was recorded, the error itself when exactly
// one was, and otherwise a combined error listing the stack traces of every
// recorded error.
func (m *MultiErr) Err() error {
	if len(m.all) <= 1 {
		return m.first
	}

	var sb strings.Builder

	for i, err := range m.all {
		if i > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString(fmt.Sprintf("%d. ", i+1))
		sb.WriteString(errors.ErrorStack(err))
	}

	return errors.Errorf("multiple errors occurred:\n%s", sb.String())
}

// Is unwraps juju/errors annotations before comparing against target.
func Is(err, target error) bool {
	return e.Is(errors.Cause(err), target)
}
