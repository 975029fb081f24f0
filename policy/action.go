package policy

import (
	"github.com/cockroachdb/errors"
)

// ActionOnIssue is the response to a data issue found on a column.
type ActionOnIssue int

const (
	// Unset marks an absent configuration value.
	Unset ActionOnIssue = iota
	Fail
	SendToRecycle
	Skip
	Ignore
	// Create is reserved for issue kinds where a missing record should be
	// created. The content checker never resolves to it.
	Create
)

var actionNames = map[ActionOnIssue]string{
	Fail:          "fail",
	SendToRecycle: "send_to_recycle",
	Skip:          "skip",
	Ignore:        "ignore",
	Create:        "create",
}

func (a ActionOnIssue) String() string {
	if a == Unset {
		return "unset"
	}
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// Valid returns whether a is one of the declared actions.
func (a ActionOnIssue) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

// Drops returns whether rows failing under this action are removed from the
// result.
func (a ActionOnIssue) Drops() bool {
	return a == Skip || a == SendToRecycle
}

func (a ActionOnIssue) MarshalText() ([]byte, error) {
	n, ok := actionNames[a]
	if !ok {
		return nil, errors.Newf("cannot marshal action %d", int(a))
	}
	return []byte(n), nil
}

func (a *ActionOnIssue) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction parses the text form of an action.
func ParseAction(s string) (ActionOnIssue, error) {
	for a, n := range actionNames {
		if n == s {
			return a, nil
		}
	}
	return Unset, errors.Newf(
		"unknown action %q, expected one of fail, send_to_recycle, skip, ignore, create",
		s,
	)
}
