// Package policy decides what happens to a record when one of its columns
// has an issue.
package policy

import (
	"sort"

	"github.com/etlkit/etl/etlerr"
)

// IssuePolicy holds the actions for one kind of issue: a default applying to
// every column, and optional per column overrides.
type IssuePolicy struct {
	Default   ActionOnIssue            `yaml:"default" json:"default" mapstructure:"default"`
	PerColumn map[string]ActionOnIssue `yaml:"per_column" json:"per_column" mapstructure:"per_column"`
}

// Resolve returns the action to apply to an issue found on column.
//
// A missing default means Fail, and a missing override means Ignore. An
// override of Fail always wins. An override of Skip wins unless the default
// is already Fail. Any other override leaves the default in place, so a
// column cannot be softened to Ignore below a stricter default.
func (p IssuePolicy) Resolve(column string) ActionOnIssue {
	global := p.Default
	if global == Unset {
		global = Fail
	}
	local, ok := p.PerColumn[column]
	if !ok {
		local = Ignore
	}
	strictest := global
	if local == Fail {
		strictest = Fail
	} else if local == Skip && strictest != Fail {
		strictest = Skip
	}
	return strictest
}

func (p IssuePolicy) verify(kind string, allowCreate bool) error {
	if p.Default != Unset && !p.Default.Valid() {
		return etlerr.NewConfigurationErrorf("%s: invalid default action %d", kind, int(p.Default))
	}
	if p.Default == Create && !allowCreate {
		return etlerr.NewConfigurationErrorf("%s: %s is not a valid default action", kind, Create)
	}
	cols := make([]string, 0, len(p.PerColumn))
	for col := range p.PerColumn {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if a := p.PerColumn[col]; !a.Valid() {
			return etlerr.NewConfigurationErrorf("%s: invalid action %s for column %q", kind, a, col)
		}
	}
	return nil
}

func (p IssuePolicy) clone() IssuePolicy {
	ret := IssuePolicy{Default: p.Default}
	if p.PerColumn != nil {
		ret.PerColumn = make(map[string]ActionOnIssue, len(p.PerColumn))
		for k, v := range p.PerColumn {
			ret.PerColumn[k] = v
		}
	}
	return ret
}

// Policy groups the issue policies of every issue kind.
type Policy struct {
	OnInvalid       IssuePolicy `yaml:"on_invalid" json:"on_invalid" mapstructure:"on_invalid"`
	OnNotIdentified IssuePolicy `yaml:"on_not_identified" json:"on_not_identified" mapstructure:"on_not_identified"`
	OnNotMapped     IssuePolicy `yaml:"on_not_mapped" json:"on_not_mapped" mapstructure:"on_not_mapped"`
}

// Strict fails on any issue.
func Strict() Policy {
	return uniform(Fail)
}

// Permissive skips records with issues.
func Permissive() Policy {
	return uniform(Skip)
}

func uniform(a ActionOnIssue) Policy {
	return Policy{
		OnInvalid:       IssuePolicy{Default: a, PerColumn: map[string]ActionOnIssue{}},
		OnNotIdentified: IssuePolicy{Default: a, PerColumn: map[string]ActionOnIssue{}},
		OnNotMapped:     IssuePolicy{Default: a, PerColumn: map[string]ActionOnIssue{}},
	}
}

// ResolveAction returns the action for an invalid value on column.
func (p Policy) ResolveAction(column string) ActionOnIssue {
	return p.OnInvalid.Resolve(column)
}

// ResolveNotIdentified returns the action for a record whose identifier in
// column could not be resolved.
func (p Policy) ResolveNotIdentified(column string) ActionOnIssue {
	return p.OnNotIdentified.Resolve(column)
}

// ResolveNotMapped returns the action for a value of column missing from its
// taxonomy.
func (p Policy) ResolveNotMapped(column string) ActionOnIssue {
	return p.OnNotMapped.Resolve(column)
}

// WithOverride returns a copy of p where column resolves invalid values with
// the given action override.
func (p Policy) WithOverride(column string, a ActionOnIssue) Policy {
	ret := Policy{
		OnInvalid:       p.OnInvalid.clone(),
		OnNotIdentified: p.OnNotIdentified.clone(),
		OnNotMapped:     p.OnNotMapped.clone(),
	}
	if ret.OnInvalid.PerColumn == nil {
		ret.OnInvalid.PerColumn = map[string]ActionOnIssue{}
	}
	ret.OnInvalid.PerColumn[column] = a
	return ret
}

// Verify checks every action in the policy is usable.
func (p Policy) Verify() error {
	if err := p.OnInvalid.verify("on_invalid", false); err != nil {
		return err
	}
	if err := p.OnNotIdentified.verify("on_not_identified", true); err != nil {
		return err
	}
	return p.OnNotMapped.verify("on_not_mapped", true)
}
