package policy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etlkit/etl/etlerr"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		global   ActionOnIssue
		local    ActionOnIssue
		expected ActionOnIssue
	}{
		{desc: "fail default wins over local skip", global: Fail, local: Skip, expected: Fail},
		{desc: "local ignore cannot soften skip", global: Skip, local: Ignore, expected: Skip},
		{desc: "local ignore cannot soften fail", global: Fail, local: Ignore, expected: Fail},
		{desc: "local fail escalates ignore", global: Ignore, local: Fail, expected: Fail},
		{desc: "local fail escalates skip", global: Skip, local: Fail, expected: Fail},
		{desc: "local skip softens recycle", global: SendToRecycle, local: Skip, expected: Skip},
		{desc: "local skip escalates ignore", global: Ignore, local: Skip, expected: Skip},
		{desc: "local recycle keeps global", global: Ignore, local: SendToRecycle, expected: Ignore},
		{desc: "local recycle keeps fail", global: Fail, local: SendToRecycle, expected: Fail},
		{desc: "unset default fails", global: Unset, local: Ignore, expected: Fail},
		{desc: "unset default with local skip", global: Unset, local: Skip, expected: Fail},
		{desc: "no override", global: SendToRecycle, expected: SendToRecycle},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			p := IssuePolicy{Default: tc.global, PerColumn: map[string]ActionOnIssue{}}
			if tc.local != Unset {
				p.PerColumn["x"] = tc.local
			}
			require.Equal(t, tc.expected, p.Resolve("x"))
			require.Equal(t, tc.global == Unset || tc.global == Fail, p.Resolve("other") == Fail)
		})
	}
}

func TestPresets(t *testing.T) {
	strict := Strict()
	require.Equal(t, Fail, strict.ResolveAction("x"))
	require.Equal(t, Fail, strict.ResolveNotIdentified("x"))
	require.Equal(t, Fail, strict.ResolveNotMapped("x"))
	require.Empty(t, strict.OnInvalid.PerColumn)

	permissive := Permissive()
	require.Equal(t, Skip, permissive.ResolveAction("x"))
	require.Equal(t, Skip, permissive.ResolveNotIdentified("x"))
	require.Equal(t, Skip, permissive.ResolveNotMapped("x"))

	overridden := permissive.WithOverride("x", Fail)
	require.Equal(t, Fail, overridden.ResolveAction("x"))
	require.Equal(t, Skip, overridden.ResolveAction("y"))
	require.Equal(t, Skip, permissive.ResolveAction("x"))

	require.Equal(t, Fail, Policy{}.ResolveAction("x"))
}

func TestVerify(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		p             Policy
		expectedError string
	}{
		{desc: "strict", p: Strict()},
		{desc: "zero", p: Policy{}},
		{
			desc:          "create default",
			p:             Policy{OnInvalid: IssuePolicy{Default: Create}},
			expectedError: "configuration error: on_invalid: create is not a valid default action",
		},
		{
			desc: "create allowed when not identified",
			p:    Policy{OnNotIdentified: IssuePolicy{Default: Create}},
		},
		{
			desc:          "out of range default",
			p:             Policy{OnNotMapped: IssuePolicy{Default: ActionOnIssue(42)}},
			expectedError: "configuration error: on_not_mapped: invalid default action 42",
		},
		{
			desc: "unset override",
			p: Policy{OnInvalid: IssuePolicy{
				Default:   Skip,
				PerColumn: map[string]ActionOnIssue{"b": Unset, "a": Fail},
			}},
			expectedError: `configuration error: on_invalid: invalid action unset for column "b"`,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.p.Verify()
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
				require.True(t, etlerr.IsConfigurationError(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestActionText(t *testing.T) {
	for _, a := range []ActionOnIssue{Fail, SendToRecycle, Skip, Ignore, Create} {
		text, err := a.MarshalText()
		require.NoError(t, err)
		parsed, err := ParseAction(string(text))
		require.NoError(t, err)
		require.Equal(t, a, parsed)
	}
	_, err := Unset.MarshalText()
	require.Error(t, err)
	_, err = ParseAction("drop")
	require.EqualError(t, err, `unknown action "drop", expected one of fail, send_to_recycle, skip, ignore, create`)

	require.True(t, Skip.Drops())
	require.True(t, SendToRecycle.Drops())
	require.False(t, Ignore.Drops())
	require.False(t, Fail.Drops())
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		doc           string
		expected      Policy
		expectedError bool
	}{
		{
			desc:     "empty document is strict",
			doc:      "",
			expected: Strict(),
		},
		{
			desc: "yaml",
			doc: `
on_invalid:
  default: skip
  per_column:
    amount: fail
    comment: ignore
on_not_mapped:
  default: send_to_recycle
`,
			expected: Policy{
				OnInvalid: IssuePolicy{
					Default:   Skip,
					PerColumn: map[string]ActionOnIssue{"amount": Fail, "comment": Ignore},
				},
				OnNotIdentified: IssuePolicy{Default: Fail, PerColumn: map[string]ActionOnIssue{}},
				OnNotMapped:     IssuePolicy{Default: SendToRecycle, PerColumn: map[string]ActionOnIssue{}},
			},
		},
		{
			desc: "json",
			doc:  `{"on_invalid": {"per_column": {"x": "skip"}}}`,
			expected: Policy{
				OnInvalid:       IssuePolicy{Default: Fail, PerColumn: map[string]ActionOnIssue{"x": Skip}},
				OnNotIdentified: IssuePolicy{Default: Fail, PerColumn: map[string]ActionOnIssue{}},
				OnNotMapped:     IssuePolicy{Default: Fail, PerColumn: map[string]ActionOnIssue{}},
			},
		},
		{desc: "unknown action", doc: "on_invalid:\n  default: drop\n", expectedError: true},
		{desc: "unknown key", doc: "on_missing:\n  default: skip\n", expectedError: true},
		{desc: "create default", doc: "on_invalid:\n  default: create\n", expectedError: true},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			p, err := Load(strings.NewReader(tc.doc))
			if tc.expectedError {
				require.Error(t, err)
				require.True(t, etlerr.IsConfigurationError(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, p)
		})
	}
}

func TestLoadFileRoundTripsJSON(t *testing.T) {
	p := Permissive().WithOverride("id", Fail)
	b, err := json.Marshal(p)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, b, 0600))
	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, p, loaded)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
