package check

import (
	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/etlerr"
	"github.com/etlkit/etl/policy"
	"github.com/etlkit/etl/stage"
	"github.com/etlkit/etl/validate"
)

// Outcome is the pass/fail signal of one check over one column, together with
// the action resolved for it.
type Outcome struct {
	// Column is the checked input column.
	Column string
	// Kind names the check.
	Kind string
	// Flag names the boolean column recording the outcome. The report error
	// column is named Flag + "_error".
	Flag string
	// Message describes a failure, before the action suffix is added.
	Message string
	Action  policy.ActionOnIssue
	// Valid is aligned with the rows of the input table.
	Valid *dataframe.Column
}

// ErrorColumn returns the name of the report column holding error messages.
func (o Outcome) ErrorColumn() string {
	return validate.ErrorColumn(o.Flag)
}

// ErrorMessage returns the report message for a failure, marked with what was
// done about it.
func (o Outcome) ErrorMessage() string {
	switch o.Action {
	case policy.Ignore:
		return o.Message + " (error ignored)"
	case policy.Skip:
		return o.Message + " (line skipped)"
	}
	return o.Message
}

func (o Outcome) mask() []bool {
	ret := make([]bool, o.Valid.Len())
	for i := range ret {
		b, ok := o.Valid.Bool(i)
		ret[i] = ok && b
	}
	return ret
}

// FailureError returns the error reporting the first row of input failing o.
// values is the checked column of input.
func FailureError(o Outcome, input *dataframe.Table, values *dataframe.Column) error {
	for i, ok := range o.mask() {
		if !ok {
			return etlerr.NewDataValidityError(
				o.Column,
				o.Kind,
				int64(input.Index()[i]),
				reportableVal(values.Value(i)),
			)
		}
	}
	return errors.AssertionFailedf("no failing row for %s", o.Flag)
}

func reportableVal(v dataframe.Value) string {
	if v == nil {
		return "<null>"
	}
	return dataframe.FormatValue(v)
}

// CheckGenerated returns an InvalidFileError if input already has one of the
// column names a stage is about to add.
func CheckGenerated(input *dataframe.Table, names ...string) error {
	for _, name := range names {
		if input.HasColumn(name) {
			return etlerr.NewInvalidFileErrorf("", "column %s clashes with a generated column", name)
		}
	}
	return nil
}

// keepsAll returns whether failing rows stay in the result.
func keepsAll(a policy.ActionOnIssue) bool {
	return a == policy.Ignore || a == policy.Create
}

// Merge folds outcomes, in order, into a result and a report.
//
// Each outcome joins its flag column to the result, restricted to the valid
// rows unless failures are kept. Failing rows join the report along with the
// error message. When any outcome drops rows, the result keeps only rows with
// every flag set. The report keeps only rows with at least one failure.
// Recyclable holds the input rows failing an outcome whose action is
// SendToRecycle.
func Merge(input *dataframe.Table, outcomes []Outcome) (stage.Result, error) {
	generated := make([]string, 0, 2*len(outcomes))
	for _, o := range outcomes {
		generated = append(generated, o.Flag, o.ErrorColumn())
	}
	if err := CheckGenerated(input, generated...); err != nil {
		return stage.Result{}, err
	}
	result, report := input, input
	checked := make([]string, 0, len(outcomes))
	dropping := false
	var recycle []bool
	for _, o := range outcomes {
		if o.Valid.Len() != input.Len() {
			return stage.Result{}, errors.AssertionFailedf(
				"outcome for %s has %d values, expected %d",
				o.Column,
				o.Valid.Len(),
				input.Len(),
			)
		}
		valid := o.mask()
		failing := make([]bool, len(valid))
		msgs := make([]dataframe.Value, len(valid))
		msg := o.ErrorMessage()
		for i, v := range valid {
			failing[i] = !v
			if !v {
				msgs[i] = msg
			}
		}

		flag := dataframe.NewBoolColumn(o.Flag, valid)
		output, err := dataframe.New(input.Index(), flag)
		if err != nil {
			return stage.Result{}, err
		}
		if !keepsAll(o.Action) {
			if output, err = output.Filter(valid); err != nil {
				return stage.Result{}, err
			}
		}
		reportSide, err := dataframe.New(
			input.Index(),
			flag,
			dataframe.NewColumn(o.ErrorColumn(), msgs),
		)
		if err != nil {
			return stage.Result{}, err
		}
		if reportSide, err = reportSide.Filter(failing); err != nil {
			return stage.Result{}, err
		}

		if result, err = result.LeftJoin(output); err != nil {
			return stage.Result{}, errors.Wrapf(err, "error merging %s into result", o.Flag)
		}
		if report, err = report.LeftJoin(reportSide); err != nil {
			return stage.Result{}, errors.Wrapf(err, "error merging %s into report", o.Flag)
		}
		checked = append(checked, o.Flag)

		if o.Action.Drops() {
			dropping = true
		}
		if o.Action == policy.SendToRecycle {
			if recycle == nil {
				recycle = make([]bool, len(failing))
			}
			for i, f := range failing {
				recycle[i] = recycle[i] || f
			}
		}
	}

	var err error
	if dropping {
		if result, err = result.DropNullsAny(checked); err != nil {
			return stage.Result{}, err
		}
	}
	if report, err = report.DropNullsAll(checked); err != nil {
		return stage.Result{}, err
	}
	ret := stage.Result{Result: result, Report: report}
	if recycle != nil {
		if ret.Recyclable, err = input.Filter(recycle); err != nil {
			return stage.Result{}, err
		}
	}
	return ret, nil
}
