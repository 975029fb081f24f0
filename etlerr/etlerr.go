// Package etlerr holds the error kinds shared by the etl packages.
//
// Configuration mistakes are detected when components are built. Data errors
// (DataValidityError, InvalidFileError) originate from the input being
// processed and are meant to be handled per input file by the caller.
package etlerr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ConfigurationError is returned when a policy, a registry or a job
// configuration is malformed.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// NewConfigurationErrorf returns a ConfigurationError with a stack attached.
func NewConfigurationErrorf(format string, args ...interface{}) error {
	return errors.WithStackDepth(&ConfigurationError{Reason: fmt.Sprintf(format, args...)}, 1)
}

// UndeclaredFieldError is returned when a validator is requested for a column
// which was never registered.
type UndeclaredFieldError struct {
	Column string
}

func (e *UndeclaredFieldError) Error() string {
	return fmt.Sprintf("undeclared field %q", e.Column)
}

func NewUndeclaredFieldError(column string) error {
	return errors.WithStackDepth(&UndeclaredFieldError{Column: column}, 1)
}

// DataValidityError is returned when a column whose policy is to fail finds an
// invalid value.
type DataValidityError struct {
	Column string
	Kind   string
	RowID  int64
	Value  string
}

func (e *DataValidityError) Error() string {
	return fmt.Sprintf(
		"invalid value in column %s (%s) at row %d: %s",
		e.Column,
		e.Kind,
		e.RowID,
		e.Value,
	)
}

func NewDataValidityError(column, kind string, rowID int64, value string) error {
	return errors.WithStackDepth(&DataValidityError{
		Column: column,
		Kind:   kind,
		RowID:  rowID,
		Value:  value,
	}, 1)
}

// InvalidFileError is returned when an input file cannot be processed at all.
type InvalidFileError struct {
	File   string
	Reason string
}

func (e *InvalidFileError) Error() string {
	if e.File == "" {
		return "invalid input file: " + e.Reason
	}
	return fmt.Sprintf("invalid input file %s: %s", e.File, e.Reason)
}

func NewInvalidFileErrorf(file string, format string, args ...interface{}) error {
	return errors.WithStackDepth(&InvalidFileError{File: file, Reason: fmt.Sprintf(format, args...)}, 1)
}

// FlagsError is returned when command line flags are inconsistent.
type FlagsError struct {
	Reason string
}

func (e *FlagsError) Error() string {
	return "invalid flags: " + e.Reason
}

func NewFlagsErrorf(format string, args ...interface{}) error {
	return errors.WithStackDepth(&FlagsError{Reason: fmt.Sprintf(format, args...)}, 1)
}

// IsDataError returns whether err originates from the input data rather than
// from a misconfiguration.
func IsDataError(err error) bool {
	var dataErr *DataValidityError
	var fileErr *InvalidFileError
	return errors.As(err, &dataErr) || errors.As(err, &fileErr)
}

// IsConfigurationError returns whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
