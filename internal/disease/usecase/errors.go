package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
)

var errEmptyDataset = errors.New("dataset name is required")

// InputFormatError means the upload could not be read as tabular data.
type InputFormatError struct {
	Err error
}

func (e *InputFormatError) Error() string {
	return fmt.Sprintf("invalid tabular input: %v", e.Err)
}

func (e *InputFormatError) Unwrap() error {
	return e.Err
}

// MissingColumnsError means the header cannot satisfy the column mapping.
// Missing lists unresolved roles, Unknown lists override names that are not
// in the header.
type MissingColumnsError struct {
	Missing []string
	Unknown []string
}

func (e *MissingColumnsError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "columns not found in header: "+strings.Join(e.Unknown, ", "))
	}
	return strings.Join(parts, "; ")
}

// PersistenceError means a batch write failed. Written records from earlier
// batches stay stored.
type PersistenceError struct {
	Written int
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("batch write failed after %d records: %v", e.Written, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func toAppError(err error) error {
	if err == nil {
		return nil
	}

	var formatErr *InputFormatError
	if errors.As(err, &formatErr) {
		return pkgerror.NewValidation("file is not valid tabular data", pkgerror.CodeInvalidFormat, err)
	}

	var columnsErr *MissingColumnsError
	if errors.As(err, &columnsErr) {
		return pkgerror.NewValidation(columnsErr.Error(), pkgerror.CodeInvalidInput, err)
	}

	var persistErr *PersistenceError
	if errors.As(err, &persistErr) {
		msg := fmt.Sprintf("failed to save records, %d written before the failure", persistErr.Written)
		return pkgerror.NewServerMessage(err, msg)
	}

	return normalizeErr(err)
}

func normalizeErr(err error) error {
	if perr, ok := pkgerror.From(err); ok {
		return perr
	}
	return pkgerror.NewServer(err)
}
