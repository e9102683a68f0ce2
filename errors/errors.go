// Package errors provides error handling for complyforge.
//
// It re-exports github.com/cockroachdb/errors so the rest of the codebase
// gets stack traces, wrapping, and detail annotations from a single import:
//
//	if err := store.CreateDocument(doc); err != nil {
//	    return errors.Wrap(err, "failed to persist document")
//	}
//
//	// Sentinel checks work through wrapping:
//	if errors.Is(err, provider.ErrNoProviderAvailable) { ... }
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing annotations
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	GetAllDetails  = crdb.GetAllDetails
	FlattenDetails = crdb.FlattenDetails
)

// Multi-error combination
var (
	Join          = crdb.Join
	CombineErrors = crdb.CombineErrors
)
