// Package errs classifies the abstract error kinds a site-year run can
// fail with, replacing scattered numeric/string error codes with a
// small sentinel set that call sites branch on via errors.Is.
package errs

import "github.com/pkg/errors"

// Kind is one of the abstract failure categories a run reports.
type Kind int

const (
	Unknown Kind = iota
	ConfigInvalid
	InputMalformed
	NotEnoughValues
	Allocation
	IoFailure
	Numeric
)

func (k Kind) String() string {
	switch k {
	case ConfigInvalid:
		return "ConfigInvalid"
	case InputMalformed:
		return "InputMalformed"
	case NotEnoughValues:
		return "NotEnoughValues"
	case Allocation:
		return "Allocation"
	case IoFailure:
		return "IoFailure"
	case Numeric:
		return "Numeric"
	default:
		return "Unknown"
	}
}

// Sentinel errors, one per Kind, for use with errors.Is / errors.Wrapf.
var (
	ErrConfigInvalid   = errors.New("ConfigInvalid")
	ErrInputMalformed  = errors.New("InputMalformed")
	ErrNotEnoughValues = errors.New("NotEnoughValues")
	ErrAllocation      = errors.New("Allocation")
	ErrIoFailure       = errors.New("IoFailure")
	ErrNumeric         = errors.New("Numeric")
)

var sentinels = map[Kind]error{
	ConfigInvalid:   ErrConfigInvalid,
	InputMalformed:  ErrInputMalformed,
	NotEnoughValues: ErrNotEnoughValues,
	Allocation:      ErrAllocation,
	IoFailure:       ErrIoFailure,
	Numeric:         ErrNumeric,
}

// Wrap attaches kind's sentinel to err via pkg/errors, preserving err's
// message as context (e.g. errs.Wrap(errs.NotEnoughValues, "site-year
// US-Ha1 2008: %d rows", n)).
func Wrap(kind Kind, format string, args ...interface{}) error {
	return errors.Wrapf(sentinels[kind], format, args...)
}

// Of classifies err against the known sentinels, returning Unknown if
// err does not match (or wrap) any of them.
func Of(err error) Kind {
	for k, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return k
		}
	}
	return Unknown
}

// IsSoft reports whether kind is a soft failure: the caller logs it,
// counts it in the run summary, and continues to the next site-year
// rather than aborting.
func IsSoft(kind Kind) bool {
	return kind == NotEnoughValues
}
