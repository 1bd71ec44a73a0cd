package relay

import "github.com/cockroachdb/errors"

// Every failure returned by Scan is marked with one of these classes
var (
	ErrInvalidRole  = errors.New("invalid chain role")
	ErrConfig       = errors.New("configuration error")
	ErrConnectivity = errors.New("connectivity error")
	ErrQuery        = errors.New("query error")
	ErrSubmission   = errors.New("submission error")
	// relay history store
	ErrLedger = errors.New("ledger error")
)

func mark(err error, class error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, class)
}
