package contract

import (
	"errors"
	"fmt"
)

// ErrPrecondition is the family of errors raised when a handle is used before
// it reached the required lifecycle stage.
var ErrPrecondition = errors.New("contract precondition failed")

var (
	// ErrUpload is returned when a store code receipt has no code id or the code hash
	// lookup yields nothing.
	ErrUpload = errors.New("contract upload failed")

	// ErrInstantiate is returned when an instantiate receipt has no contract address.
	ErrInstantiate = errors.New("contract instantiation failed")

	// ErrEncoding is returned when a message cannot be encoded or an answer decoded.
	ErrEncoding = errors.New("contract encoding failed")

	// ErrNotUploaded is returned when code info is required but Deploy has not run.
	ErrNotUploaded = fmt.Errorf("%w: code not uploaded", ErrPrecondition)

	// ErrNotInstantiated is returned when an address is required but there is none.
	ErrNotInstantiated = fmt.Errorf("%w: contract not instantiated", ErrPrecondition)

	// ErrNotReady is returned by Execute and Query when the handle lacks an address
	// or code info.
	ErrNotReady = fmt.Errorf("%w: contract address and code hash are required", ErrPrecondition)
)
