package sigs

import "github.com/iov-one/mesh/errors"

// ErrInvalidSequence is returned when a signature nonce was already used or
// skips ahead.
var ErrInvalidSequence = errors.Register(120, "invalid sequence number")
