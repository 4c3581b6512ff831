package records

import "github.com/goliatone/go-vault/communicator"

var _ Caller = (*communicator.Communicator)(nil)
