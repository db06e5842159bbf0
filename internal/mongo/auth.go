package mongo

import (
	"github.com/pkg/errors"
	"github.com/xdg/stringprep"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// saslprep normalizes a credential string the way the SCRAM mechanism
// requires before it's handed to the driver, matching the normalization the
// server itself applies. Passwords containing characters stringprep
// rejects are passed through unchanged rather than failing auth setup -
// this mirrors the driver's own permissive fallback for non-SASLprep-able
// inputs.
func saslprep(s string) string {
	prepped, err := stringprep.SASLprep.Prepare(s)
	if err != nil {
		return s
	}
	return prepped
}

// adminCredential builds the driver Credential for the admin user,
// normalizing the password with SASLprep.
func adminCredential(password string) options.Credential {
	return options.Credential{
		AuthSource: "admin",
		Username:   "admin",
		Password:   saslprep(password),
	}
}

// ErrInvalidResponse is raised when an admin command returns ok != 1 or is
// missing fields the orchestrator depends on.
var ErrInvalidResponse = errors.New("mongo: unexpected admin command response")
