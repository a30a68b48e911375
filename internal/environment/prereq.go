package environment

import (
	"errors"

	"github.com/c360/c360cfg/internal/log"
)

// ErrMissingPrerequisites is returned when mandatory variables are unset.
var ErrMissingPrerequisites = errors.New("missing prerequisite environment variables")

// Prerequisites must be set before any output is produced.
var Prerequisites = []string{
	"CB_HOST",
	"CB_USER",
	"CB_PASSWORD",
	"CB_BUCKET",
	"C360_ENVIRONMENT",
	"PROCESS_DATE",
	"ENCRYPTION_KEY",
}

// CheckPrerequisites copies every present variable of names into t and
// returns how many are missing. Unset and empty variables both count as
// missing; each one is logged, none stops the scan.
func CheckPrerequisites(lookup LookupFunc, names []string, t *Table) int {
	missing := 0
	for _, name := range names {
		value, ok := lookup(name)
		if !ok || value == "" {
			missing++
			log.Error(log.CatPrereq, "Missing environment variable", "name", name)
			continue
		}
		t.set(name, value)
	}
	return missing
}
