// Package ensure implements the "find, maybe replace, else create" flow shared
// by datasources, assets, suites and checkpoints.
package ensure

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrNotFound must be returned (or wrapped) by Resource.Lookup when the resource does not exist
var ErrNotFound = errors.New("not found")

// Outcome reports what Ensure did
type Outcome int

const (
	// Found means the existing resource was kept
	Found Outcome = iota
	// Created means no resource existed and a new one was created
	Created
	// Replaced means the existing resource was deleted and recreated
	Replaced
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Created:
		return "created"
	case Replaced:
		return "replaced"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Resource bundles the operations Ensure needs for one named resource
type Resource struct {
	Kind   string
	Lookup func() error
	Delete func() error
	Create func() error
}

// Ensure makes sure the named resource exists. An existing resource is only
// replaced when the confirmer agrees. Delete then Create is not atomic: a
// failed Create leaves the resource absent.
func Ensure(name string, res Resource, confirm Confirmer, logger *logrus.Logger) (Outcome, error) {
	kind := res.Kind
	if kind == "" {
		kind = "resource"
	}

	err := res.Lookup()
	switch {
	case err == nil:
		replace, cerr := confirm.Confirm(fmt.Sprintf("%s '%s' already exists. Replace it?", kind, name))
		if cerr != nil {
			return Found, fmt.Errorf("confirm replacement of %s '%s': %w", kind, name, cerr)
		}
		if !replace {
			logger.Debugf("Keeping existing %s '%s'", kind, name)
			return Found, nil
		}
		if err := res.Delete(); err != nil {
			return Found, fmt.Errorf("delete %s '%s': %w", kind, name, err)
		}
		if err := res.Create(); err != nil {
			return Found, fmt.Errorf("recreate %s '%s': %w", kind, name, err)
		}
		logger.Infof("Replaced %s '%s'", kind, name)
		return Replaced, nil

	case errors.Is(err, ErrNotFound):
		if err := res.Create(); err != nil {
			return Created, fmt.Errorf("create %s '%s': %w", kind, name, err)
		}
		logger.Infof("Created %s '%s'", kind, name)
		return Created, nil

	default:
		return Found, fmt.Errorf("look up %s '%s': %w", kind, name, err)
	}
}
