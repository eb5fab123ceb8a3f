package config

import (
	"strings"

	"github.com/google/uuid"
	"github.com/macrat/scout/internal/sandbox"
	"github.com/macrat/scout/internal/scouterr"
	api "github.com/macrat/scout/lib-scout"
)

// seedNamespace is the UUID namespace for IDs of targets defined in configuration files.
var seedNamespace = uuid.MustParse("5c0a7e1d-6b2f-4d8e-9a31-2f7c4e0b9d56")

// SeedID returns a stable ID for a target name.
func SeedID(name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(strings.TrimSpace(name))).String()
}

// NewID returns a random ID for a new target.
func NewID() string {
	return uuid.New().String()
}

// BuildTarget validates spec including its script, and makes a new target.
// If the spec has no ID, newID is used to make one.
func BuildTarget(spec api.TargetSpec, newID func() string) (api.Target, error) {
	t, err := spec.Build()
	if err != nil {
		return api.Target{}, err
	}

	if err := sandbox.Check(t.TestCase); err != nil {
		return api.Target{}, scouterr.New(api.ErrConfiguration, err, "test case")
	}

	if t.ID == "" {
		t.ID = newID()
	}
	return t, nil
}
