package domain

import (
	"testing"

	"bookclub/testutil"
)

// TestDomainDoesNotImportInternal keeps the domain layer free of
// implementation packages.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain must not depend on internal packages")
}

func TestDomainDoesNotImportDrivers(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.DriverImportForbidden, "domain must stay storage agnostic")
}
