package records

import (
	"testing"

	"ecoresiduos/testutil"
)

func TestNoAdapterOrTransportImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.CoreImportForbidden, "records stays below the http and cli layers")
}
