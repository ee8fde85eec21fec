package catalog

import (
	"testing"

	"ecoresiduos/testutil"
)

func TestNoAdapterOrTransportImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.CoreImportForbidden, "catalog stays below the http and cli layers")
}
