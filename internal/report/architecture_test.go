package report

import (
	"testing"

	"ecoresiduos/testutil"
)

func TestNoAdapterOrTransportImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.CoreImportForbidden, "report stays below the http and cli layers")
}
