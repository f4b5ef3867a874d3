package action

import (
	"testing"

	"anchorcore/testutil"
)

func TestActionImportBoundary(t *testing.T) {
	forbidden := testutil.AnyOf(
		testutil.PrefixForbidden(
			"anchorcore/internal/adapters",
			"anchorcore/internal/core",
			"anchorcore/internal/config",
			"anchorcore/internal/infra/persistence",
			"anchorcore/internal/infra/blob",
		),
		testutil.ThirdPartyForbidden("anchorcore", "github.com/shopspring/decimal", "go.uber.org/zap"),
	)
	testutil.AssertNoDirectImports(t, ".", forbidden, "handlers depend on ports, not drivers or transport")
}
