package cashier

import "github.com/xraph/cashier/types"

// Re-export common types so callers rarely need the types package.

// Money is re-exported from types package.
type Money = types.Money

// Rate is re-exported from types package.
type Rate = types.Rate

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Money constructors
var (
	SAR  = types.SAR
	AED  = types.AED
	USD  = types.USD
	EUR  = types.EUR
	Zero = types.Zero
	Sum  = types.Sum
)

// Re-export Rate helpers
var (
	Percent      = types.Percent
	ParsePercent = types.ParsePercent
)
