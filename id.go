package cashier

import "github.com/xraph/cashier/id"

// ID is the primary identifier type for all Cashier entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
