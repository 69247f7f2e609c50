package lifecycle

// AssetStatus is the current status of an equipment item.
type AssetStatus string

const (
	StatusAvailable   AssetStatus = "available"
	StatusAssigned    AssetStatus = "assigned"
	StatusBorrowed    AssetStatus = "borrowed"
	StatusReserved    AssetStatus = "reserved"
	StatusMaintenance AssetStatus = "maintenance"
	StatusRetired     AssetStatus = "retired"
	StatusLost        AssetStatus = "lost"
)

func (s AssetStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusAssigned, StatusBorrowed, StatusReserved,
		StatusMaintenance, StatusRetired, StatusLost:
		return true
	}
	return false
}

// Blocking statuses suppress holder-driven status derivation.
func (s AssetStatus) Blocking() bool {
	switch s {
	case StatusBorrowed, StatusMaintenance, StatusRetired, StatusLost, StatusReserved:
		return true
	}
	return false
}

// IdleStatus is the status an unblocked asset has for the given holder type.
func IdleStatus(h HolderType) AssetStatus {
	if h.Held() {
		return StatusAssigned
	}
	return StatusAvailable
}

// DeriveStatus applies holder-driven derivation: blocking statuses are kept,
// otherwise the status follows the holder type.
func DeriveStatus(current AssetStatus, h HolderType) AssetStatus {
	if current.Blocking() {
		return current
	}
	return IdleStatus(h)
}

// CanBorrow checks available|reserved -> borrowed.
func CanBorrow(s AssetStatus, h HolderType) error {
	if h.Held() {
		return Businessf("this item is assigned, unassign it before borrowing")
	}
	if s != StatusAvailable && s != StatusReserved {
		return Businessf("equipment must be available or reserved to borrow (status %s)", s)
	}
	return nil
}

// CanAssign guards the ledger's assign operation.
func CanAssign(s AssetStatus) error {
	switch s {
	case StatusBorrowed:
		return Businessf("return this item before assigning it")
	case StatusMaintenance, StatusRetired, StatusLost:
		return Businessf("cannot assign items in %s state", s)
	}
	return nil
}

// CanUnassign guards the ledger's unassign operation.
func CanUnassign(s AssetStatus) error {
	if s == StatusBorrowed {
		return Businessf("return this item before unassigning it")
	}
	return nil
}

func CanRetire(s AssetStatus) error {
	switch s {
	case StatusBorrowed:
		return Businessf("cannot retire borrowed equipment, return it first")
	case StatusRetired:
		return Businessf("equipment is already retired")
	}
	return nil
}

func CanMarkLost(s AssetStatus) error {
	switch s {
	case StatusBorrowed:
		return Businessf("equipment is out on loan, return or close the loan first")
	case StatusLost:
		return Businessf("equipment is already marked as lost")
	case StatusRetired:
		return Businessf("retired equipment cannot be marked as lost")
	}
	return nil
}

// CanMarkFound allows lost -> idle, the only reverse transition out of a
// terminal status.
func CanMarkFound(s AssetStatus) error {
	if s != StatusLost {
		return Businessf("only lost equipment can be marked as found")
	}
	return nil
}

// CanStartMaintenance rejects assets that are out with a borrower or gone.
func CanStartMaintenance(s AssetStatus) error {
	switch s {
	case StatusBorrowed, StatusRetired, StatusLost:
		return Businessf("cannot start maintenance on %s equipment", s)
	}
	return nil
}

// AfterMaintenance is the asset status once a maintenance record stops being
// in progress. It only reverts assets still in maintenance; any other status
// was set by a later transition and is kept.
func AfterMaintenance(current AssetStatus, h HolderType) (AssetStatus, bool) {
	if current != StatusMaintenance {
		return current, false
	}
	return IdleStatus(h), true
}

// CanReserve guards reservation approval.
func CanReserve(s AssetStatus, h HolderType) error {
	if s == StatusReserved {
		return nil
	}
	if s != StatusAvailable || h.Held() {
		return Businessf("only available equipment can be reserved (status %s)", s)
	}
	return nil
}
