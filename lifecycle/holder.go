package lifecycle

import "time"

// HolderType names who holds an asset outside of a loan.
type HolderType string

const (
	HolderNone       HolderType = "none"
	HolderEmployee   HolderType = "employee"
	HolderDepartment HolderType = "department"
	HolderOther      HolderType = "other"
)

func (h HolderType) Valid() bool {
	switch h {
	case HolderNone, HolderEmployee, HolderDepartment, HolderOther:
		return true
	}
	return false
}

// Held reports whether the holder type designates an actual holder.
func (h HolderType) Held() bool { return h != "" && h != HolderNone }

// HolderRefs is the set of three mutually exclusive holder references.
type HolderRefs struct {
	EmployeeID   *string
	DepartmentID *string
	CustodianID  *string
}

func set(p *string) bool { return p != nil && *p != "" }

// Count returns how many references are set.
func (r HolderRefs) Count() int {
	n := 0
	for _, p := range []*string{r.EmployeeID, r.DepartmentID, r.CustodianID} {
		if set(p) {
			n++
		}
	}
	return n
}

// Ref returns the reference that matches h, if set.
func (r HolderRefs) Ref(h HolderType) (string, bool) {
	var p *string
	switch h {
	case HolderEmployee:
		p = r.EmployeeID
	case HolderDepartment:
		p = r.DepartmentID
	case HolderOther:
		p = r.CustodianID
	}
	if !set(p) {
		return "", false
	}
	return *p, true
}

// ValidateHolder checks a requested assignment: a real holder type and exactly
// one reference, the one matching the type.
func ValidateHolder(h HolderType, refs HolderRefs) error {
	if !h.Held() {
		return Validationf("holder type must be employee, department or other")
	}
	if refs.Count() != 1 {
		return Validationf("exactly one of employee, department or external custodian must be set")
	}
	if _, ok := refs.Ref(h); !ok {
		switch h {
		case HolderEmployee:
			return Validationf("please set employee for holder type %q", h)
		case HolderDepartment:
			return Validationf("please set department for holder type %q", h)
		default:
			return Validationf("please set external custodian for holder type %q", h)
		}
	}
	return nil
}

// Placement is the subset of asset fields the placement invariant covers.
type Placement struct {
	LocationID   string
	MainStoreID  string
	Holder       HolderType
	Refs         HolderRefs
	AssignedDate *time.Time
}

// CheckPlacement enforces the Main Store / holder cross-check:
// Main Store implies no holder at all, and a holder implies a non-store
// location, an assigned date and exactly one matching reference.
func CheckPlacement(p Placement) error {
	atStore := p.MainStoreID != "" && p.LocationID == p.MainStoreID
	if atStore && (p.Holder.Held() || p.Refs.Count() > 0 || p.AssignedDate != nil) {
		return Validationf("items in Main Store cannot be assigned, clear holder fields first")
	}
	if !p.Holder.Held() {
		if p.Refs.Count() > 0 {
			return Validationf("holder references set without a holder type")
		}
		return nil
	}
	if atStore {
		return Validationf("assigned items cannot remain in Main Store")
	}
	if p.AssignedDate == nil {
		return Validationf("assigned date is required when the item has a holder")
	}
	return ValidateHolder(p.Holder, p.Refs)
}
