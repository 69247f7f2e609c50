package lifecycle

// Condition is the physical condition rating of an asset.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
	ConditionDamaged   Condition = "damaged"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor, ConditionDamaged:
		return true
	}
	return false
}

type MaintenanceType string

const (
	MaintenancePreventive  MaintenanceType = "preventive"
	MaintenanceCorrective  MaintenanceType = "corrective"
	MaintenanceInspection  MaintenanceType = "inspection"
	MaintenanceCalibration MaintenanceType = "calibration"
)

func (t MaintenanceType) Valid() bool {
	switch t {
	case MaintenancePreventive, MaintenanceCorrective, MaintenanceInspection, MaintenanceCalibration:
		return true
	}
	return false
}

type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

func CanStartMaintenanceRecord(s MaintenanceStatus) error {
	if s != MaintenanceScheduled {
		return Businessf("only scheduled maintenance can be started (status %s)", s)
	}
	return nil
}

func CanCompleteMaintenanceRecord(s MaintenanceStatus) error {
	if s != MaintenanceInProgress {
		return Businessf("only maintenance in progress can be completed (status %s)", s)
	}
	return nil
}

func CanCancelMaintenanceRecord(s MaintenanceStatus) error {
	if s != MaintenanceScheduled && s != MaintenanceInProgress {
		return Businessf("maintenance is already closed (status %s)", s)
	}
	return nil
}

type ReservationStatus string

const (
	ReservationDraft     ReservationStatus = "draft"
	ReservationPending   ReservationStatus = "pending"
	ReservationApproved  ReservationStatus = "approved"
	ReservationRejected  ReservationStatus = "rejected"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

func CanSubmitReservation(s ReservationStatus) error {
	if s != ReservationDraft {
		return Businessf("only draft reservations can be submitted (status %s)", s)
	}
	return nil
}

func CanApproveReservation(s ReservationStatus) error {
	if s != ReservationPending {
		return Businessf("only pending reservations can be approved (status %s)", s)
	}
	return nil
}

func CanRejectReservation(s ReservationStatus) error {
	if s != ReservationDraft && s != ReservationPending {
		return Businessf("only draft or pending reservations can be rejected (status %s)", s)
	}
	return nil
}

func CanConfirmReservation(s ReservationStatus) error {
	if s != ReservationApproved {
		return Businessf("only approved reservations can be confirmed (status %s)", s)
	}
	return nil
}

func CanCancelReservation(s ReservationStatus) error {
	switch s {
	case ReservationDraft, ReservationPending, ReservationApproved:
		return nil
	}
	return Businessf("reservation is already closed (status %s)", s)
}
