package audit

import (
	"time"

	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
)

// Action tags an audit entry with the lifecycle operation that produced it.
type Action string

const (
	ActionResidenceVacated Action = "RESIDENCE_VACATED"
	ActionUserDisabled     Action = "USER_DISABLED"
	ActionUserEnabled      Action = "USER_ENABLED"
	ActionRoleUpdated      Action = "ROLE_UPDATED"
	ActionResidenceCreated Action = "RESIDENCE_CREATED"
	ActionResidenceUpdated Action = "RESIDENCE_UPDATED"
	ActionResidenceDeleted Action = "RESIDENCE_DELETED"

	// ActionPartialFailure marks a saga that committed some but not all of its
	// steps. Logged at higher severity and used by operators to find entities
	// needing a repair pass.
	ActionPartialFailure Action = "PARTIAL_FAILURE"

	// ActionResidencyRepaired marks a successful repair of a dangling occupancy.
	ActionResidencyRepaired Action = "RESIDENCY_REPAIRED"
)

// Data is the structured payload of an entry: before/after values and the
// identifiers a reader needs to reconstruct what happened. Keys are drawn
// from the recognized set below, never free-form.
type Data map[string]string

// Recognized payload keys.
const (
	KeyResidenceName = "residence_name"
	KeyResidentID    = "resident_id"
	KeyVacateDate    = "vacate_date"
	KeyStartDate     = "start_date"
	KeyOldRole       = "old_role"
	KeyNewRole       = "new_role"
	KeyOldName       = "old_name"
	KeyNewName       = "new_name"
	KeyOldType       = "old_type"
	KeyNewType       = "new_type"
	KeyOldDesc       = "old_description"
	KeyNewDesc       = "new_description"
	KeyFailedStep    = "failed_step"
	KeyCompleted     = "completed_steps"
	KeyRepairedSteps = "repaired_steps"
)

// requiredKeys lists the payload keys every entry for an action must carry.
// Extra recognized keys are allowed; unknown keys are not.
var requiredKeys = map[Action][]string{
	ActionResidenceVacated:  {KeyResidenceName, KeyResidentID, KeyVacateDate},
	ActionUserEnabled:       {KeyResidentID},
	ActionUserDisabled:      {KeyResidentID},
	ActionRoleUpdated:       {KeyResidentID, KeyNewRole},
	ActionResidenceCreated:  {KeyNewName},
	ActionResidenceUpdated:  {KeyOldName, KeyNewName},
	ActionResidenceDeleted:  {KeyOldName},
	ActionPartialFailure:    {KeyFailedStep},
	ActionResidencyRepaired: {KeyResidentID},
}

var recognizedKeys = map[string]bool{
	KeyResidenceName: true,
	KeyResidentID:    true,
	KeyVacateDate:    true,
	KeyStartDate:     true,
	KeyOldRole:       true,
	KeyNewRole:       true,
	KeyOldName:       true,
	KeyNewName:       true,
	KeyOldType:       true,
	KeyNewType:       true,
	KeyOldDesc:       true,
	KeyNewDesc:       true,
	KeyFailedStep:    true,
	KeyCompleted:     true,
	KeyRepairedSteps: true,
}

// Validate checks the payload against the recognized key set for the action.
func (d Data) Validate(action Action) error {
	for _, key := range requiredKeys[action] {
		if _, ok := d[key]; !ok {
			return dErrors.Newf(dErrors.CodeInvalidInput, "audit payload for %s missing key %q", action, key)
		}
	}
	for key := range d {
		if !recognizedKeys[key] {
			return dErrors.Newf(dErrors.CodeInvalidInput, "audit payload key %q is not recognized", key)
		}
	}
	return nil
}

// Entry is one immutable audit log row. Entries are appended by the Recorder
// and never mutated or deleted afterwards.
type Entry struct {
	AdminID       id.UserID
	Action        Action
	Entity        string
	EntityID      string
	Data          Data
	ResidentialID id.ResidentialID
	CreatedAt     time.Time
}
