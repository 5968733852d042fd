package models

import "time"

// Known admission setting keys.
const (
	SettingAdmissionFee = "admission_fee"
)

// AdmissionSetting is a persisted key/value setting consulted by the workflow.
type AdmissionSetting struct {
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Description *string   `db:"description" json:"description,omitempty"`
	UpdatedBy   *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
