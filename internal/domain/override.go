package domain

import "time"

// Allowed driver override statuses. The list mirrors the operator
// workflow's fixed choices; anything else is rejected on write.
var DriverStatuses = []string{
	"Retornou",
	"Não retornou",
	"Esperando retorno",
	"Número de contato errado",
}

// IsValidDriverStatus reports whether s is one of the allowed statuses.
func IsValidDriverStatus(s string) bool {
	for _, v := range DriverStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// DriverStatusOverride is an operator-set status keyed by (driver, base).
// An empty base is a distinct key, not a wildcard: it matches only the
// row saved without a base.
type DriverStatusOverride struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Driver    string    `gorm:"type:text;not null;uniqueIndex:idx_overrides_driver_base" json:"driver"`
	Base      string    `gorm:"type:text;uniqueIndex:idx_overrides_driver_base" json:"base"`
	Status    string    `gorm:"type:text;not null" json:"status"`
	Note      string    `gorm:"type:text" json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for DriverStatusOverride.
func (DriverStatusOverride) TableName() string {
	return "driver_status_overrides"
}
