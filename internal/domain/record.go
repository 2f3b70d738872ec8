package domain

import "time"

// ReconciledRecord is the final persisted unit of the scan pipeline: one
// row per parent order number, holding the most recent scan merged with
// the reference dataset. The field names and HasDriver are consumed by
// the reporting endpoints and must not change shape.
type ReconciledRecord struct {
	ID                uint       `gorm:"primaryKey" json:"-"`
	OrderNumber       string     `gorm:"type:text;not null;uniqueIndex:idx_records_order" json:"order_number"`
	DeliveryBase      string     `gorm:"type:text;index" json:"delivery_base"`
	DispatchTime      string     `gorm:"type:text" json:"dispatch_time"`
	Driver            string     `gorm:"type:text;index" json:"driver"`
	SignatureMark     string     `gorm:"type:text" json:"signature_mark"`
	DestinationZip    string     `gorm:"type:text" json:"destination_zip"`
	ProblemReasons    string     `gorm:"type:text" json:"problem_reasons"`
	Recipient         string     `gorm:"type:text" json:"recipient"`
	AddressExtra      string     `gorm:"type:text" json:"address_extra"`
	RecipientDistrict string     `gorm:"type:text" json:"recipient_district"`
	DestinationCity   string     `gorm:"type:text" json:"destination_city"`
	Segment           string     `gorm:"type:text" json:"segment"`
	ScanTimestamp     *time.Time `json:"scan_timestamp,omitempty"`
	StalledBucket     *string    `gorm:"type:text;index" json:"stalled_bucket,omitempty"`
	ScanType          string     `gorm:"type:text" json:"scan_type"`
	Digitizer         string     `gorm:"type:text" json:"digitizer"`
	ScanBase          string     `gorm:"type:text" json:"scan_base"`
	HasDriver         bool       `gorm:"index" json:"has_driver"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ReconciledRecord.
func (ReconciledRecord) TableName() string {
	return "reconciled_records"
}
