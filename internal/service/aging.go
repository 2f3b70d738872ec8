package service

import (
	"fmt"
	"time"
)

// StalledBucket labels how long a shipment has gone without movement,
// in whole days since its last scan. A shipment with no scan timestamp
// has no bucket.
func StalledBucket(ts *time.Time, now time.Time) *string {
	if ts == nil {
		return nil
	}
	days := int(now.Sub(*ts).Hours() / 24)
	if days < 0 {
		days = 0
	}
	bucket := fmt.Sprintf("Exceed %d days with no track", days)
	return &bucket
}
