package schema

import "time"

// KeyValueStore stores key-value pairs with an optional expiry.
// Used for dedup markers; an entry whose ExpiresAt has passed is treated as absent.
type KeyValueStore struct {
	Key       string     `gorm:"primaryKey;type:text"`
	Value     string     `gorm:"type:text;not null"`
	ExpiresAt *time.Time `gorm:"index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

func (KeyValueStore) TableName() string {
	return "key_value_store"
}
