package models

import "time"

// KVEntry is one row of the key-value table backing storage.GormKV.
// The column is not called "key" because several SQL dialects reserve it.
type KVEntry struct {
	Key       string    `gorm:"column:kv_key;primaryKey;type:varchar(255)" json:"key"`
	Value     string    `gorm:"column:kv_value;type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "campus_kv"
}
