package models

import (
	"time"
)

type DeviceRecord struct {
	ID         uint          `gorm:"primaryKey"`
	MAC        string        `gorm:"column:mac;uniqueIndex"`
	Name       string        `gorm:"column:name"`
	Vendor     string        `gorm:"column:vendor"`
	RSSI       int           `gorm:"column:rssi"`
	MinRSSI    int           `gorm:"column:min_rssi"`
	MaxRSSI    int           `gorm:"column:max_rssi"`
	AvgRSSI    float64       `gorm:"column:avg_rssi"`
	StdDevRSSI float64       `gorm:"column:std_dev_rssi"`
	FirstSeen  time.Time     `gorm:"column:first_seen"`
	LastSeen   time.Time     `gorm:"column:last_seen;index"`
	Duration   time.Duration `gorm:"column:duration"`
	Count      int           `gorm:"column:count"`
	Samples    Samples       `gorm:"column:samples"`
}

func (DeviceRecord) TableName() string {
	return "device_records"
}
