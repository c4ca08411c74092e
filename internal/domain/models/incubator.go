package models

import "time"

// Default environment snapshot for a freshly registered incubator.
const (
	DefaultIncubatorTemp     = 37.5
	DefaultIncubatorHumidity = 55.0
)

// Incubator is a physical machine holding trays. CurrentTemp and CurrentHumidity are the
// latest snapshot only; the history lives in readings.
type Incubator struct {
	ID              int64   `bson:"_id" json:"id"`
	Name            string  `bson:"name" json:"name"`
	Location        string  `bson:"location" json:"location"`
	Model           string  `bson:"model" json:"model"`
	TrayCount       int     `bson:"tray_count" json:"tray_count"`
	CurrentTemp     float64 `bson:"current_temp" json:"current_temp"`
	CurrentHumidity float64 `bson:"current_humidity" json:"current_humidity"`
}

// Tray belongs to one incubator and bounds the eggs of its active batches.
type Tray struct {
	ID          int64 `bson:"_id" json:"id"`
	IncubatorID int64 `bson:"incubator_id" json:"incubator_id"`
	Index       int   `bson:"index" json:"index"`
	Capacity    int   `bson:"capacity" json:"capacity"`
}

// Reading is an append-only environment sample.
type Reading struct {
	ID          int64     `bson:"_id" json:"id"`
	IncubatorID int64     `bson:"incubator_id" json:"incubator_id"`
	BatchID     *int64    `bson:"batch_id,omitempty" json:"batch_id,omitempty"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
	Temp        float64   `bson:"temp" json:"temp"`
	Humidity    float64   `bson:"humidity" json:"humidity"`
}
