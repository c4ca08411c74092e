package models

// Species groups breeds that share an incubation profile.
type Species struct {
	ID   int64  `bson:"_id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Breed carries the default incubation parameters copied into a batch at creation time.
type Breed struct {
	ID                      int64   `bson:"_id" json:"id"`
	SpeciesID               int64   `bson:"species_id" json:"species_id"`
	Name                    string  `bson:"name" json:"name"`
	DefaultIncubationDays   int     `bson:"default_incubation_days" json:"default_incubation_days"`
	DefaultLockdownDays     int     `bson:"default_lockdown_days" json:"default_lockdown_days"`
	DefaultDiscardGraceDays int     `bson:"default_discard_grace_days" json:"default_discard_grace_days"`
	MinTemp                 float64 `bson:"min_temp" json:"min_temp"`
	MaxTemp                 float64 `bson:"max_temp" json:"max_temp"`
	MinHumidity             float64 `bson:"min_humidity" json:"min_humidity"`
	MaxHumidity             float64 `bson:"max_humidity" json:"max_humidity"`
}

// SpeciesWithBreeds is the catalog listing shape.
type SpeciesWithBreeds struct {
	Species Species `json:"species"`
	Breeds  []Breed `json:"breeds"`
}

// Defaults applied to breeds that do not specify their own grace period or environment range.
const (
	DefaultDiscardGraceDays = 2
	DefaultMinTemp          = 37.5
	DefaultMaxTemp          = 38.0
	DefaultMinHumidity      = 45.0
	DefaultMaxHumidity      = 65.0
)

// ApplyDefaults fills the grace period and environment range when they were left empty.
func (b *Breed) ApplyDefaults() {
	if b.DefaultDiscardGraceDays == 0 {
		b.DefaultDiscardGraceDays = DefaultDiscardGraceDays
	}
	if b.MinTemp == 0 && b.MaxTemp == 0 {
		b.MinTemp, b.MaxTemp = DefaultMinTemp, DefaultMaxTemp
	}
	if b.MinHumidity == 0 && b.MaxHumidity == 0 {
		b.MinHumidity, b.MaxHumidity = DefaultMinHumidity, DefaultMaxHumidity
	}
}
