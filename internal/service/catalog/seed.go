package catalog

// SeedBreed is one row of the built-in breed table.
type SeedBreed struct {
	Name           string
	IncubationDays int
	LockdownDays   int
}

// SeedSpecies groups seed breeds under their species.
type SeedSpecies struct {
	Name   string
	Breeds []SeedBreed
}

// DefaultSeed is the catalog loaded on first start.
var DefaultSeed = []SeedSpecies{
	{Name: "Chicken", Breeds: uniform(21, 3,
		"Rhode Island Red", "Leghorn", "Plymouth Rock", "Wyandotte", "Orpington", "Sussex", "Brahma",
		"Cochin", "Silkie", "Marans", "Ameraucana", "Australorp", "Barnevelder", "Faverolle", "Polish")},
	{Name: "Duck", Breeds: []SeedBreed{
		{"Pekin", 28, 3}, {"Muscovy", 35, 3}, {"Khaki Campbell", 28, 3}, {"Indian Runner", 28, 3},
		{"Rouen", 28, 3}, {"Cayuga", 28, 3}, {"Swedish", 28, 3}, {"Buff Orpington", 28, 3},
		{"Welsh Harlequin", 28, 3}, {"Call Duck", 28, 3}, {"Crested Duck", 28, 3}, {"Magpie", 28, 3},
		{"Saxony", 28, 3}, {"Ancona", 28, 3},
	}},
	{Name: "Quail", Breeds: []SeedBreed{
		{"Coturnix (Japanese)", 17, 2}, {"Bobwhite", 23, 2}, {"Button Quail", 16, 2},
	}},
	{Name: "Goose", Breeds: []SeedBreed{
		{"Toulouse", 30, 3}, {"Embden", 30, 3}, {"African", 30, 3}, {"Chinese", 28, 3},
	}},
	{Name: "Turkey", Breeds: uniform(28, 3, "Broad Breasted White", "Bronze", "Bourbon Red", "Narragansett")},
}

func uniform(incubation, lockdown int, names ...string) []SeedBreed {
	out := make([]SeedBreed, 0, len(names))
	for _, n := range names {
		out = append(out, SeedBreed{Name: n, IncubationDays: incubation, LockdownDays: lockdown})
	}
	return out
}
