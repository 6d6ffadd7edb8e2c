package gts

// SI prefixes and base units used by the site data. All site quantities are
// stored in SI; the model applies its own nondimensionalization scales on top.
const (
	Milli = 1e-3
	Kilo  = 1e3
	Mega  = 1e6
	Giga  = 1e9

	Meter  = 1.0
	Pascal = 1.0
	Second = 1.0

	Minute = 60 * Second
	Hour   = 60 * Minute
	Day    = 24 * Hour
)
