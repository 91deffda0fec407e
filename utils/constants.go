package utils

// Physical constants in SI units
const (
	SpeedOfLight     = 299792458.
	Epsilon0         = 8.8541878128e-12
	ElectronMass     = 9.10938356e-31
	ElementaryCharge = 1.60217662e-19
)
