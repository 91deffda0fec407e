package types

// CoordSys is the AMReX coordinate system flag stored in a plotfile header
type CoordSys uint8

const (
	Cartesian CoordSys = iota
	RZ
	Spherical
)

var CoordSysNameMap = map[string]CoordSys{
	"cartesian": Cartesian,
	"xyz":       Cartesian,
	"rz":        RZ,
	"spherical": Spherical,
}

func (c CoordSys) String() string {
	switch c {
	case Cartesian:
		return "Cartesian"
	case RZ:
		return "RZ"
	case Spherical:
		return "Spherical"
	}
	return "Unknown"
}
