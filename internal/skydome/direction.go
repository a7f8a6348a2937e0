package skydome

import (
	"math"

	"github.com/Faultbox/insolation/pkg/geom"
)

// Direction converts an altitude above the horizon and an azimuth measured
// clockwise from north (+Y) to a unit vector pointing toward the sky.
// Both angles are in radians.
func Direction(altitude, azimuth float64) geom.Vec3 {
	return geom.Vec3{
		X: math.Cos(altitude) * math.Sin(azimuth),
		Y: math.Cos(altitude) * math.Cos(azimuth),
		Z: math.Sin(altitude),
	}
}

// DirectionDegrees is like Direction but accepts degrees.
func DirectionDegrees(altitude, azimuth float64) geom.Vec3 {
	return Direction(altitude*math.Pi/180, azimuth*math.Pi/180)
}
