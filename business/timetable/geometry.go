package timetable

import (
	"math"

	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

const (
	earthRadiusKm = 6371.0
	//onArcToleranceKm is the slack allowed when checking a projected point lies between the segment ends
	onArcToleranceKm = 0.1
)

// SegmentLocation is the position of an observed point along a station to station segment
type SegmentLocation struct {
	//Location is the fraction of the segment travelled, 0 at the start and 1 at the end
	Location float64 `json:"location"`
	//Distance from the segment in kilometers
	Distance float64 `json:"distance"`
}

// GreatCircleDistance returns the haversine distance between two coordinates in kilometers
func GreatCircleDistance(p1, p2 rail.Coordinates) float64 {
	phi1 := toRadians(p1.Latitude)
	phi2 := toRadians(p2.Latitude)
	deltaPhi := toRadians(p2.Latitude - p1.Latitude)
	deltaLambda := toRadians(p2.Longitude - p1.Longitude)

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// NearestPointOnSegment projects point onto the great circle arc between from and to.
// When the closest point of the great circle falls outside the arc the nearer end is used,
// giving a Location of exactly 0 or 1.
// Coincident from and to always produce Location 0.
func NearestPointOnSegment(from, to, point rail.Coordinates) SegmentLocation {
	a := toVector(from)
	b := toVector(to)
	p := toVector(point)

	normal := a.cross(b)
	// closest point on the great circle is the point projected to the plane of the circle
	onPlane := normal.cross(p.cross(normal))
	if normal.length() > 0 && onPlane.length() > 0 {
		closest := onPlane.unit().toCoordinates()
		segmentLength := GreatCircleDistance(from, to)
		fromClosest := GreatCircleDistance(from, closest)
		closestTo := GreatCircleDistance(closest, to)
		if math.Abs(segmentLength-fromClosest-closestTo) < onArcToleranceKm {
			return SegmentLocation{
				Location: clamp(fromClosest/segmentLength, 0, 1),
				Distance: GreatCircleDistance(closest, point),
			}
		}
	}

	fromDistance := GreatCircleDistance(from, point)
	toDistance := GreatCircleDistance(to, point)
	if fromDistance <= toDistance {
		return SegmentLocation{Location: 0, Distance: fromDistance}
	}
	return SegmentLocation{Location: 1, Distance: toDistance}
}

// vector is a point in earth centered cartesian space
type vector struct {
	x, y, z float64
}

func toVector(c rail.Coordinates) vector {
	lat := toRadians(c.Latitude)
	lon := toRadians(c.Longitude)
	return vector{
		x: math.Cos(lat) * math.Cos(lon),
		y: math.Cos(lat) * math.Sin(lon),
		z: math.Sin(lat),
	}
}

func (v vector) cross(o vector) vector {
	return vector{
		x: v.y*o.z - v.z*o.y,
		y: v.z*o.x - v.x*o.z,
		z: v.x*o.y - v.y*o.x,
	}
}

func (v vector) length() float64 {
	return math.Sqrt(v.x*v.x + v.y*v.y + v.z*v.z)
}

func (v vector) unit() vector {
	l := v.length()
	return vector{x: v.x / l, y: v.y / l, z: v.z / l}
}

func (v vector) toCoordinates() rail.Coordinates {
	return rail.Coordinates{
		Latitude:  toDegrees(math.Asin(clamp(v.z, -1, 1))),
		Longitude: toDegrees(math.Atan2(v.y, v.x)),
	}
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func toDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// clamp constrains a value between min and max
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
