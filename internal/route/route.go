// Package route places the team's cumulative distance on the DC to Anchorage to Mohe
// great-circle route.
package route

import (
	"math"
	"sync"

	"github.com/abrezinsky/moherun/internal/models"
)

// PointsPerLeg is the number of segments each leg is split into.
const PointsPerLeg = 150

var (
	DC        = models.LatLng{Lat: 38.9072, Lng: -77.0369}
	Anchorage = models.LatLng{Lat: 61.2181, Lng: -149.9003}
	Mohe      = models.LatLng{Lat: 53.4846, Lng: 122.3705}
)

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }

// greatCircle returns n+1 points from start to end inclusive.
func greatCircle(start, end models.LatLng, n int) []models.LatLng {
	lat1, lon1 := toRad(start.Lat), toRad(start.Lng)
	lat2, lon2 := toRad(end.Lat), toRad(end.Lng)

	d := 2 * math.Asin(math.Sqrt(math.Pow(math.Sin((lat1-lat2)/2), 2)+
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin((lon1-lon2)/2), 2)))

	points := make([]models.LatLng, 0, n+1)
	for i := 0; i <= n; i++ {
		f := float64(i) / float64(n)
		a := math.Sin((1-f)*d) / math.Sin(d)
		b := math.Sin(f*d) / math.Sin(d)

		x := a*math.Cos(lat1)*math.Cos(lon1) + b*math.Cos(lat2)*math.Cos(lon2)
		y := a*math.Cos(lat1)*math.Sin(lon1) + b*math.Cos(lat2)*math.Sin(lon2)
		z := a*math.Sin(lat1) + b*math.Sin(lat2)

		points = append(points, models.LatLng{
			Lat: toDeg(math.Atan2(z, math.Sqrt(x*x+y*y))),
			Lng: toDeg(math.Atan2(y, x)),
		})
	}
	return points
}

// unwrap shifts longitudes by whole turns so consecutive points never jump more than 180 degrees.
func unwrap(points []models.LatLng) []models.LatLng {
	for i := 1; i < len(points); i++ {
		for points[i].Lng-points[i-1].Lng > 180 {
			points[i].Lng -= 360
		}
		for points[i].Lng-points[i-1].Lng < -180 {
			points[i].Lng += 360
		}
	}
	return points
}

var path = sync.OnceValue(func() []models.LatLng {
	leg1 := greatCircle(DC, Anchorage, PointsPerLeg)
	leg2 := greatCircle(Anchorage, Mohe, PointsPerLeg)
	return unwrap(append(leg1, leg2[1:]...))
})

// Path returns a copy of the full route, longitudes unwrapped.
func Path() []models.LatLng {
	return append([]models.LatLng(nil), path()...)
}

// Position returns the route point for a completion percentage in [0, 100].
func Position(percent float64) models.LatLng {
	p := path()
	idx := int(math.Floor(clamp(percent, 0, 100) / 100 * float64(len(p))))
	if idx > len(p)-1 {
		idx = len(p) - 1
	}
	return p[idx]
}

// Label names the region around a route point. Longitudes are the unwrapped values of Path.
func Label(pos models.LatLng) string {
	lat, lng := pos.Lat, pos.Lng
	switch {
	case lng > -80 && lat < 45:
		return "US East Coast"
	case lng > -95 && lat < 50:
		return "Great Lakes Region"
	case lng > -115 && lat >= 48:
		return "Canadian Prairies (Saskatchewan/Alberta)"
	case lng > -135 && lat > 50:
		return "Canadian Rockies (BC/Yukon)"
	case lng > -141 && lat > 55:
		return "Yukon Territory"
	case lng <= -141 && lng > -160:
		return "Alaska (Approaching Anchorage)"
	case lng <= -160 && lng > -170:
		return "Western Alaska / Bering Sea Coast"
	case lng <= -170 && lng > -190:
		return "Crossing the Bering Sea"
	case lng <= -190 && lng > -210:
		return "Russian Far East (Chukotka/Kamchatka)"
	case lng <= -210 && lng > -225:
		return "Sea of Okhotsk / Magadan"
	case lng <= -225 && lat > 53.5:
		return "Eastern Siberia (Amur Region)"
	case lat <= 53.6 && lng < -230:
		return "Approaching Mohe"
	}
	return "En Route"
}

// Progress summarizes totalKm against the goal. The supply station is reached once the
// total passes the supply threshold.
func Progress(totalKm, goalKm, supplyKm float64) models.Progress {
	percent := 0.0
	if goalKm > 0 {
		percent = clamp(totalKm/goalKm*100, 0, 100)
	}
	pos := Position(percent)
	return models.Progress{
		GoalKm:        goalKm,
		TotalKm:       totalKm,
		RemainingKm:   math.Max(0, goalKm-totalKm),
		Percent:       percent,
		Position:      pos,
		Location:      Label(pos),
		SupplyReached: supplyKm > 0 && totalKm >= supplyKm,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
