// Package geo projects device coordinates into a normalized [0,100]x[0,100]
// plotting frame for the tactical map view.
package geo

import (
	"github.com/oversight-labs/fleetwatch/internal/types"
)

// padding expands the viewport on all sides so markers at the extremes are
// not drawn on the frame edge.
const padding = 0.02

// Bounds is the geographic viewport covering a set of devices.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// ComputeBounds returns the padded viewport covering every device location.
// An empty fleet yields the degenerate {0,1,0,1} bound so projection never
// divides by zero.
func ComputeBounds(devices []types.Device) Bounds {
	if len(devices) == 0 {
		return Bounds{MinLat: 0, MaxLat: 1, MinLng: 0, MaxLng: 1}
	}
	b := Bounds{
		MinLat: devices[0].Location.Lat,
		MaxLat: devices[0].Location.Lat,
		MinLng: devices[0].Location.Lng,
		MaxLng: devices[0].Location.Lng,
	}
	for _, d := range devices[1:] {
		if d.Location.Lat < b.MinLat {
			b.MinLat = d.Location.Lat
		}
		if d.Location.Lat > b.MaxLat {
			b.MaxLat = d.Location.Lat
		}
		if d.Location.Lng < b.MinLng {
			b.MinLng = d.Location.Lng
		}
		if d.Location.Lng > b.MaxLng {
			b.MaxLng = d.Location.Lng
		}
	}
	b.MinLat -= padding
	b.MaxLat += padding
	b.MinLng -= padding
	b.MaxLng += padding
	return b
}

// Project maps a coordinate into the [0,100]x[0,100] frame relative to the
// given bounds. The y axis is inverted: screen-space y grows downward while
// latitude grows upward. Points inside the bounds land inside the frame;
// points outside extrapolate beyond it.
func Project(lat, lng float64, b Bounds) (x, y float64) {
	x = (lng - b.MinLng) / (b.MaxLng - b.MinLng) * 100
	y = (1 - (lat-b.MinLat)/(b.MaxLat-b.MinLat)) * 100
	return x, y
}
