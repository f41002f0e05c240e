package geo

import (
	"testing"

	"github.com/oversight-labs/fleetwatch/internal/types"
)

func TestComputeBounds_Empty(t *testing.T) {
	b := ComputeBounds(nil)
	want := Bounds{MinLat: 0, MaxLat: 1, MinLng: 0, MaxLng: 1}
	if b != want {
		t.Errorf("ComputeBounds(nil) = %+v, want %+v", b, want)
	}
}

func TestComputeBounds_Padding(t *testing.T) {
	devices := []types.Device{
		{Location: types.Location{Lat: 40.7128, Lng: -74.0060}},
		{Location: types.Location{Lat: 40.7580, Lng: -73.9855}},
	}
	b := ComputeBounds(devices)
	if b.MinLat >= 40.7128 {
		t.Errorf("MinLat = %v, want < 40.7128", b.MinLat)
	}
	if b.MaxLat <= 40.7580 {
		t.Errorf("MaxLat = %v, want > 40.7580", b.MaxLat)
	}
	if b.MinLng >= -74.0060 {
		t.Errorf("MinLng = %v, want < -74.0060", b.MinLng)
	}
	if b.MaxLng <= -73.9855 {
		t.Errorf("MaxLng = %v, want > -73.9855", b.MaxLng)
	}
}

func TestProject_DevicesLandInFrame(t *testing.T) {
	devices := []types.Device{
		{Location: types.Location{Lat: 40.7128, Lng: -74.0060}},
		{Location: types.Location{Lat: 40.7580, Lng: -73.9855}},
		{Location: types.Location{Lat: 40.6892, Lng: -74.0445}},
	}
	b := ComputeBounds(devices)
	for _, d := range devices {
		x, y := Project(d.Location.Lat, d.Location.Lng, b)
		if x < 0 || x > 100 || y < 0 || y > 100 {
			t.Errorf("Project(%v,%v) = (%v,%v), want within [0,100]x[0,100]",
				d.Location.Lat, d.Location.Lng, x, y)
		}
	}
}

func TestProject_YAxisInverted(t *testing.T) {
	b := Bounds{MinLat: 0, MaxLat: 10, MinLng: 0, MaxLng: 10}
	_, yLow := Project(0, 5, b)
	_, yHigh := Project(10, 5, b)
	if yHigh >= yLow {
		t.Errorf("higher latitude should project to a smaller y: y(10)=%v, y(0)=%v", yHigh, yLow)
	}
	if yHigh != 0 || yLow != 100 {
		t.Errorf("edge projections = %v,%v, want 0,100", yHigh, yLow)
	}
}

func TestProject_Corners(t *testing.T) {
	b := Bounds{MinLat: 0, MaxLat: 1, MinLng: 0, MaxLng: 1}
	x, y := Project(1, 0, b)
	if x != 0 || y != 0 {
		t.Errorf("top-left = (%v,%v), want (0,0)", x, y)
	}
	x, y = Project(0, 1, b)
	if x != 100 || y != 100 {
		t.Errorf("bottom-right = (%v,%v), want (100,100)", x, y)
	}
}
