package scene

import (
	"math"
	"testing"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
)

func TestSphereIntersect(t *testing.T) {
	sphere := Sphere{Center: core.NewVec3(0, 0, -5), Radius: 1}

	tests := []struct {
		name   string
		ray    core.Ray
		hit    bool
		t0, t1 float64
	}{
		{"through center", core.NewRay(core.Vec3{}, core.NewVec3(0, 0, -1)), true, 4, 6},
		{"miss", core.NewRay(core.Vec3{}, core.NewVec3(0, 1, 0)), false, 0, 0},
		{"sphere behind", core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1)), false, 0, 0},
		{"from inside", core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(1, 0, 0)), true, -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t0, t1, hit := sphere.Intersect(tt.ray)
			if hit != tt.hit {
				t.Fatalf("Expected hit=%v, got %v", tt.hit, hit)
			}
			if hit && (math.Abs(t0-tt.t0) > 1e-9 || math.Abs(t1-tt.t1) > 1e-9) {
				t.Errorf("Expected roots (%f, %f), got (%f, %f)", tt.t0, tt.t1, t0, t1)
			}
		})
	}
}

func TestSphereContains(t *testing.T) {
	sphere := Sphere{Radius: 2}
	if !sphere.Contains(core.NewVec3(1, 1, 0)) {
		t.Error("Expected point inside sphere")
	}
	if sphere.Contains(core.NewVec3(2, 1, 0)) {
		t.Error("Expected point outside sphere")
	}
}

func TestBackgroundGradient(t *testing.T) {
	s := &Scene{TopColor: core.NewVec3(1, 1, 1), BottomColor: core.NewVec3(0, 0, 0)}

	if got := s.Background(core.NewVec3(0, 5, 0)); got != core.NewVec3(1, 1, 1) {
		t.Errorf("Expected top color looking up, got %v", got)
	}
	if got := s.Background(core.NewVec3(0, -1, 0)); got != core.NewVec3(0, 0, 0) {
		t.Errorf("Expected bottom color looking down, got %v", got)
	}
	if got := s.Background(core.NewVec3(1, 0, 0)); got != core.NewVec3(0.5, 0.5, 0.5) {
		t.Errorf("Expected mid gradient at the horizon, got %v", got)
	}
}

func TestNewFogSphereScene(t *testing.T) {
	s, err := NewFogSphereScene(DefaultFogConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !s.Media.IsMediumTransition() {
		t.Error("Fog boundary should be a medium transition")
	}
	if s.Media.Outside != nil {
		t.Error("Expected vacuum outside the fog")
	}
	if math.Abs(s.SunDirection.Length()-1) > 1e-9 {
		t.Errorf("Sun direction should be normalized, got %v", s.SunDirection)
	}
	if s.CameraConfig.Height() != 240 {
		t.Errorf("Expected height 240 for width 320 at 4:3, got %d", s.CameraConfig.Height())
	}
}

func TestNewFogSphereScene_NamedMedium(t *testing.T) {
	config := DefaultFogConfig()
	config.MediumName = "Skimmilk"
	config.Density = 0.5

	s, err := NewFogSphereScene(config)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Media.Inside == nil {
		t.Fatal("Expected a medium inside the sphere")
	}
}

func TestNewFogSphereScene_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*FogConfig)
	}{
		{"g at boundary", func(c *FogConfig) { c.G = 1 }},
		{"g below range", func(c *FogConfig) { c.G = -1.5 }},
		{"zero density", func(c *FogConfig) { c.Density = 0 }},
		{"unknown medium", func(c *FogConfig) { c.MediumName = "Lava" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultFogConfig()
			tt.modify(&config)
			if s, err := NewFogSphereScene(config); err == nil || s != nil {
				t.Errorf("Expected error and nil scene, got %v, %v", s, err)
			}
		})
	}
}
