package geom

import (
	"image"
	"math/rand"
	"testing"
)

var allRotations = []Rotation{Rotate0, Rotate90, Rotate180, Rotate270}

func TestToRotated_Table(t *testing.T) {
	r := UnitRect{Left: 0.1, Top: 0.2, Right: 0.3, Bottom: 0.6}
	tests := []struct {
		rot  Rotation
		want UnitRect
	}{
		{Rotate0, r},
		{Rotate90, UnitRect{Left: 0.2, Top: 0.7, Right: 0.6, Bottom: 0.9}},
		{Rotate180, UnitRect{Left: 0.7, Top: 0.4, Right: 0.9, Bottom: 0.8}},
		{Rotate270, UnitRect{Left: 0.4, Top: 0.1, Right: 0.8, Bottom: 0.3}},
	}
	for _, tt := range tests {
		t.Run(tt.rot.String(), func(t *testing.T) {
			got := ToRotated(r, tt.rot)
			if !got.Equal(tt.want) {
				t.Errorf("ToRotated(%v, %v) = %v, want %v", r, tt.rot, got, tt.want)
			}
			if got.Left > got.Right || got.Top > got.Bottom {
				t.Errorf("ToRotated(%v, %v) = %v is not normalized", r, tt.rot, got)
			}
		})
	}
}

func TestRotation_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		r := randomRect(rng)
		for _, rot := range allRotations {
			if got := FromRotated(ToRotated(r, rot), rot); !got.Equal(r) {
				t.Fatalf("FromRotated(ToRotated(%v, %v)) = %v", r, rot, got)
			}
			if got := ToRotated(FromRotated(r, rot), rot); !got.Equal(r) {
				t.Fatalf("ToRotated(FromRotated(%v, %v)) = %v", r, rot, got)
			}
		}
	}
}

func TestRotation_PreservesArea(t *testing.T) {
	r := UnitRect{0.1, 0.1, 0.4, 0.9}
	for _, rot := range allRotations {
		got := ToRotated(r, rot)
		if d := got.Area() - r.Area(); d > 1e-9 || d < -1e-9 {
			t.Errorf("ToRotated(%v) area = %v, want %v", rot, got.Area(), r.Area())
		}
	}
}

func TestToRotated_Null(t *testing.T) {
	for _, rot := range allRotations {
		if got := ToRotated(UnitRect{}, rot); !got.IsNull() {
			t.Errorf("ToRotated(null, %v) = %v, want null", rot, got)
		}
		if got := FromRotated(UnitRect{}, rot); !got.IsNull() {
			t.Errorf("FromRotated(null, %v) = %v, want null", rot, got)
		}
	}
}

func TestRotationFromDegrees(t *testing.T) {
	tests := []struct {
		deg     int
		want    Rotation
		wantErr bool
	}{
		{0, Rotate0, false},
		{90, Rotate90, false},
		{180, Rotate180, false},
		{270, Rotate270, false},
		{360, Rotate0, false},
		{-90, Rotate270, false},
		{45, Rotate0, true},
	}
	for _, tt := range tests {
		got, err := RotationFromDegrees(tt.deg)
		if (err != nil) != tt.wantErr {
			t.Errorf("RotationFromDegrees(%d) error = %v, wantErr %v", tt.deg, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("RotationFromDegrees(%d) = %v, want %v", tt.deg, got, tt.want)
		}
	}
}

func TestRotation_SwapsAxes(t *testing.T) {
	for _, rot := range allRotations {
		want := rot == Rotate90 || rot == Rotate270
		if got := rot.SwapsAxes(); got != want {
			t.Errorf("%v.SwapsAxes() = %v, want %v", rot, got, want)
		}
	}
}

func TestRotatePixels_Table(t *testing.T) {
	// Pixel (2, 0) of a 3x2 page.
	p := image.Rect(2, 0, 3, 1)
	tests := []struct {
		to   Rotation
		want image.Rectangle
	}{
		{Rotate0, image.Rect(2, 0, 3, 1)},
		{Rotate90, image.Rect(0, 0, 1, 1)},
		{Rotate180, image.Rect(0, 1, 1, 2)},
		{Rotate270, image.Rect(1, 2, 2, 3)},
	}
	for _, tt := range tests {
		if got := RotatePixels(p, 3, 2, Rotate0, tt.to); got != tt.want {
			t.Errorf("RotatePixels(%v, 0°, %v) = %v, want %v", p, tt.to, got, tt.want)
		}
	}
}

func TestRotatePixels_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const w, h = 3001, 2999
	for range 200 {
		x0, y0 := rng.Intn(w), rng.Intn(h)
		p := image.Rect(x0, y0, x0+1+rng.Intn(w-x0), y0+1+rng.Intn(h-y0))
		for _, from := range allRotations {
			fw, fh := w, h
			if from.SwapsAxes() {
				fw, fh = h, w
			}
			for _, to := range allRotations {
				q := RotatePixels(p, fw, fh, from, to)
				tw, th := fw, fh
				if (to - from).SwapsAxes() {
					tw, th = fh, fw
				}
				if !q.In(image.Rect(0, 0, tw, th)) {
					t.Fatalf("RotatePixels(%v, %v, %v) = %v, outside %dx%d page", p, from, to, q, tw, th)
				}
				wantSize := p.Size()
				if (to - from).SwapsAxes() {
					wantSize = image.Pt(wantSize.Y, wantSize.X)
				}
				if q.Size() != wantSize {
					t.Fatalf("RotatePixels(%v, %v, %v) size = %v, want %v", p, from, to, q.Size(), wantSize)
				}
				if back := RotatePixels(q, tw, th, to, from); back != p {
					t.Fatalf("round trip %v -> %v -> %v = %v", from, to, from, back)
				}
			}
		}
	}
}

func TestRotatePixels_FollowsToRotated(t *testing.T) {
	// Rects on whole pixels map exactly like their unit rects.
	r := UnitRect{Left: 0.25, Top: 0.5, Right: 0.5, Bottom: 0.75}
	const w, h = 400, 200
	for _, rot := range allRotations {
		rw, rh := w, h
		if rot.SwapsAxes() {
			rw, rh = h, w
		}
		got := RotatePixels(r.Geometry(w, h), w, h, Rotate0, rot)
		want := ToRotated(r, rot).Geometry(rw, rh)
		if got != want {
			t.Errorf("%v: RotatePixels() = %v, want %v", rot, got, want)
		}
	}
}
