package gesture

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/valentine/internal/detector"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b detector.Point3D
		want float64
	}{
		{"same point", detector.Point3D{X: 0.3, Y: 0.3}, detector.Point3D{X: 0.3, Y: 0.3}, 0},
		{"3-4-5 triangle", detector.Point3D{X: 0, Y: 0}, detector.Point3D{X: 0.3, Y: 0.4}, 0.5},
		{"depth ignored", detector.Point3D{X: 0, Y: 0, Z: 9}, detector.Point3D{X: 0, Y: 1, Z: -9}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestIsExtended(t *testing.T) {
	wrist := detector.Point3D{X: 0.5, Y: 0.8}
	mcp := detector.Point3D{X: 0.5, Y: 0.6}

	if !IsExtended(detector.Point3D{X: 0.5, Y: 0.3}, mcp, wrist) {
		t.Error("tip beyond the knuckle should be extended")
	}
	if IsExtended(detector.Point3D{X: 0.5, Y: 0.7}, mcp, wrist) {
		t.Error("tip between knuckle and wrist should be flexed")
	}
	if IsExtended(mcp, mcp, wrist) {
		t.Error("tip level with the knuckle should not count as extended")
	}
}

func TestClassify_PresetPoses(t *testing.T) {
	tests := []struct {
		name string
		hand detector.HandLandmarks
		want Gesture
	}{
		{"fist", detector.FistLandmarks(), Fist},
		{"thumbs up", detector.ThumbsUpLandmarks(), ThumbsUp},
		{"thumbs down", detector.ThumbsDownLandmarks(), ThumbsDown},
		{"victory", detector.VictoryLandmarks(), Victory},
		{"ok", detector.OKLandmarks(), OK},
		{"open palm", detector.OpenPalmLandmarks(), Open},
		{"pointing", detector.PointingLandmarks(), None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := tt.hand
			if got := Classify(&hand); got != tt.want {
				t.Errorf("Classify() = %s, want %s (fingers %v)", got, tt.want, Fingers(&hand))
			}
		})
	}
}

func TestClassify_ThumbDeadZone(t *testing.T) {
	mcpY := detector.FistLandmarks().Points[detector.ThumbMCP].Y

	tests := []struct {
		name   string
		offset float64
		want   Gesture
	}{
		{"well above", -0.15, ThumbsUp},
		{"just past the margin above", -(ThumbMargin + 0.01), ThumbsUp},
		{"inside the margin above", -(ThumbMargin - 0.01), Fist},
		{"level", 0, Fist},
		{"inside the margin below", ThumbMargin - 0.01, Fist},
		{"just past the margin below", ThumbMargin + 0.01, ThumbsDown},
		{"well below", 0.15, ThumbsDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := detector.NewPose().Thumb(detector.Point3D{X: 0.62, Y: mcpY + tt.offset}).Build()
			if got := Classify(&hand); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassify_VictoryIgnoresThumb(t *testing.T) {
	thumbs := []detector.Point3D{
		{X: 0.62, Y: 0.40},
		{X: 0.62, Y: 0.90},
		{X: 0.57, Y: 0.69},
		{X: 0.58, Y: 0.36}, // touching the index tip
	}

	for _, thumb := range thumbs {
		hand := detector.NewPose().Index(true).Middle(true).Thumb(thumb).Build()
		if got := Classify(&hand); got != Victory {
			t.Errorf("thumb at %+v: Classify() = %s, want %s", thumb, got, Victory)
		}
	}
}

func TestClassify_OrderMasksLaterRules(t *testing.T) {
	t.Run("pinch with all fingers raised is OK, not open", func(t *testing.T) {
		hand := detector.NewPose().
			Index(true).Middle(true).Ring(true).Pinky(true).
			Thumb(detector.Point3D{X: 0.59, Y: 0.36}).
			Build()
		if got := Classify(&hand); got != OK {
			t.Errorf("Classify() = %s, want %s", got, OK)
		}
	})

	t.Run("pinch without ring raised is not OK", func(t *testing.T) {
		hand := detector.NewPose().
			IndexTip(detector.Point3D{X: 0.60, Y: 0.55}).
			Thumb(detector.Point3D{X: 0.62, Y: 0.56}).
			Middle(true).Pinky(true).
			Build()
		if got := Classify(&hand); got != None {
			t.Errorf("Classify() = %s, want %s", got, None)
		}
	})
}

func TestClassify_Pure(t *testing.T) {
	poses := []detector.HandLandmarks{
		detector.FistLandmarks(),
		detector.OKLandmarks(),
		detector.OpenPalmLandmarks(),
		detector.PointingLandmarks(),
	}

	for _, hand := range poses {
		before := hand
		first := Classify(&hand)
		for i := 0; i < 10; i++ {
			if got := Classify(&hand); got != first {
				t.Fatalf("call %d returned %s, first call returned %s", i, got, first)
			}
		}
		if hand != before {
			t.Error("Classify must not modify its input")
		}
	}
}

func TestClassify_NilHand(t *testing.T) {
	if got := Classify(nil); got != None {
		t.Errorf("Classify(nil) = %s, want %s", got, None)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Gesture
		wantErr bool
	}{
		{"FIST", Fist, false},
		{"thumbs_up", ThumbsUp, false},
		{" thumbs-down ", ThumbsDown, false},
		{"Victory", Victory, false},
		{"ok", OK, false},
		{"open", Open, false},
		{"none", None, false},
		{"wave", None, true},
		{"", None, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownGesture) {
					t.Errorf("expected ErrUnknownGesture, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
