package detector

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{ThumbsUpLandmarks(), OpenPalmLandmarks()})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestDecodeResponse(t *testing.T) {
	fullHand := func(handedness string) string {
		points := make([]string, NumLandmarks)
		for i := range points {
			points[i] = `{"x":0.5,"y":0.5,"z":0}`
		}
		return `{"points":[` + strings.Join(points, ",") + `],"handedness":"` + handedness + `","score":0.9}`
	}

	tests := []struct {
		name      string
		line      string
		maxHands  int
		wantHands int
		wantErr   bool
	}{
		{
			name:      "no hands",
			line:      `{"hands":[]}`,
			wantHands: 0,
		},
		{
			name:      "one hand",
			line:      `{"hands":[` + fullHand("Right") + `]}`,
			wantHands: 1,
		},
		{
			name:      "caps at max hands",
			line:      `{"hands":[` + fullHand("Right") + `,` + fullHand("Left") + `]}`,
			maxHands:  1,
			wantHands: 1,
		},
		{
			name:      "drops partial landmark sets",
			line:      `{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0}],"handedness":"Right","score":0.9}]}`,
			wantHands: 0,
		},
		{
			name:    "service error",
			line:    `{"error":"model not loaded"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			line:    `{"hands":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hands, err := decodeResponse([]byte(tt.line), tt.maxHands)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(hands) != tt.wantHands {
				t.Errorf("expected %d hands, got %d", tt.wantHands, len(hands))
			}
		})
	}

	t.Run("keeps handedness and score", func(t *testing.T) {
		hands, err := decodeResponse([]byte(`{"hands":[`+fullHand("Left")+`]}`), 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hands[0].Handedness != "Left" {
			t.Errorf("expected handedness Left, got %s", hands[0].Handedness)
		}
		if hands[0].Score != 0.9 {
			t.Errorf("expected score 0.9, got %f", hands[0].Score)
		}
		if hands[0].Points[PinkyTip].X != 0.5 {
			t.Errorf("expected pinky tip X 0.5, got %f", hands[0].Points[PinkyTip].X)
		}
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScriptPath = "/nonexistent/hand_service.py"

	_, err := NewMediaPipeDetector(cfg)
	if !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestMediaPipeDetector_StaleIdleTimer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	// A stand-in service that swallows frames until stdin closes.
	script := filepath.Join(t.TempDir(), serviceScript)
	if err := os.WriteFile(script, []byte("exec cat > /dev/null\n"), 0644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	cfg := DefaultConfig()
	cfg.ScriptPath = script
	cfg.Python = "sh"
	cfg.IdleTimeout = time.Hour

	d, err := NewMediaPipeDetector(cfg)
	if err != nil {
		t.Fatalf("NewMediaPipeDetector() error = %v", err)
	}
	defer d.Close()

	d.mu.Lock()
	if err := d.ensureStarted(); err != nil {
		d.mu.Unlock()
		t.Fatalf("ensureStarted() error = %v", err)
	}
	d.resetIdleTimer()
	stale := d.idleSeq
	// A frame arrives after the first timer fired but before it got the lock.
	d.resetIdleTimer()
	current := d.idleSeq
	d.mu.Unlock()

	d.idleExpired(stale)
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()
	if !started {
		t.Fatal("a stale idle timer shut down a service that was just used")
	}

	d.idleExpired(current)
	d.mu.Lock()
	started = d.started
	d.mu.Unlock()
	if started {
		t.Error("the current idle timer should shut the service down")
	}
}

func TestPresetPoses(t *testing.T) {
	t.Run("thumbs up has tip above MCP", func(t *testing.T) {
		hand := ThumbsUpLandmarks()
		if hand.Points[ThumbTip].Y >= hand.Points[ThumbMCP].Y {
			t.Error("thumb tip should be above thumb MCP (lower Y value)")
		}
	})

	t.Run("thumbs down has tip below MCP", func(t *testing.T) {
		hand := ThumbsDownLandmarks()
		if hand.Points[ThumbTip].Y <= hand.Points[ThumbMCP].Y {
			t.Error("thumb tip should be below thumb MCP (higher Y value)")
		}
	})

	t.Run("open palm fingers reach above their knuckles", func(t *testing.T) {
		hand := OpenPalmLandmarks()
		for _, f := range Fingers {
			if hand.Points[f.Tip].Y >= hand.Points[f.MCP].Y {
				t.Errorf("%s tip should be above its MCP", f.Name)
			}
		}
	})

	t.Run("joints lie between MCP and tip", func(t *testing.T) {
		hand := VictoryLandmarks()
		mcp, pip, tip := hand.Points[IndexMCP], hand.Points[IndexPIP], hand.Points[IndexTip]
		if !(pip.Y < mcp.Y && pip.Y > tip.Y) {
			t.Errorf("index PIP Y %f should lie between MCP %f and tip %f", pip.Y, mcp.Y, tip.Y)
		}
	})

	t.Run("builder does not alias previous poses", func(t *testing.T) {
		a := NewPose().Build()
		b := NewPose().Index(true).Build()
		if a.Points[IndexTip] == b.Points[IndexTip] {
			t.Error("expected independent poses")
		}
	})
}
