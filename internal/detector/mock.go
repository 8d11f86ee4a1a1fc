package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Preset poses. All share a right hand with the wrist at (0.5, 0.8) and the
// knuckles about 0.18 above it; fingers are either curled back toward the palm
// or straightened upward.
var (
	wristPos = Point3D{X: 0.50, Y: 0.80}
	thumbMCP = Point3D{X: 0.60, Y: 0.68}

	indexMCP  = Point3D{X: 0.56, Y: 0.62}
	middleMCP = Point3D{X: 0.51, Y: 0.62}
	ringMCP   = Point3D{X: 0.46, Y: 0.62}
	pinkyMCP  = Point3D{X: 0.41, Y: 0.65}

	indexCurled  = Point3D{X: 0.55, Y: 0.70}
	middleCurled = Point3D{X: 0.51, Y: 0.70}
	ringCurled   = Point3D{X: 0.46, Y: 0.70}
	pinkyCurled  = Point3D{X: 0.42, Y: 0.72}

	indexStraight  = Point3D{X: 0.58, Y: 0.35}
	middleStraight = Point3D{X: 0.51, Y: 0.30}
	ringStraight   = Point3D{X: 0.45, Y: 0.33}
	pinkyStraight  = Point3D{X: 0.38, Y: 0.42}
)

// PoseBuilder assembles synthetic hand poses for tests and demos.
type PoseBuilder struct {
	hand HandLandmarks
}

// NewPose starts a right hand with every finger curled and the thumb resting
// level with its MCP joint, i.e. a plain fist.
func NewPose() *PoseBuilder {
	b := &PoseBuilder{hand: HandLandmarks{Handedness: "Right", Score: 0.95}}
	b.hand.Points[Wrist] = wristPos
	b.hand.Points[ThumbCMC] = lerp(wristPos, thumbMCP, 0.5)
	b.hand.Points[ThumbMCP] = thumbMCP
	b.Thumb(Point3D{X: 0.57, Y: 0.69})
	b.finger(IndexMCP, indexMCP, indexCurled)
	b.finger(MiddleMCP, middleMCP, middleCurled)
	b.finger(RingMCP, ringMCP, ringCurled)
	b.finger(PinkyMCP, pinkyMCP, pinkyCurled)
	return b
}

// Thumb places the thumb tip, interpolating the IP joint.
func (b *PoseBuilder) Thumb(tip Point3D) *PoseBuilder {
	b.hand.Points[ThumbIP] = lerp(thumbMCP, tip, 0.5)
	b.hand.Points[ThumbTip] = tip
	return b
}

// Index straightens (true) or curls (false) the index finger.
func (b *PoseBuilder) Index(straight bool) *PoseBuilder {
	return b.pick(IndexMCP, indexMCP, indexCurled, indexStraight, straight)
}

// Middle straightens (true) or curls (false) the middle finger.
func (b *PoseBuilder) Middle(straight bool) *PoseBuilder {
	return b.pick(MiddleMCP, middleMCP, middleCurled, middleStraight, straight)
}

// Ring straightens (true) or curls (false) the ring finger.
func (b *PoseBuilder) Ring(straight bool) *PoseBuilder {
	return b.pick(RingMCP, ringMCP, ringCurled, ringStraight, straight)
}

// Pinky straightens (true) or curls (false) the pinky.
func (b *PoseBuilder) Pinky(straight bool) *PoseBuilder {
	return b.pick(PinkyMCP, pinkyMCP, pinkyCurled, pinkyStraight, straight)
}

// IndexTip places the index tip explicitly, e.g. to close a pinch.
func (b *PoseBuilder) IndexTip(tip Point3D) *PoseBuilder {
	b.finger(IndexMCP, indexMCP, tip)
	return b
}

// Build returns the assembled pose.
func (b *PoseBuilder) Build() HandLandmarks {
	return b.hand
}

func (b *PoseBuilder) pick(base int, mcp, curled, straight Point3D, isStraight bool) *PoseBuilder {
	if isStraight {
		b.finger(base, mcp, straight)
	} else {
		b.finger(base, mcp, curled)
	}
	return b
}

// finger fills MCP, PIP, DIP and tip for the finger whose MCP index is base.
func (b *PoseBuilder) finger(base int, mcp, tip Point3D) {
	b.hand.Points[base] = mcp
	b.hand.Points[base+1] = lerp(mcp, tip, 0.4)
	b.hand.Points[base+2] = lerp(mcp, tip, 0.7)
	b.hand.Points[base+3] = tip
}

func lerp(a, b Point3D, t float64) Point3D {
	return Point3D{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// FistLandmarks returns a closed fist with the thumb folded level.
func FistLandmarks() HandLandmarks {
	return NewPose().Build()
}

// ThumbsUpLandmarks returns a fist with the thumb pointing up.
func ThumbsUpLandmarks() HandLandmarks {
	return NewPose().Thumb(Point3D{X: 0.62, Y: 0.50}).Build()
}

// ThumbsDownLandmarks returns a fist with the thumb pointing down.
func ThumbsDownLandmarks() HandLandmarks {
	return NewPose().Thumb(Point3D{X: 0.62, Y: 0.82}).Build()
}

// VictoryLandmarks returns index and middle raised in a V, the rest curled.
func VictoryLandmarks() HandLandmarks {
	return NewPose().Index(true).Middle(true).Thumb(Point3D{X: 0.55, Y: 0.66}).Build()
}

// OKLandmarks returns thumb and index pinched into a ring with the other
// three fingers raised.
func OKLandmarks() HandLandmarks {
	return NewPose().
		IndexTip(Point3D{X: 0.60, Y: 0.55}).
		Thumb(Point3D{X: 0.62, Y: 0.56}).
		Middle(true).Ring(true).Pinky(true).
		Build()
}

// OpenPalmLandmarks returns all fingers extended with the thumb out to the side.
func OpenPalmLandmarks() HandLandmarks {
	return NewPose().
		Index(true).Middle(true).Ring(true).Pinky(true).
		Thumb(Point3D{X: 0.73, Y: 0.60}).
		Build()
}

// PointingLandmarks returns only the index finger raised, a pose that maps to
// no gesture.
func PointingLandmarks() HandLandmarks {
	return NewPose().Index(true).Build()
}
