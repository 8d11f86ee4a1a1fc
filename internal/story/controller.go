package story

import (
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ayusman/valentine/internal/gesture"
)

// Delays are the lengths of the timed sequences.
type Delays struct {
	// Scatter is how long the explosion plays before the first question.
	Scatter time.Duration
	// Letter is how long input stays locked while the letter is read.
	Letter time.Duration
	// Poem is how long input stays locked after the poem appears.
	Poem time.Duration
}

// DefaultDelays returns the narrative's standard timings.
func DefaultDelays() Delays {
	return Delays{
		Scatter: 1500 * time.Millisecond,
		Letter:  5000 * time.Millisecond,
		Poem:    2000 * time.Millisecond,
	}
}

// State is the controller's full internal state.
type State struct {
	Stage           Stage
	ColorIndex      int
	Feedback        string
	Dialogue        string
	DialogueVisible bool
	InputLocked     bool
	LastGesture     gesture.Gesture
}

// Snapshot is the state published to the renderer. Its schema does not change
// during a session.
type Snapshot struct {
	Stage           Stage  `json:"stage"`
	Shape           Shape  `json:"shape"`
	ColorIndex      int    `json:"colorIndex"`
	Color           string `json:"color"`
	Feedback        string `json:"feedbackText"`
	Dialogue        string `json:"dialogueText"`
	DialogueVisible bool   `json:"dialogueVisible"`
	InputLocked     bool   `json:"inputLocked"`
	Panel           string `json:"panel"`
	Version         uint64 `json:"version"`
}

// Cause says what produced a state change.
type Cause string

const (
	CauseGesture Cause = "gesture"
	CauseTimer   Cause = "timer"
	CauseReset   Cause = "reset"
)

// Event describes one committed state change.
type Event struct {
	Cause    Cause
	Gesture  gesture.Gesture // set when Cause is CauseGesture
	From     Stage
	Snapshot Snapshot
	At       time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithScript replaces the narrative text. Empty fields fall back to the default script.
func WithScript(s Script) Option {
	return func(c *Controller) { c.script = s.Merge(DefaultScript()) }
}

// WithDelays replaces the timed-sequence lengths.
func WithDelays(d Delays) Option {
	return func(c *Controller) { c.delays = d }
}

// WithScheduler replaces the timer source.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithRand sets the source used to pick rejection messages.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.pick = r.IntN }
}

// WithClock sets the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller is the narrative state machine. It owns its state; gestures and
// timer callbacks are applied one at a time.
//
// Every committed change bumps a generation counter. Timers remember the
// generation they were armed in and do nothing if it has moved on, so a timer
// left over from before a Reset cannot overwrite the new session.
type Controller struct {
	script Script
	delays Delays
	sched  Scheduler
	pick   func(n int) int
	now    func() time.Time

	mu      sync.Mutex
	state   State
	gen     uint64
	version uint64
	armed   *deferred

	// notifyMu keeps listeners seeing events in commit order.
	notifyMu  sync.Mutex
	listeners []func(Event)
}

type deferred struct {
	delay time.Duration
	apply func(*State)
}

// New creates a Controller at StageIntro.
func New(opts ...Option) *Controller {
	c := &Controller{
		script: DefaultScript(),
		delays: DefaultDelays(),
		sched:  RealScheduler{},
		pick:   rand.IntN,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = c.initialState()
	return c
}

func (c *Controller) initialState() State {
	return State{
		Stage:       StageIntro,
		ColorIndex:  0,
		Feedback:    c.script.Intro,
		LastGesture: gesture.None,
	}
}

// OnChange registers fn to be called after every committed change, in commit
// order. Listeners must not call back into the Controller; the event already
// carries the new snapshot.
func (c *Controller) OnChange(fn func(Event)) {
	if fn == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Script returns the narrative text in use.
func (c *Controller) Script() Script {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.script
}

// SetScript swaps the narrative text. Empty fields fall back to the default
// script. Text already on screen stays until the next transition uses the new
// script; nothing is published.
func (c *Controller) SetScript(s Script) error {
	s = s.Merge(DefaultScript())
	if err := s.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = s
	return nil
}

// HandleGesture feeds one classified gesture. It reports whether the state
// changed. None, and any gesture while input is locked, is dropped without
// touching the state. Gestures that mean nothing in the current stage only
// update the last-gesture memory.
func (c *Controller) HandleGesture(g gesture.Gesture) bool {
	c.mu.Lock()

	if c.state.InputLocked || g == gesture.None || g == "" {
		c.mu.Unlock()
		return false
	}

	from := c.state.Stage
	changed := c.transition(g)
	c.state.LastGesture = g

	if !changed {
		c.mu.Unlock()
		return false
	}

	ev := c.commitLocked(CauseGesture, g, from)
	c.publish(ev)
	return true
}

// Reset restarts the narrative from StageIntro. Timers armed before the reset
// are discarded when they fire.
func (c *Controller) Reset() {
	c.mu.Lock()
	from := c.state.Stage
	c.state = c.initialState()
	c.armed = nil
	ev := c.commitLocked(CauseReset, gesture.None, from)
	c.publish(ev)
}

// transition applies g to the state and reports whether anything changed.
// Called with mu held.
func (c *Controller) transition(g gesture.Gesture) bool {
	s := &c.state

	switch s.Stage {
	case StageIntro:
		if g != gesture.Fist {
			return false
		}
		s.Stage = StageScatter
		s.ColorIndex = 1
		s.Feedback = c.script.Scattering
		s.DialogueVisible = false
		c.arm(c.delays.Scatter, func(s *State) {
			s.Stage = StageAskFirst
			s.ColorIndex = 2
			s.Dialogue = c.script.FirstQuestion
			s.DialogueVisible = true
			s.Feedback = c.script.FirstPrompt
		})
		return true

	case StageAskFirst:
		if g != gesture.OK {
			return false
		}
		s.Stage = StageAskSecond
		s.ColorIndex = 3
		s.Dialogue = c.script.SecondQuestion
		s.Feedback = c.script.AnswerPrompt
		return true

	case StageAskSecond:
		switch g {
		case gesture.ThumbsUp:
			s.Stage = StageLetter
			s.ColorIndex = 0
			s.Dialogue = ""
			s.DialogueVisible = false
			s.Feedback = c.script.Reading
			s.InputLocked = true
			c.arm(c.delays.Letter, func(s *State) {
				s.InputLocked = false
				s.Feedback = c.script.PoemPrompt
			})
			return true

		case gesture.ThumbsDown:
			// Holding the pose must not re-roll the message every frame.
			if s.LastGesture == gesture.ThumbsDown {
				return false
			}
			s.ColorIndex = 4
			s.Feedback = c.script.Rejections[c.pick(len(c.script.Rejections))]
			s.Dialogue = c.script.RetryDialogue
			return true
		}
		return false

	case StageLetter:
		if g != gesture.Victory {
			return false
		}
		s.Stage = StagePoem
		s.ColorIndex = 1
		s.Feedback = c.script.Finale
		s.InputLocked = true
		c.arm(c.delays.Poem, func(s *State) {
			s.InputLocked = false
		})
		return true
	}

	// StageScatter waits on its timer; StagePoem is terminal.
	return false
}

// arm records a deferred mutation to be scheduled once the current change commits.
func (c *Controller) arm(delay time.Duration, apply func(*State)) {
	c.armed = &deferred{delay: delay, apply: apply}
}

// commitLocked bumps the generation, schedules any armed timer against it and
// builds the event. Called with mu held.
func (c *Controller) commitLocked(cause Cause, g gesture.Gesture, from Stage) Event {
	c.gen++
	c.version++

	if d := c.armed; d != nil {
		c.armed = nil
		gen := c.gen
		c.sched.AfterFunc(d.delay, func() { c.fire(gen, d.apply) })
	}

	return Event{
		Cause:    cause,
		Gesture:  g,
		From:     from,
		Snapshot: c.snapshotLocked(),
		At:       c.now(),
	}
}

// fire applies a timer's mutation if nothing has committed since it was armed.
func (c *Controller) fire(gen uint64, apply func(*State)) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		log.Printf("story: discarded stale timer (generation %d, now %d)", gen, c.gen)
		return
	}

	from := c.state.Stage
	apply(&c.state)
	ev := c.commitLocked(CauseTimer, gesture.None, from)
	c.publish(ev)
}

// publish releases mu and delivers ev to listeners. Taking notifyMu before
// releasing mu keeps delivery in commit order.
func (c *Controller) publish(ev Event) {
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, fn := range c.listeners {
		fn(ev)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.state
	snap := Snapshot{
		Stage:           s.Stage,
		Shape:           s.Stage.Shape(),
		ColorIndex:      s.ColorIndex,
		Color:           Color(s.ColorIndex),
		Feedback:        s.Feedback,
		Dialogue:        s.Dialogue,
		DialogueVisible: s.DialogueVisible,
		InputLocked:     s.InputLocked,
		Version:         c.version,
	}
	switch s.Stage {
	case StageLetter:
		snap.Panel = c.script.Letter
	case StagePoem:
		snap.Panel = c.script.Poem
	}
	return snap
}
