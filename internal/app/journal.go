package app

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/valentine/internal/store"
	"github.com/ayusman/valentine/internal/story"
)

// journalQueueSize bounds the events waiting to be written. The narrative
// commits a few events per second at most.
const journalQueueSize = 256

// journal writes controller events to the store. record is the controller
// listener: it only enqueues, so a slow or locked database never holds up a
// gesture or a timer. A single writer goroutine drains the queue in commit
// order.
type journal struct {
	store *store.Store

	mu        sync.Mutex
	written   *sync.Cond
	sessionID string
	queued    uint64
	done      uint64
	closed    bool

	queue    chan journalEntry
	finished chan struct{}
}

// journalEntry is one queued write. A reset opens newSession instead of
// appending a transition.
type journalEntry struct {
	sessionID  string
	newSession bool
	ev         story.Event
}

// newJournal opens the first session synchronously and starts the writer.
func newJournal(st *store.Store, initial story.Snapshot) (*journal, error) {
	j := &journal{
		store:     st,
		sessionID: uuid.NewString(),
		queue:     make(chan journalEntry, journalQueueSize),
		finished:  make(chan struct{}),
	}
	j.written = sync.NewCond(&j.mu)

	if err := j.createSession(j.sessionID, initial); err != nil {
		return nil, err
	}

	go j.run()
	return j, nil
}

func (j *journal) current() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sessionID
}

// record enqueues ev. A reset switches to a fresh session ID at once, so
// SessionID changes before Reset returns while the row is written later.
// When the queue is full the event is dropped and logged.
func (j *journal) record(ev story.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return
	}

	entry := journalEntry{ev: ev}
	if ev.Cause == story.CauseReset {
		j.sessionID = uuid.NewString()
		entry.newSession = true
	}
	entry.sessionID = j.sessionID

	select {
	case j.queue <- entry:
		j.queued++
	default:
		log.Printf("journal: queue full, dropped %s event for session %s", ev.Cause, entry.sessionID)
	}
}

// run is the writer goroutine.
func (j *journal) run() {
	defer close(j.finished)

	for entry := range j.queue {
		j.write(entry)

		j.mu.Lock()
		j.done++
		j.written.Broadcast()
		j.mu.Unlock()
	}
}

// write stores one entry. Failures are logged only.
func (j *journal) write(entry journalEntry) {
	if entry.newSession {
		if err := j.createSession(entry.sessionID, entry.ev.Snapshot); err != nil {
			log.Printf("journal: %v", err)
		}
		return
	}

	snap := entry.ev.Snapshot
	t := &store.Transition{
		SessionID:   entry.sessionID,
		Version:     snap.Version,
		Cause:       string(entry.ev.Cause),
		Gesture:     entry.ev.Gesture.String(),
		FromStage:   entry.ev.From.String(),
		ToStage:     snap.Stage.String(),
		ColorIndex:  snap.ColorIndex,
		Feedback:    snap.Feedback,
		Dialogue:    snap.Dialogue,
		InputLocked: snap.InputLocked,
		CreatedAt:   entry.ev.At,
	}
	if err := j.store.Transitions().Append(t, snap.Stage.Terminal()); err != nil {
		log.Printf("journal: append transition to %s: %v", entry.sessionID, err)
	}
}

func (j *journal) createSession(id string, snap story.Snapshot) error {
	sess := &store.Session{
		ID:    id,
		Stage: snap.Stage.String(),
	}
	if err := j.store.Sessions().Create(sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	log.Printf("journal: started session %s", id)
	return nil
}

// flush blocks until everything enqueued so far has been written.
func (j *journal) flush() {
	j.mu.Lock()
	defer j.mu.Unlock()

	target := j.queued
	for j.done < target {
		j.written.Wait()
	}
}

// close stops accepting events and waits for the writer to drain the queue.
func (j *journal) close() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		<-j.finished
		return
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	<-j.finished
}
