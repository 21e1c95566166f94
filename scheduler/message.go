package scheduler

import (
	"github.com/uniplex/uniplex/engine"
	"github.com/uniplex/uniplex/messaging"
	"github.com/uniplex/uniplex/messaging/memory"
)

type msgKind int

const (
	msgTask msgKind = iota
	msgRegister
	msgBlocking
	msgInclude
	msgConfig
	msgPersistent
	msgComplete
	msgCall
	msgClosed
)

// message is the control-channel payload. Exactly one variant is populated,
// selected by kind; every externally submitted variant carries a reply that
// is settled exactly once or observed closed.
type message struct {
	kind msgKind
	id   string

	task     Task
	blocking BlockingFunc
	capacity int

	location string

	option  string
	enabled bool

	ptask PersistentTask
	calls *memory.Queue[persistentCall]

	slot    int
	regName string
	regErr  error

	call *engineCall

	reply *messaging.Reply[Outcome]
}

// engineCall is the suspension path: an async frame packages an engine call,
// sends it to the runtime loop and parks on the reply until the loop has
// executed the call on the driving goroutine.
type engineCall struct {
	eval  bool
	src   string
	name  string
	args  []engine.Value
	reply *messaging.Reply[Outcome]
}

// persistentCall is one queued invocation of a persistent task.
type persistentCall struct {
	input engine.Value
	reply *messaging.Reply[Outcome]
}
