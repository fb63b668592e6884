package tap

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inputtap/tap/platform"
)

// EngineState is the player's state machine: Idle -> Arming -> Running
// -> (Paused <-> Running) -> Stopped -> Idle.
type EngineState int32

const (
	StateIdle EngineState = iota
	StateArming
	StateRunning
	StatePaused
	StateStopped
)

func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArming:
		return "arming"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EngineCommandKind discriminates EngineCommand.
type EngineCommandKind int

const (
	CmdStart EngineCommandKind = iota
	CmdPause
	CmdResume
	CmdStop
	CmdEmergencyStop
	CmdSetProfile
)

type EngineCommand struct {
	Kind    EngineCommandKind
	Profile Profile // CmdSetProfile only
}

// EngineEventKind discriminates EngineEvent.
type EngineEventKind int

const (
	EvtStateChanged EngineEventKind = iota
	EvtCountdownTick
	EvtActionStarting
	EvtActionCompleted
	EvtIterationCompleted
	EvtCompleted
	EvtError
)

type EngineEvent struct {
	Kind EngineEventKind

	OldState, NewState EngineState
	RemainingSecs      uint32
	Index              int
	Action             Action
	Iteration          uint32
	Message            string
}

// PlayerHandle is the caller-facing control surface for a running
// player: send commands, drain events, read state. The player itself
// runs its scheduling loop on a dedicated goroutine.
type PlayerHandle struct {
	cmdTx   chan EngineCommand
	eventRx chan EngineEvent
	state   *int32
	done    chan struct{}
}

// Send enqueues a command. Commands are never dropped — the channel is
// large enough that a full queue indicates a stuck player, which is
// surfaced by blocking rather than silently discarding a Stop.
func (h *PlayerHandle) Send(cmd EngineCommand) {
	h.cmdTx <- cmd
}

// TryRecv returns the next event without blocking, or false if none is
// queued.
func (h *PlayerHandle) TryRecv() (EngineEvent, bool) {
	select {
	case ev := <-h.eventRx:
		return ev, true
	default:
		return EngineEvent{}, false
	}
}

func (h *PlayerHandle) State() EngineState {
	return EngineState(atomic.LoadInt32(h.state))
}

// Shutdown stops the player and waits for its goroutine to exit. It must
// be called at most once; further Send calls after Shutdown will panic,
// same as sending on any closed channel.
func (h *PlayerHandle) Shutdown() {
	h.cmdTx <- EngineCommand{Kind: CmdStop}
	close(h.cmdTx)
	<-h.done
}

// backendEvaluator adapts a platform.Backend's window/pixel probes and the
// player's VariableStore into a ConditionEvaluator for
// WaitUntil/Conditional actions. It reads counters through storeRef rather than a fixed
// store, since CallMacro temporarily swaps the player's active store for
// the duration of a child timeline.
type backendEvaluator struct {
	windows  platform.WindowProbe
	pixels   platform.PixelProbe
	storeRef **VariableStore
}

func (e backendEvaluator) WindowFocused(titleContains, processContains string) (bool, error) {
	return e.windows.Focused(titleContains, processContains)
}

func (e backendEvaluator) WindowExists(titleContains, processContains string) (bool, error) {
	return e.windows.Exists(titleContains, processContains)
}

func (e backendEvaluator) PixelAt(x, y int) (Color, error) {
	c, err := e.pixels.PixelAt(x, y)
	if err != nil {
		return Color{}, err
	}
	return Color{R: c.R, G: c.G, B: c.B}, nil
}

func (e backendEvaluator) Counter(key string) int32 { return (*e.storeRef).GetCounter(key) }

// Player executes a Profile's Timeline against a platform.Injector,
// driven entirely by commands on a bounded channel, emitting progress on
// a bounded event channel. It owns no OS resources directly; Backend
// supplies everything platform-specific.
type Player struct {
	injector platform.Injector
	evalator ConditionEvaluator
	store    *VariableStore
	resolver ProfileResolver
	log      Logger

	profile struct {
		sync.Mutex
		p  Profile
		ok bool
	}

	cmdRx   chan EngineCommand
	eventTx chan EngineEvent

	calls *callStack
}

// Spawn starts a player goroutine and returns a handle to control it.
func Spawn(injector platform.Injector, backend platform.Backend, store *VariableStore, resolver ProfileResolver, log Logger) *PlayerHandle {
	if log == nil {
		log = NopLogger
	}
	if store == nil {
		store = NewVariableStore()
	}
	cmdRx := make(chan EngineCommand, 32)
	eventTx := make(chan EngineEvent, 256)
	state := new(int32)

	p := &Player{
		injector: injector,
		store:    store,
		resolver: resolver,
		log:      log,
		cmdRx:    cmdRx,
		eventTx:  eventTx,
		calls:    &callStack{},
	}
	p.evalator = backendEvaluator{windows: backend.Windows, pixels: backend.Pixels, storeRef: &p.store}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.runLoop(state)
	}()

	return &PlayerHandle{cmdTx: cmdRx, eventRx: eventTx, state: state, done: done}
}

func (p *Player) runLoop(state *int32) {
	p.log.Infof("player started")
	for cmd := range p.cmdRx {
		if !p.handleCommand(cmd, state) {
			break
		}
	}
	p.log.Infof("player exiting")
}

func (p *Player) handleCommand(cmd EngineCommand, state *int32) bool {
	switch cmd.Kind {
	case CmdStart:
		p.startExecution(state)
	case CmdPause:
		if p.getState(state) == StateRunning {
			p.transition(state, StatePaused)
		}
	case CmdResume:
		if p.getState(state) == StatePaused {
			p.transition(state, StateRunning)
		}
	case CmdStop, CmdEmergencyStop:
		p.transition(state, StateStopped)
		p.transition(state, StateIdle)
	case CmdSetProfile:
		p.profile.Lock()
		p.profile.p = cmd.Profile
		p.profile.ok = true
		p.profile.Unlock()
	}
	return true
}

func (p *Player) startExecution(state *int32) {
	p.profile.Lock()
	profile, ok := p.profile.p, p.profile.ok
	p.profile.Unlock()
	if !ok {
		p.emit(EngineEvent{Kind: EvtError, Message: "no profile set"})
		return
	}

	p.transition(state, StateArming)
	p.store.InitFromDefaults(profile.Variables)

	countdownSecs := uint32(profile.Run.StartDelayMs / 1000)
	for remaining := countdownSecs; remaining >= 1; remaining-- {
		if p.shouldStop(state) {
			p.transition(state, StateIdle)
			return
		}
		p.emit(EngineEvent{Kind: EvtCountdownTick, RemainingSecs: remaining})
		time.Sleep(time.Second)
	}

	p.transition(state, StateRunning)

	var iteration uint32
	for {
		iteration++
		if !p.executeTimeline(state, profile.Timeline.Actions, float64(profile.Run.Speed)) {
			break
		}
		p.emit(EngineEvent{Kind: EvtIterationCompleted, Iteration: iteration})

		if !profile.Run.Repeat.Forever && iteration >= profile.Run.Repeat.Times {
			p.emit(EngineEvent{Kind: EvtCompleted})
			break
		}
	}

	p.transition(state, StateStopped)
	p.transition(state, StateIdle)
}

const pollChunkMs = 50

// executeTimeline runs one pass of actions, sleeping up to pollChunkMs
// at a time so stop/pause commands are observed promptly. Returns false
// if the run was stopped mid-timeline.
func (p *Player) executeTimeline(state *int32, actions []TimedAction, speed float64) bool {
	start := time.Now()

	for index, timed := range actions {
		if !p.waitWhilePaused(state) {
			return false
		}
		if !timed.Enabled {
			continue
		}

		targetMs := uint64(float64(timed.AtMs) / speed)
		if !p.sleepUntil(state, start, targetMs) {
			return false
		}

		if timed.Action.Kind == ActionWait {
			if !p.sleepFor(state, uint64(float64(timed.Action.WaitMs)/speed)) {
				return false
			}
			p.emit(EngineEvent{Kind: EvtActionCompleted, Index: index})
			continue
		}

		p.emit(EngineEvent{Kind: EvtActionStarting, Index: index, Action: timed.Action})
		err := p.dispatch(state, timed.Action)
		if errors.Is(err, errExitRequested) {
			p.emit(EngineEvent{Kind: EvtActionCompleted, Index: index})
			return false
		}
		if err != nil {
			p.log.Errorf("action %d failed: %v", index, err)
			p.emit(EngineEvent{Kind: EvtError, Message: fmt.Sprintf("action %d failed: %v", index, err)})
		}
		p.emit(EngineEvent{Kind: EvtActionCompleted, Index: index})
	}

	return true
}

// sleepUntil blocks in pollChunkMs-sized chunks until elapsed time since
// start reaches targetMs. Pausing here does not shift the deadline —
// when resumed, the scheduler catches up and fires immediately (no
// additional delay is inserted for time already spent paused).
func (p *Player) sleepUntil(state *int32, start time.Time, targetMs uint64) bool {
	for {
		elapsed := uint64(time.Since(start).Milliseconds())
		if elapsed >= targetMs {
			return true
		}
		if !p.waitWhilePaused(state) {
			return false
		}
		if p.shouldStop(state) {
			return false
		}
		remaining := targetMs - elapsed
		chunk := remaining
		if chunk > pollChunkMs {
			chunk = pollChunkMs
		}
		time.Sleep(time.Duration(chunk) * time.Millisecond)
	}
}

func (p *Player) sleepFor(state *int32, ms uint64) bool {
	var waited uint64
	for waited < ms {
		if !p.waitWhilePaused(state) {
			return false
		}
		if p.shouldStop(state) {
			return false
		}
		chunk := ms - waited
		if chunk > pollChunkMs {
			chunk = pollChunkMs
		}
		time.Sleep(time.Duration(chunk) * time.Millisecond)
		waited += chunk
	}
	return true
}

// waitWhilePaused blocks while the state is Paused, draining commands so
// Resume/Stop take effect. Returns false if a stop was observed.
func (p *Player) waitWhilePaused(state *int32) bool {
	for {
		if p.shouldStop(state) {
			return false
		}
		if p.getState(state) != StatePaused {
			return true
		}
		time.Sleep(pollChunkMs * time.Millisecond)
	}
}

// shouldStop drains any pending commands (so Pause/Resume/SetProfile
// arriving mid-wait still apply) and reports whether a stop was issued.
func (p *Player) shouldStop(state *int32) bool {
	for {
		select {
		case cmd := <-p.cmdRx:
			switch cmd.Kind {
			case CmdStop, CmdEmergencyStop:
				p.transition(state, StateStopped)
				return true
			case CmdPause:
				if p.getState(state) == StateRunning {
					p.transition(state, StatePaused)
				}
			case CmdResume:
				if p.getState(state) == StatePaused {
					p.transition(state, StateRunning)
				}
			case CmdSetProfile:
				p.profile.Lock()
				p.profile.p = cmd.Profile
				p.profile.ok = true
				p.profile.Unlock()
			}
		default:
			return p.getState(state) == StateStopped
		}
	}
}

func (p *Player) getState(state *int32) EngineState {
	return EngineState(atomic.LoadInt32(state))
}

func (p *Player) transition(state *int32, next EngineState) {
	old := EngineState(atomic.SwapInt32(state, int32(next)))
	if old != next {
		p.emit(EngineEvent{Kind: EvtStateChanged, OldState: old, NewState: next})
	}
}

func (p *Player) emit(ev EngineEvent) {
	select {
	case p.eventTx <- ev:
	default:
		select {
		case <-p.eventTx:
		default:
		}
		select {
		case p.eventTx <- ev:
		default:
		}
	}
}

// dispatch handles one non-Wait action: control actions (WaitUntil,
// Conditional, counters, Exit, CallMacro) are handled in-process; every
// other kind is forwarded to the injector (§4.1 — control actions must
// never reach it).
func (p *Player) dispatch(state *int32, a Action) error {
	if !a.IsControl() {
		return p.inject(a)
	}

	switch a.Kind {
	case ActionWait:
		if !p.sleepFor(state, a.WaitMs) {
			return nil
		}
		return nil
	case ActionWaitUntil:
		return p.waitUntil(state, a)
	case ActionConditional:
		result := Evaluate(*a.Cond, p.evalator)
		// Error behaves as NotSatisfied here: Conditional always takes a
		// branch, never halts the timeline on a probe failure.
		var branch *Action
		if result.Status == Satisfied {
			branch = a.Then
		} else {
			branch = a.Else
		}
		if branch == nil {
			return nil
		}
		return p.dispatch(state, *branch)
	case ActionSetCounter:
		v, err := defaultExprEngine.EvaluateToInt32(a.ValueExpr, storeScope{store: p.store})
		if err != nil {
			return err
		}
		p.store.SetCounter(a.CounterKey, v)
		return nil
	case ActionIncrCounter:
		p.store.IncrCounter(a.CounterKey)
		return nil
	case ActionDecrCounter:
		p.store.DecrCounter(a.CounterKey)
		return nil
	case ActionResetCounter:
		p.store.ResetCounter(a.CounterKey)
		return nil
	case ActionExit:
		return errExitRequested
	case ActionCallMacro:
		return p.callMacro(state, a)
	default:
		return NewError(KindEvaluation, fmt.Sprintf("unhandled control action %s", a.Kind), nil)
	}
}

var errExitRequested = NewError(KindEvaluation, "exit requested", nil)

func (p *Player) waitUntil(state *int32, a Action) error {
	deadline := time.Time{}
	if a.TimeoutMs != nil {
		deadline = time.Now().Add(time.Duration(*a.TimeoutMs) * time.Millisecond)
	}
	pollMs := a.PollMs
	if pollMs == 0 {
		pollMs = pollChunkMs
	}
	for {
		if p.shouldStop(state) {
			return nil
		}
		// Error counts as not satisfied here: WaitUntil keeps polling
		// through a transient probe failure rather than aborting, unlike
		// Conditional's immediate else-branch on the same status.
		result := Evaluate(*a.Cond, p.evalator)
		if result.Status == Satisfied {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil
		}
		time.Sleep(time.Duration(pollMs) * time.Millisecond)
	}
}

func (p *Player) callMacro(state *int32, a Action) error {
	if err := p.calls.push(a.MacroName); err != nil {
		return err
	}
	defer p.calls.pop()

	child, err := p.resolver.ResolveProfile(a.MacroName)
	if err != nil {
		return err
	}
	args, err := ResolveCallArgs(a.MacroArgs, p.store)
	if err != nil {
		return err
	}

	parentStore := p.store
	p.store = NewChildStore(parentStore, child.Variables, args)
	defer func() { p.store = parentStore }()

	p.executeTimeline(state, child.Timeline.Actions, float64(child.Run.Speed))
	return nil
}

func (p *Player) inject(a Action) error {
	switch a.Kind {
	case ActionClick:
		if err := p.injector.MouseDown(toPlatformButton(a.Button), a.X, a.Y); err != nil {
			return err
		}
		return p.injector.MouseUp(toPlatformButton(a.Button), a.X, a.Y)
	case ActionDoubleClick:
		for i := 0; i < 2; i++ {
			if err := p.inject(Action{Kind: ActionClick, X: a.X, Y: a.Y, Button: a.Button}); err != nil {
				return err
			}
		}
		return nil
	case ActionMouseDown:
		return p.injector.MouseDown(toPlatformButton(a.Button), a.X, a.Y)
	case ActionMouseUp:
		return p.injector.MouseUp(toPlatformButton(a.Button), a.X, a.Y)
	case ActionMouseMove:
		return p.injector.MouseMove(a.X, a.Y)
	case ActionDrag:
		return p.drag(a)
	case ActionScroll:
		return p.injector.Scroll(a.DX, a.DY)
	case ActionKeyTap:
		if err := p.injector.KeyDown(a.Key); err != nil {
			return err
		}
		return p.injector.KeyUp(a.Key)
	case ActionKeyDown:
		return p.injector.KeyDown(a.Key)
	case ActionKeyUp:
		return p.injector.KeyUp(a.Key)
	case ActionTextInput:
		return p.injector.TextInput(a.Text)
	default:
		return NewError(KindInjectionFailed, fmt.Sprintf("unhandled injectable action %s", a.Kind), nil)
	}
}

// drag interpolates a straight line of MouseMove calls between the
// start and end points over DurationMs, at roughly one step per
// pollChunkMs, bracketed by a MouseDown/MouseUp.
func (p *Player) drag(a Action) error {
	if err := p.injector.MouseDown(toPlatformButton(a.Button), a.X, a.Y); err != nil {
		return err
	}
	steps := int(a.DurationMs / pollChunkMs)
	if steps < 1 {
		steps = 1
	}
	for i := 1; i <= steps; i++ {
		frac := float64(i) / float64(steps)
		x := a.X + int(float64(a.ToX-a.X)*frac)
		y := a.Y + int(float64(a.ToY-a.Y)*frac)
		if err := p.injector.MouseMove(x, y); err != nil {
			return err
		}
		time.Sleep(pollChunkMs * time.Millisecond)
	}
	return p.injector.MouseUp(toPlatformButton(a.Button), a.ToX, a.ToY)
}

func toPlatformButton(b MouseButton) platform.MouseButton {
	switch b {
	case ButtonRight:
		return platform.ButtonRight
	case ButtonMiddle:
		return platform.ButtonMiddle
	default:
		return platform.ButtonLeft
	}
}
