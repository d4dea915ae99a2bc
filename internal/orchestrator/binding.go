package orchestrator

// binding ties a trigger to the actions it runs, an optional stop condition
// and what happens once it is done.
type binding struct {
	d       *Director
	owner   string
	trigger Trigger
	actions []Action
	stop    StopCondition
	then    []Action
	next    *binding
	armed   bool
	gen     int
	fires   int
}

func newBinding(d *Director, owner string, t Trigger) *binding {
	return &binding{d: d, owner: owner, trigger: t}
}

func (b *binding) start() {
	if b.armed {
		return
	}
	b.armed = true
	if b.stop != nil {
		b.stop.StartTracking(b.d.store)
	}
	b.gen++
	b.d.emit("trigger.armed", map[string]interface{}{"owner": b.owner, "trigger": describe(b.trigger)})
	b.arm(b.gen)
}

func (b *binding) arm(gen int) {
	b.trigger.Arm(b.d, func() { b.fire(gen) })
}

func (b *binding) fire(gen int) {
	if !b.armed || gen != b.gen {
		return
	}
	b.armed = false
	b.fires++
	b.d.fires++
	b.d.emit("trigger.fired", map[string]interface{}{
		"owner":   b.owner,
		"trigger": describe(b.trigger),
		"count":   b.fires,
	})
	b.d.logger.Debug("trigger fired", "owner", b.owner, "trigger", describe(b.trigger), "count", b.fires)

	for _, a := range b.actions {
		a(b.d)
	}
	if gen != b.gen {
		// cancelled by one of its own actions
		return
	}

	if b.stop != nil && !b.stop.Satisfied(b.d.store) {
		b.armed = true
		b.arm(gen)
		return
	}
	if b.stop != nil {
		b.d.emit("trigger.stopped", map[string]interface{}{"owner": b.owner, "trigger": describe(b.trigger), "count": b.fires})
	}

	for _, a := range b.then {
		a(b.d)
	}
	if gen != b.gen {
		return
	}
	if b.next != nil {
		b.next.start()
	}
}

func (b *binding) cancel() {
	b.gen++
	if b.armed {
		b.armed = false
		b.trigger.Cancel()
		b.d.emit("trigger.cancelled", map[string]interface{}{"owner": b.owner, "trigger": describe(b.trigger)})
	}
	if b.next != nil {
		b.next.cancel()
	}
}

func (b *binding) setStop(stop StopCondition) {
	b.stop = stop
	if b.armed && stop != nil {
		b.stop.StartTracking(b.d.store)
	}
}

// resubscribe re-establishes store subscriptions for armed triggers in the
// chain after a restore replaced the listener map.
func (b *binding) resubscribe() {
	for cur := b; cur != nil; cur = cur.next {
		if !cur.armed {
			continue
		}
		if r, ok := cur.trigger.(resubscriber); ok {
			r.resubscribe(cur.d.store)
		}
	}
}

// WhenStage configures a binding after When.
type WhenStage struct {
	b *binding
}

// Execute appends actions run every time the trigger fires.
func (w *WhenStage) Execute(actions ...Action) *WhenStage {
	w.b.actions = append(w.b.actions, actions...)
	return w
}

// Until makes the binding repeat until stop is satisfied.
func (w *WhenStage) Until(stop StopCondition) *UntilStage {
	w.b.setStop(stop)
	return &UntilStage{b: w.b}
}

// Then appends actions run once when the binding completes.
func (w *WhenStage) Then(actions ...Action) *WhenStage {
	w.b.then = append(w.b.then, actions...)
	return w
}

// ThenWhen chains a binding that starts once this one completes and returns
// the stage for configuring it.
func (w *WhenStage) ThenWhen(t Trigger) *WhenStage {
	return &WhenStage{b: w.b.chain(t)}
}

// UntilStage configures a repeating binding.
type UntilStage struct {
	b *binding
}

// Execute appends actions run every time the trigger fires.
func (u *UntilStage) Execute(actions ...Action) *UntilStage {
	u.b.actions = append(u.b.actions, actions...)
	return u
}

// Then appends actions run once the stop condition is satisfied.
func (u *UntilStage) Then(actions ...Action) *UntilStage {
	u.b.then = append(u.b.then, actions...)
	return u
}

// ThenWhen chains a binding that starts once the stop condition is satisfied.
func (u *UntilStage) ThenWhen(t Trigger) *WhenStage {
	return &WhenStage{b: u.b.chain(t)}
}

// ThenAdvance moves the director to the next phase once the stop condition
// is satisfied.
func (u *UntilStage) ThenAdvance() *UntilStage {
	return u.Then(Advance())
}

func (b *binding) chain(t Trigger) *binding {
	nb := newBinding(b.d, b.owner, t)
	b.next = nb
	return nb
}
