package channel

// ListenerID identifies one registration made with Manager.On.
// The zero value is never issued; passing it to Off removes every listener
// of the event.
type ListenerID uint64

// Listener receives decoded events. It runs on the transport's reader
// goroutine, so events arrive in the order the server sent them.
type Listener func(Event)

type registration struct {
	id ListenerID
	fn Listener
}

// listeners buffers event-name to callback registrations independently of any
// transport, so they survive reconnects and registrations made before the
// first connect.
type listeners struct {
	next    ListenerID
	byEvent map[string][]registration
}

func (l *listeners) add(event string, fn Listener) ListenerID {
	if l.byEvent == nil {
		l.byEvent = make(map[string][]registration)
	}
	l.next++
	l.byEvent[event] = append(l.byEvent[event], registration{id: l.next, fn: fn})
	return l.next
}

// remove drops one registration, or all registrations of event when id is zero.
func (l *listeners) remove(event string, id ListenerID) {
	if id == 0 {
		delete(l.byEvent, event)
		return
	}
	regs := l.byEvent[event]
	for i, r := range regs {
		if r.id == id {
			regs = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(regs) == 0 {
		delete(l.byEvent, event)
		return
	}
	l.byEvent[event] = regs
}

// snapshot returns the callbacks of event, safe to call without the lock.
func (l *listeners) snapshot(event string) []Listener {
	regs := l.byEvent[event]
	out := make([]Listener, len(regs))
	for i, r := range regs {
		out[i] = r.fn
	}
	return out
}

func (l *listeners) count() int {
	n := 0
	for _, regs := range l.byEvent {
		n += len(regs)
	}
	return n
}

func (l *listeners) reset() {
	l.byEvent = nil
}
