package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Phase is the dispatch phase an event is in.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseCapture
	PhaseTarget
	PhaseBubble
)

// Event is a dispatched DOM event.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	Phase         Phase

	defaultPrevented bool
	stopped          bool
}

// PreventDefault cancels the default action run after dispatch.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// StopPropagation stops the event from reaching further nodes. Listeners on
// the current node still run.
func (e *Event) StopPropagation() { e.stopped = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// Listener handles an event.
type Listener func(*Event)

type listener struct {
	id      uint64
	typ     string
	capture bool
	fn      Listener
}

// Action is a default action the document ran because no listener prevented it.
type Action struct {
	Kind   string // "navigate" or "submit"
	URL    string
	Source *html.Node
}

// OnDefaultAction registers the hook that receives default actions. A
// headless document has no browsing context, so this is the only visible
// effect of an unprevented link click or form submission.
func (d *Document) OnDefaultAction(fn func(Action)) {
	d.onDefault = fn
}

// AddEventListener registers fn for events of type typ on target. A nil target
// means the document node. The returned function removes the listener.
func (d *Document) AddEventListener(target *html.Node, typ string, capture bool, fn Listener) func() {
	if target == nil {
		target = d.root
	}
	d.nextID++
	l := &listener{id: d.nextID, typ: typ, capture: capture, fn: fn}
	d.listeners[target] = append(d.listeners[target], l)

	return func() {
		ls := d.listeners[target]
		for i, cur := range ls {
			if cur.id == l.id {
				d.listeners[target] = append(ls[:i:i], ls[i+1:]...)
				break
			}
		}
		if len(d.listeners[target]) == 0 {
			delete(d.listeners, target)
		}
	}
}

// Dispatch fires an event of type typ at target: capture listeners from the
// document node down, listeners on the target, then bubbling listeners back
// up. When nothing prevented the default, the default action for the event
// runs afterwards.
func (d *Document) Dispatch(target *html.Node, typ string) *Event {
	ev := &Event{Type: typ, Target: target}

	var path []*html.Node
	for n := target.Parent; n != nil; n = n.Parent {
		path = append(path, n)
	}

	ev.Phase = PhaseCapture
	for i := len(path) - 1; i >= 0 && !ev.stopped; i-- {
		d.invoke(ev, path[i], func(l *listener) bool { return l.capture })
	}

	if !ev.stopped {
		ev.Phase = PhaseTarget
		d.invoke(ev, target, func(*listener) bool { return true })
	}

	ev.Phase = PhaseBubble
	for i := 0; i < len(path) && !ev.stopped; i++ {
		d.invoke(ev, path[i], func(l *listener) bool { return !l.capture })
	}

	ev.Phase = PhaseNone
	ev.CurrentTarget = nil
	if !ev.defaultPrevented {
		d.runDefault(ev)
	}
	return ev
}

func (d *Document) invoke(ev *Event, node *html.Node, match func(*listener) bool) {
	ls := d.listeners[node]
	if len(ls) == 0 {
		return
	}
	// Listeners added during dispatch do not see this event.
	snapshot := append([]*listener(nil), ls...)
	ev.CurrentTarget = node
	for _, l := range snapshot {
		if l.typ == ev.Type && match(l) {
			l.fn(ev)
		}
	}
}

// runDefault performs the activation behavior of the nearest link or submit
// button enclosing the click target.
func (d *Document) runDefault(ev *Event) {
	if ev.Type != "click" || d.onDefault == nil {
		return
	}
	for n := ev.Target; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.DataAtom {
		case atom.A:
			if HasAttr(n, "href") {
				d.onDefault(Action{Kind: "navigate", URL: Attr(n, "href"), Source: n})
				return
			}
		case atom.Button, atom.Input:
			if !isSubmitter(n) {
				continue
			}
			if form := enclosingForm(n); form != nil {
				d.onDefault(Action{Kind: "submit", URL: Attr(form, "action"), Source: form})
				return
			}
		}
	}
}

func isSubmitter(n *html.Node) bool {
	typ := strings.ToLower(Attr(n, "type"))
	if n.DataAtom == atom.Button {
		return typ == "" || typ == "submit"
	}
	return typ == "submit" || typ == "image"
}

func enclosingForm(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Form {
			return p
		}
	}
	return nil
}
