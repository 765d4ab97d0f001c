package frame

// GuardedEvents are the pointer activation events the interaction guard
// swallows before any rendered component sees them.
var GuardedEvents = []string{
	"click",
	"dblclick",
	"auxclick",
	"mousedown",
	"mouseup",
	"pointerdown",
	"pointerup",
}

// installGuard registers the capture-phase blocker for every guarded event
// and returns a function removing all of them.
func installGuard(doc Document) func() {
	removers := make([]func(), 0, len(GuardedEvents))
	for _, typ := range GuardedEvents {
		removers = append(removers, doc.AddCaptureListener(typ, blockInteraction))
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func blockInteraction(e Event) {
	e.PreventDefault()
	e.StopPropagation()
}
