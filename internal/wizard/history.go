package wizard

// history keeps the single checkpoint used by back navigation.
type history struct {
	initial  State
	previous State
}

func newHistory(initial State) history {
	return history{initial: initial, previous: initial}
}

// record stores the state being left by a forward transition.
func (h *history) record(s State) {
	h.previous = s
}

// restore returns the state to go back to from current. Leaving validation
// goes back to the initial state and clears the checkpoint to it.
func (h *history) restore(current State) State {
	if current.Step() == StepValidateData {
		h.previous = h.initial
		return h.initial
	}
	return h.previous
}
