package types

// Mark is a bar where a strategy emitted a defined, non-flat signal, with the
// position the simulator held after that bar.
type Mark struct {
	Bar      Bar
	Signal   Signal
	Position PositionState
}
