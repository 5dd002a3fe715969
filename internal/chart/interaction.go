package chart

import "errors"

// Drag controller errors.
var (
	ErrNotDragging     = errors.New("no drag in progress")
	ErrAlreadyDragging = errors.New("drag already in progress")
)

// DragState enumerates the interaction states of the drag controller.
type DragState int

const (
	DragIdle DragState = iota
	DragActive
)

// DragSource describes what is being carried: a student pulled from the
// available roster, or one lifted out of an existing seat.
type DragSource struct {
	FromSeat bool
	Origin   SeatAddress
	Student  *StudentRef
}

// DragController mediates moving a student reference onto a seat. Only one
// pointer device is modeled, so at most one drag is in flight and no locking
// is needed.
type DragController struct {
	chart  *SeatingChart
	state  DragState
	source DragSource
}

// NewDragController binds a controller to a chart.
func NewDragController(c *SeatingChart) *DragController {
	return &DragController{chart: c}
}

// State returns the current interaction state.
func (d *DragController) State() DragState {
	return d.state
}

// Source returns the active drag source; only meaningful while dragging.
func (d *DragController) Source() DragSource {
	return d.source
}

// StartFromRoster begins dragging a student from the available list.
func (d *DragController) StartFromRoster(student *StudentRef) error {
	if d.state != DragIdle {
		return ErrAlreadyDragging
	}
	if student == nil || student.ID == "" {
		return errors.New("student reference required")
	}
	d.state = DragActive
	d.source = DragSource{Student: student}
	return nil
}

// StartFromSeat begins dragging the occupant of an existing seat. The seat
// is not cleared until the drop lands on a valid target.
func (d *DragController) StartFromSeat(row, seat int) error {
	if d.state != DragIdle {
		return ErrAlreadyDragging
	}
	student := d.chart.Occupant(row, seat)
	if student == nil {
		return ErrEmptySeat
	}
	d.state = DragActive
	d.source = DragSource{
		FromSeat: true,
		Origin:   SeatAddress{Row: row, Seat: seat},
		Student:  student,
	}
	return nil
}

// CanDropOn reports whether the target seat would accept the current drag,
// driving the not-allowed affordance during drag-over. Dropping back onto
// the origin seat is allowed (it is a no-op).
func (d *DragController) CanDropOn(row, seat int) bool {
	if d.state != DragActive {
		return false
	}
	if d.source.FromSeat && d.source.Origin.Row == row && d.source.Origin.Seat == seat {
		return true
	}
	return d.chart.Occupant(row, seat) == nil
}

// DropOn completes the drag onto the target seat. An occupied target
// rejects the drop and the controller returns to idle with no mutation.
// A seat-sourced drop is a move (remove source, assign target); a
// roster-sourced drop only assigns.
func (d *DragController) DropOn(row, seat int) error {
	if d.state != DragActive {
		return ErrNotDragging
	}
	source := d.source
	d.reset()

	if source.FromSeat {
		return d.chart.Move(source.Origin.Row, source.Origin.Seat, row, seat)
	}
	return d.chart.Assign(row, seat, source.Student)
}

// Cancel abandons the drag without mutating the chart.
func (d *DragController) Cancel() {
	d.reset()
}

func (d *DragController) reset() {
	d.state = DragIdle
	d.source = DragSource{}
}
