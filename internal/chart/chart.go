package chart

import (
	"errors"
	"time"
)

// Sentinel errors reported by chart mutations. The service layer maps these
// onto the HTTP error taxonomy.
var (
	ErrSeatOccupied      = errors.New("seat is already occupied")
	ErrDuplicateOccupant = errors.New("student is already seated elsewhere")
	ErrOutOfRange        = errors.New("seat reference outside the chart")
	ErrEmptySeat         = errors.New("seat is empty")
)

// MediaRef is a favorite movie or show captured on a student snapshot.
type MediaRef struct {
	Title  string  `json:"title"`
	Year   string  `json:"year,omitempty"`
	Kind   string  `json:"kind,omitempty"`
	Poster string  `json:"poster,omitempty"`
	Rating float64 `json:"rating,omitempty"`
}

// NoteRef is an instructor note captured on a student snapshot.
type NoteRef struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// StudentRef is the denormalized snapshot of a student stored in a seat. It
// is frozen at assignment time and not re-synced with the live roster, so a
// saved layout stays viewable even if the student record later changes.
type StudentRef struct {
	ID            string     `json:"id"`
	FullName      string     `json:"fullName"`
	Email         string     `json:"email,omitempty"`
	Pronoun       string     `json:"pronoun,omitempty"`
	Major         string     `json:"major,omitempty"`
	PictureURL    string     `json:"pictureUrl,omitempty"`
	Hobbies       []string   `json:"hobbies,omitempty"`
	FavoriteMedia []MediaRef `json:"favoriteMedia,omitempty"`
	Bio           string     `json:"bio,omitempty"`
	Notes         []NoteRef  `json:"notes,omitempty"`
}

// SeatAddress identifies a single cell in the chart.
type SeatAddress struct {
	Row  int `json:"row"`
	Seat int `json:"seat"`
}

// SeatingChart is a fixed-shape grid of nullable student references. Rows
// are replaced wholesale on mutation (copy-on-write), never edited in place,
// so snapshots taken from the chart never alias live rows.
type SeatingChart struct {
	configs []RowConfig
	rows    [][]*StudentRef
}

// NewSeatingChart builds an empty chart shaped by the row configuration.
func NewSeatingChart(configs []RowConfig) *SeatingChart {
	rows := make([][]*StudentRef, len(configs))
	for i, cfg := range configs {
		rows[i] = make([]*StudentRef, cfg.SeatCount)
	}
	return &SeatingChart{
		configs: append([]RowConfig(nil), configs...),
		rows:    rows,
	}
}

// Configs returns a copy of the row configuration.
func (c *SeatingChart) Configs() []RowConfig {
	return append([]RowConfig(nil), c.configs...)
}

// Rows returns a copy of the grid. Occupant pointers are shared: student
// snapshots are immutable once frozen.
func (c *SeatingChart) Rows() [][]*StudentRef {
	rows := make([][]*StudentRef, len(c.rows))
	for i, row := range c.rows {
		rows[i] = append([]*StudentRef(nil), row...)
	}
	return rows
}

// Occupant returns the student in the given cell, or nil when the cell is
// empty or out of range. Out-of-range reads are treated as empty, not as
// errors.
func (c *SeatingChart) Occupant(row, seat int) *StudentRef {
	if row < 0 || row >= len(c.rows) {
		return nil
	}
	if seat < 0 || seat >= len(c.rows[row]) {
		return nil
	}
	return c.rows[row][seat]
}

// Assign seats a student in the given cell. It fails without mutation when
// the cell is occupied or the student already holds a different seat; a move
// must be decomposed into remove+assign by the caller.
func (c *SeatingChart) Assign(row, seat int, student *StudentRef) error {
	if student == nil || student.ID == "" {
		return errors.New("student reference required")
	}
	if !c.inRange(row, seat) {
		return ErrOutOfRange
	}
	if c.rows[row][seat] != nil {
		return ErrSeatOccupied
	}
	if _, seated := c.locate(student.ID); seated {
		return ErrDuplicateOccupant
	}
	c.replaceCell(row, seat, student)
	return nil
}

// Remove clears a cell. Clearing an empty or out-of-range cell is a no-op.
func (c *SeatingChart) Remove(row, seat int) {
	if !c.inRange(row, seat) {
		return
	}
	if c.rows[row][seat] == nil {
		return
	}
	c.replaceCell(row, seat, nil)
}

// Move relocates the occupant of one cell into another empty cell. The
// target is checked before the source is cleared so a rejected move leaves
// both cells untouched.
func (c *SeatingChart) Move(fromRow, fromSeat, toRow, toSeat int) error {
	if !c.inRange(fromRow, fromSeat) || !c.inRange(toRow, toSeat) {
		return ErrOutOfRange
	}
	student := c.rows[fromRow][fromSeat]
	if student == nil {
		return ErrEmptySeat
	}
	if fromRow == toRow && fromSeat == toSeat {
		return nil
	}
	if c.rows[toRow][toSeat] != nil {
		return ErrSeatOccupied
	}
	c.replaceCell(fromRow, fromSeat, nil)
	c.replaceCell(toRow, toSeat, student)
	return nil
}

// OccupantsOf maps each of the given student ids that currently holds a seat
// to its address.
func (c *SeatingChart) OccupantsOf(ids map[string]struct{}) map[string]SeatAddress {
	found := make(map[string]SeatAddress)
	for r, row := range c.rows {
		for s, occupant := range row {
			if occupant == nil {
				continue
			}
			if _, ok := ids[occupant.ID]; ok {
				found[occupant.ID] = SeatAddress{Row: r, Seat: s}
			}
		}
	}
	return found
}

// SeatedIDs returns the set of all seated student ids.
func (c *SeatingChart) SeatedIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, row := range c.rows {
		for _, occupant := range row {
			if occupant != nil {
				ids[occupant.ID] = struct{}{}
			}
		}
	}
	return ids
}

// Seated lists every occupied cell in row-major order.
func (c *SeatingChart) Seated() []SeatAddress {
	var seats []SeatAddress
	for r, row := range c.rows {
		for s, occupant := range row {
			if occupant != nil {
				seats = append(seats, SeatAddress{Row: r, Seat: s})
			}
		}
	}
	return seats
}

// TotalOccupied counts occupied seats.
func (c *SeatingChart) TotalOccupied() int {
	total := 0
	for _, row := range c.rows {
		for _, occupant := range row {
			if occupant != nil {
				total++
			}
		}
	}
	return total
}

// Clone returns an independent copy of the chart.
func (c *SeatingChart) Clone() *SeatingChart {
	return &SeatingChart{
		configs: append([]RowConfig(nil), c.configs...),
		rows:    c.Rows(),
	}
}

// Equal reports value equality of two charts: same shape, same occupant ids
// in the same cells.
func (c *SeatingChart) Equal(other *SeatingChart) bool {
	if other == nil || len(c.rows) != len(other.rows) {
		return false
	}
	for r, row := range c.rows {
		if len(row) != len(other.rows[r]) {
			return false
		}
		for s, occupant := range row {
			theirs := other.rows[r][s]
			if (occupant == nil) != (theirs == nil) {
				return false
			}
			if occupant != nil && occupant.ID != theirs.ID {
				return false
			}
		}
	}
	return true
}

func (c *SeatingChart) inRange(row, seat int) bool {
	if row < 0 || row >= len(c.rows) {
		return false
	}
	return seat >= 0 && seat < len(c.rows[row])
}

func (c *SeatingChart) locate(studentID string) (SeatAddress, bool) {
	for r, row := range c.rows {
		for s, occupant := range row {
			if occupant != nil && occupant.ID == studentID {
				return SeatAddress{Row: r, Seat: s}, true
			}
		}
	}
	return SeatAddress{}, false
}

func (c *SeatingChart) replaceCell(row, seat int, student *StudentRef) {
	replaced := append([]*StudentRef(nil), c.rows[row]...)
	replaced[seat] = student
	c.rows[row] = replaced
}
