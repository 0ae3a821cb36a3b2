// Package board implements the kanban board aggregate: an ordered sequence of
// columns holding ordered cards, plus an append-only audit log of every
// mutation.
//
// A Board does no locking and no I/O. Callers serialise access to a given
// Board instance; different instances share nothing.
package board

import (
	"encoding/json"
	"slices"
	"time"
)

// Board is the aggregate root. All card changes and all log entries are made
// through its methods.
type Board struct {
	ID   int64
	Name string

	columns    []*Column
	logs       []LogEntry
	lastCardID int64
	reversed   bool
	clock      func() time.Time
}

// MoveRequest names the destination of a move. DestinationPosition is an
// insertion index; values below zero insert at the front and values past the
// end append.
type MoveRequest struct {
	DestinationColumn   int `json:"destination_column"`
	DestinationPosition int `json:"destination_position"`
}

// NewBoard returns an empty board with no columns and no log.
func NewBoard(id int64, name string) *Board {
	return &Board{ID: id, Name: name}
}

// Restore rebuilds a board from stored state without producing log entries.
// Logs must be in chronological order.
func Restore(id int64, name string, columns []*Column, logs []LogEntry) *Board {
	b := &Board{ID: id, Name: name, columns: columns, logs: logs}
	for _, col := range columns {
		for _, card := range col.Cards {
			b.lastCardID = max(b.lastCardID, card.ID)
		}
	}
	return b
}

// SetClock replaces the time source. A nil clock restores time.Now.
func (b *Board) SetClock(clock func() time.Time) {
	b.clock = clock
}

func (b *Board) now() time.Time {
	if b.clock != nil {
		return b.clock()
	}
	return time.Now().UTC()
}

// AttachColumn appends pre-existing column structure to the board.
func (b *Board) AttachColumn(col *Column) {
	for _, card := range col.Cards {
		b.lastCardID = max(b.lastCardID, card.ID)
	}
	b.columns = append(b.columns, col)
}

// Columns returns the column sequence. The slice is shared with the board.
func (b *Board) Columns() []*Column {
	return b.columns
}

// Logs returns the log sequence, oldest first until SortBoard reverses it.
func (b *Board) Logs() []LogEntry {
	return b.logs
}

// Column returns the column at pos.
func (b *Board) Column(pos int) (*Column, error) {
	if err := checkIndex(KindColumn, pos, len(b.columns)); err != nil {
		return nil, err
	}
	return b.columns[pos], nil
}

// CardAt returns the card at (colPos, cardPos).
func (b *Board) CardAt(colPos, cardPos int) (*Card, error) {
	col, err := b.Column(colPos)
	if err != nil {
		return nil, err
	}
	return col.card(cardPos)
}

// CardCount returns the number of cards across all columns, archived ones
// included.
func (b *Board) CardCount() int {
	n := 0
	for _, col := range b.columns {
		n += col.Len()
	}
	return n
}

// AddCard appends a new card to the column at colPos and returns it. It does
// not log; the caller follows up with AddLog(ActionCreate, ...).
func (b *Board) AddCard(colPos int, content string, actor User) (*Card, error) {
	col, err := b.Column(colPos)
	if err != nil {
		return nil, err
	}
	now := b.now()
	b.lastCardID++
	card := &Card{
		ID:        b.lastCardID,
		Content:   content,
		CreatedBy: actor.ID,
		UpdatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	col.Cards = append(col.Cards, card)
	return card, nil
}

// UpdateCard replaces the content of the card at (colPos, cardPos) and logs
// an edit carrying the previous content.
func (b *Board) UpdateCard(colPos, cardPos int, content string, actor User) error {
	card, err := b.CardAt(colPos, cardPos)
	if err != nil {
		return err
	}
	if err := b.AddLogAt(ActionEdit, SubjectCard, actor, &content, colPos, cardPos); err != nil {
		return err
	}
	card.Content = content
	card.touch(b.now(), actor)
	return nil
}

// DeleteCard archives the card at (colPos, cardPos). The card stays in its
// column; SortBoard hides it.
func (b *Board) DeleteCard(colPos, cardPos int, actor User) error {
	card, err := b.CardAt(colPos, cardPos)
	if err != nil {
		return err
	}
	if err := b.AddLogAt(ActionDelete, SubjectCard, actor, nil, colPos, cardPos); err != nil {
		return err
	}
	card.archive(b.now(), actor)
	return nil
}

// MoveCard moves a card from the column at srcColPos to the destination in
// req. A stale srcCardPos resolves to the last live card of the source
// column instead of failing. The log entry is written before the card
// changes columns.
func (b *Board) MoveCard(srcColPos, srcCardPos int, actor User, req MoveRequest) error {
	from, err := b.Column(srcColPos)
	if err != nil {
		return err
	}
	to, err := b.Column(req.DestinationColumn)
	if err != nil {
		return err
	}
	card, err := from.moveSource(srcCardPos)
	if err != nil {
		return err
	}

	b.AddLogFor(ActionMove, SubjectCard, actor, card.Content, card.ID, from.ID, to.ID)

	from.remove(card)
	to.insert(req.DestinationPosition, card)
	card.touch(b.now(), actor)
	return nil
}

// SortBoard turns the board into its display projection in place: archived
// cards are dropped from every column, the rest are sorted by Card.Compare,
// and the log is reversed so the most recent entry is first. Callers that
// need the raw structure must read it first.
func (b *Board) SortBoard() *Board {
	for _, col := range b.columns {
		visible := make([]*Card, 0, len(col.Cards))
		for _, card := range col.Cards {
			if !card.Archived {
				visible = append(visible, card)
			}
		}
		slices.SortStableFunc(visible, (*Card).Compare)
		col.Cards = visible
	}
	slices.Reverse(b.logs)
	b.reversed = !b.reversed
	return b
}

type boardJSON struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	Columns []*Column  `json:"columns"`
	Logs    []LogEntry `json:"logs"`
}

// MarshalJSON renders the board with its columns and log in current order.
func (b *Board) MarshalJSON() ([]byte, error) {
	cols := b.columns
	if cols == nil {
		cols = []*Column{}
	}
	logs := b.logs
	if logs == nil {
		logs = []LogEntry{}
	}
	return json.Marshal(boardJSON{ID: b.ID, Name: b.Name, Columns: cols, Logs: logs})
}
