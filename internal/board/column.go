package board

import "slices"

// Column is an ordered, named sequence of cards. Position in Cards is the
// display/stack order.
type Column struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Cards []*Card `json:"cards"`
}

// NewColumn returns an empty column.
func NewColumn(id int64, name string) *Column {
	return &Column{ID: id, Name: name, Cards: []*Card{}}
}

// Len returns the number of cards, archived ones included.
func (c *Column) Len() int {
	return len(c.Cards)
}

func (c *Column) card(pos int) (*Card, error) {
	if err := checkIndex(KindCard, pos, len(c.Cards)); err != nil {
		return nil, err
	}
	return c.Cards[pos], nil
}

// moveSource resolves the card a move acts on. A position inside the stored
// sequence addresses that card, as UpdateCard and DeleteCard do. A position
// past the end is stale and falls back to the last live card; only a negative
// position or a stale position on a column without live cards errors.
func (c *Column) moveSource(pos int) (*Card, error) {
	if pos < 0 {
		return nil, &IndexError{Kind: KindCard, Position: pos, Length: len(c.Cards)}
	}
	if pos < len(c.Cards) {
		return c.Cards[pos], nil
	}
	for i := len(c.Cards) - 1; i >= 0; i-- {
		if !c.Cards[i].Archived {
			return c.Cards[i], nil
		}
	}
	return nil, &IndexError{Kind: KindCard, Position: pos, Length: len(c.Cards)}
}

// remove drops card from the sequence by identity.
func (c *Column) remove(card *Card) bool {
	i := slices.Index(c.Cards, card)
	if i < 0 {
		return false
	}
	c.Cards = slices.Delete(c.Cards, i, i+1)
	return true
}

// insert places card at pos, clamped to [0, Len()].
func (c *Column) insert(pos int, card *Card) {
	pos = min(max(pos, 0), len(c.Cards))
	c.Cards = slices.Insert(c.Cards, pos, card)
}

func (c *Column) lastCard() (*Card, error) {
	if len(c.Cards) == 0 {
		return nil, &IndexError{Kind: KindCard, Position: -1, Length: 0}
	}
	return c.Cards[len(c.Cards)-1], nil
}
