package board

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
)

// Action names the kind of mutation a LogEntry records.
type Action string

const (
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionMove   Action = "move"
)

// SubjectCard is the only subject type currently logged.
const SubjectCard = "card"

// LogEntry is an immutable record of one completed mutation.
//
// Seq is the 1-based position of the entry in the board log and survives the
// reversal done by SortBoard. Column ids recorded by the positional helpers
// (create, edit, delete) are the 1-based column numbers, not Column.ID.
type LogEntry struct {
	ID                  ulid.ULID `json:"id"`
	Seq                 int64     `json:"seq"`
	Action              Action    `json:"action"`
	SubjectType         string    `json:"subject_type"`
	BeforeContent       *string   `json:"before_content"`
	AfterContent        *string   `json:"after_content"`
	BeforeSubjectID     *int64    `json:"before_subject_id"`
	AfterSubjectID      *int64    `json:"after_subject_id"`
	SourceColumnID      int64     `json:"source_column_id"`
	DestinationColumnID int64     `json:"destination_column_id"`
	ActorUserID         int64     `json:"actor_user_id"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// logFields is the fully resolved field set every log helper reduces to.
type logFields struct {
	action          Action
	subjectType     string
	beforeContent   *string
	afterContent    *string
	beforeSubjectID *int64
	afterSubjectID  *int64
	fromColumnID    int64
	toColumnID      int64
	actor           User
}

// AddLog records a mutation of the last card in the column at colPos. It is
// meant to follow AddCard, which always appends.
func (b *Board) AddLog(action Action, subjectType string, actor User, content string, colPos int) error {
	col, err := b.Column(colPos)
	if err != nil {
		return err
	}
	card, err := col.lastCard()
	if err != nil {
		return err
	}
	b.appendLog(logFields{
		action:         action,
		subjectType:    subjectType,
		afterContent:   &content,
		afterSubjectID: ptr(card.ID),
		fromColumnID:   columnNumber(colPos),
		toColumnID:     columnNumber(colPos),
		actor:          actor,
	})
	return nil
}

// AddLogAt records a mutation of the card at (colPos, cardPos). The card's
// current content becomes the before-content, so it must be called before the
// card is changed. A nil content records an absent after-content.
func (b *Board) AddLogAt(action Action, subjectType string, actor User, content *string, colPos, cardPos int) error {
	card, err := b.CardAt(colPos, cardPos)
	if err != nil {
		return err
	}
	b.appendLog(logFields{
		action:          action,
		subjectType:     subjectType,
		beforeContent:   ptr(card.Content),
		afterContent:    content,
		beforeSubjectID: ptr(card.ID),
		afterSubjectID:  ptr(card.ID),
		fromColumnID:    columnNumber(colPos),
		toColumnID:      columnNumber(colPos),
		actor:           actor,
	})
	return nil
}

// AddLogFor records a mutation from already resolved identifiers.
func (b *Board) AddLogFor(action Action, subjectType string, actor User, content string, cardID, fromColumnID, toColumnID int64) {
	b.appendLog(logFields{
		action:          action,
		subjectType:     subjectType,
		beforeContent:   &content,
		afterContent:    &content,
		beforeSubjectID: &cardID,
		afterSubjectID:  &cardID,
		fromColumnID:    fromColumnID,
		toColumnID:      toColumnID,
		actor:           actor,
	})
}

// LastLog returns the most recently appended entry.
func (b *Board) LastLog() (LogEntry, error) {
	if len(b.logs) == 0 {
		return LogEntry{}, ErrNoLogs
	}
	if b.reversed {
		return b.logs[0], nil
	}
	return b.logs[len(b.logs)-1], nil
}

func (b *Board) appendLog(f logFields) {
	entry := LogEntry{
		ID:                  ulid.Make(),
		Seq:                 int64(len(b.logs)) + 1,
		Action:              f.action,
		SubjectType:         f.subjectType,
		BeforeContent:       f.beforeContent,
		AfterContent:        f.afterContent,
		BeforeSubjectID:     f.beforeSubjectID,
		AfterSubjectID:      f.afterSubjectID,
		SourceColumnID:      f.fromColumnID,
		DestinationColumnID: f.toColumnID,
		ActorUserID:         f.actor.ID,
		OccurredAt:          b.now(),
	}
	if b.reversed {
		b.logs = slices.Insert(b.logs, 0, entry)
		return
	}
	b.logs = append(b.logs, entry)
}

// columnNumber converts a zero-based column position to the 1-based column
// numbering used in positional log entries.
func columnNumber(pos int) int64 {
	return int64(pos) + 1
}

func ptr[T any](v T) *T {
	return &v
}
