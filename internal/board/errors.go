package board

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is matched by every *IndexError.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNoLogs is returned by LastLog on a board that was never mutated.
	ErrNoLogs = errors.New("board has no log entries")
)

// Position kinds reported by IndexError.
const (
	KindColumn = "column"
	KindCard   = "card"
)

// IndexError reports a column or card position that does not address an
// existing element at call time.
type IndexError struct {
	Kind     string
	Position int
	Length   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s position %d out of range (length %d)", e.Kind, e.Position, e.Length)
}

// Is makes errors.Is(err, ErrIndexOutOfRange) hold for any IndexError.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

func checkIndex(kind string, pos, length int) error {
	if pos < 0 || pos >= length {
		return &IndexError{Kind: kind, Position: pos, Length: length}
	}
	return nil
}
