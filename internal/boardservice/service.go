// Package boardservice coordinates the board aggregate with persistence.
// It is the single-writer boundary: mutations of one board run one at a time,
// mutations of different boards run in parallel.
package boardservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/kanbo/internal/apperr"
	"github.com/starford/kanbo/internal/board"
	"github.com/starford/kanbo/internal/metrics"
	"github.com/starford/kanbo/internal/store"
)

// MutationResult is returned by every card mutation: the display projection
// of the board after the change and the log entry it produced.
type MutationResult struct {
	Board *board.Board   `json:"board"`
	Log   board.LogEntry `json:"log"`
}

// Service coordinates board mutations, storage and metrics.
type Service struct {
	db      store.BoardStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	locks   *boardLocks
	clock   func() time.Time
}

// NewService creates a new board service. m may be nil.
func NewService(db store.BoardStore, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, metrics: m, logger: logger, locks: newBoardLocks()}
}

// SetClock replaces the time source used for card and log timestamps.
func (s *Service) SetClock(clock func() time.Time) {
	s.clock = clock
}

// ListBoards returns every board with column and live card counts.
func (s *Service) ListBoards(ctx context.Context) ([]store.BoardSummary, error) {
	return s.db.ListBoards(ctx)
}

// GetBoard returns the board display projection. With includeArchived the raw
// structure is returned instead: archived cards in place, log oldest first.
func (s *Service) GetBoard(ctx context.Context, id int64, includeArchived bool) (*board.Board, error) {
	b, err := s.db.LoadBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	if includeArchived {
		return b, nil
	}
	return b.SortBoard(), nil
}

// History returns up to limit log entries, most recent first.
func (s *Service) History(ctx context.Context, id int64, limit int) ([]board.LogEntry, error) {
	return s.db.History(ctx, id, limit)
}

// LastLog returns the most recent log entry of a board.
func (s *Service) LastLog(ctx context.Context, id int64) (board.LogEntry, error) {
	b, err := s.db.LoadBoard(ctx, id)
	if err != nil {
		return board.LogEntry{}, err
	}
	return b.LastLog()
}

// SearchCards finds live cards of a board whose content matches query.
func (s *Service) SearchCards(ctx context.Context, id int64, query string, limit int) ([]store.CardHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("boardservice: empty search query: %w", apperr.ErrInvalidInput)
	}
	return s.db.SearchCards(ctx, id, query, limit)
}

// CreateCard appends a card to the column at colPos and logs its creation.
func (s *Service) CreateCard(ctx context.Context, boardID int64, colPos int, content string, actor board.User) (*MutationResult, error) {
	return s.mutate(ctx, boardID, board.ActionCreate, actor, func(b *board.Board) error {
		if _, err := b.AddCard(colPos, content, actor); err != nil {
			return err
		}
		return b.AddLog(board.ActionCreate, board.SubjectCard, actor, content, colPos)
	})
}

// UpdateCard replaces the content of the card at (colPos, cardPos).
func (s *Service) UpdateCard(ctx context.Context, boardID int64, colPos, cardPos int, content string, actor board.User) (*MutationResult, error) {
	return s.mutate(ctx, boardID, board.ActionEdit, actor, func(b *board.Board) error {
		return b.UpdateCard(colPos, cardPos, content, actor)
	})
}

// DeleteCard archives the card at (colPos, cardPos).
func (s *Service) DeleteCard(ctx context.Context, boardID int64, colPos, cardPos int, actor board.User) (*MutationResult, error) {
	return s.mutate(ctx, boardID, board.ActionDelete, actor, func(b *board.Board) error {
		return b.DeleteCard(colPos, cardPos, actor)
	})
}

// MoveCard moves the card at (colPos, cardPos) to the destination in req.
func (s *Service) MoveCard(ctx context.Context, boardID int64, colPos, cardPos int, req board.MoveRequest, actor board.User) (*MutationResult, error) {
	return s.mutate(ctx, boardID, board.ActionMove, actor, func(b *board.Board) error {
		return b.MoveCard(colPos, cardPos, actor, req)
	})
}

func (s *Service) mutate(ctx context.Context, boardID int64, action board.Action, actor board.User, fn func(*board.Board) error) (*MutationResult, error) {
	start := time.Now()
	unlock := s.locks.lock(boardID)
	defer unlock()

	res, err := s.apply(ctx, boardID, fn)
	s.metrics.ObserveMutation(string(action), start, err)
	if err != nil {
		s.logger.Debug("board: mutation rejected",
			slog.Int64("board_id", boardID),
			slog.String("action", string(action)),
			slog.String("error", err.Error()))
		return nil, err
	}
	s.logger.Info("board: card mutated",
		slog.Int64("board_id", boardID),
		slog.String("action", string(action)),
		slog.Int64("actor", actor.ID),
		slog.Int64("seq", res.Log.Seq))
	return res, nil
}

func (s *Service) apply(ctx context.Context, boardID int64, fn func(*board.Board) error) (*MutationResult, error) {
	b, err := s.db.LoadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if s.clock != nil {
		b.SetClock(s.clock)
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := s.db.SaveBoard(ctx, b); err != nil {
		return nil, fmt.Errorf("boardservice: save board %d: %w", boardID, err)
	}
	last, err := b.LastLog()
	if err != nil {
		return nil, err
	}
	return &MutationResult{Board: b.SortBoard(), Log: last}, nil
}
