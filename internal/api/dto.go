package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/kanbo/internal/board"
	"github.com/starford/kanbo/internal/boardservice"
	"github.com/starford/kanbo/internal/store"
)

const maxContentLength = 10000

// CardContentRequest is the request body for creating or editing a card.
type CardContentRequest struct {
	Content string `json:"content" example:"Write release notes" validate:"required"`
}

// Validate checks the card content.
func (r CardContentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.RuneLength(1, maxContentLength)),
	)
}

// MoveCardRequest is the request body for moving a card.
type MoveCardRequest struct {
	DestinationColumn   *int `json:"destination_column" example:"1" validate:"required"`
	DestinationPosition *int `json:"destination_position" example:"0" validate:"required"`
}

// Validate checks that both destination fields are present.
func (r MoveCardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DestinationColumn, validation.NotNil),
		validation.Field(&r.DestinationPosition, validation.NotNil),
	)
}

func (r MoveCardRequest) toBoard() board.MoveRequest {
	return board.MoveRequest{
		DestinationColumn:   *r.DestinationColumn,
		DestinationPosition: *r.DestinationPosition,
	}
}

// BoardListResponse wraps board listings.
type BoardListResponse struct {
	Boards []store.BoardSummary `json:"boards" validate:"required"`
}

// HistoryResponse wraps log entries, most recent first.
type HistoryResponse struct {
	Logs []board.LogEntry `json:"logs" validate:"required"`
}

// SearchResponse wraps card search hits.
type SearchResponse struct {
	Results []store.CardHit `json:"results" validate:"required"`
}

// MutationResponse is returned by every card mutation (aliased from the service layer).
type MutationResponse = boardservice.MutationResult
