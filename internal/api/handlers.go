package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/kanbo/internal/boardservice"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *boardservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *boardservice.Service) *Handler {
	return &Handler{svc: svc}
}

func boardID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "boardID"), 10, 64)
	return id, err == nil
}

// position parses a zero-based positional path parameter. Negative values
// are passed through so the board reports them as out of range.
func position(r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	return v, err == nil
}

// cardPath parses the board, column and card path parameters.
func cardPath(w http.ResponseWriter, r *http.Request) (id int64, col, card int, ok bool) {
	if id, ok = boardID(r); !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid board id"))
		return
	}
	if col, ok = position(r, "col"); !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid column position"))
		return
	}
	if chi.URLParam(r, "card") == "" {
		return
	}
	if card, ok = position(r, "card"); !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid card position"))
	}
	return
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// ListBoards handles GET /api/boards.
//
//	@Summary		List boards with column and card counts
//	@Tags			boards
//	@Produce		json
//	@Success		200	{object}	BoardListResponse
//	@Security		BearerAuth
//	@Router			/boards [get]
func (h *Handler) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.svc.ListBoards(r.Context())
	if err != nil {
		writeError(w, "list boards", err)
		return
	}
	writeJSON(w, http.StatusOK, BoardListResponse{Boards: boards})
}

// GetBoard handles GET /api/boards/{boardID}.
//
//	@Summary		Get a board; archived=true returns the raw structure
//	@Description	The default view hides archived cards and orders cards by id, so it does
//	@Description	not show where a move placed a card. archived=true returns cards in stored
//	@Description	order, which is the order card positions address.
//	@Tags			boards
//	@Produce		json
//	@Param			boardID		path		int		true	"Board id"
//	@Param			archived	query		bool	false	"Include archived cards, log oldest first"
//	@Success		200			{object}	board.Board
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{boardID} [get]
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := boardID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid board id"))
		return
	}
	archived, _ := strconv.ParseBool(r.URL.Query().Get("archived"))
	b, err := h.svc.GetBoard(r.Context(), id, archived)
	if err != nil {
		writeError(w, "get board", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// History handles GET /api/boards/{boardID}/logs.
//
//	@Summary		List board log entries, most recent first
//	@Tags			logs
//	@Produce		json
//	@Param			boardID	path		int	true	"Board id"
//	@Param			limit	query		int	false	"Max entries (default 50)"
//	@Success		200		{object}	HistoryResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/logs [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := boardID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid board id"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		writeError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Logs: logs})
}

// LastLog handles GET /api/boards/{boardID}/logs/last.
//
//	@Summary		Get the most recent log entry
//	@Tags			logs
//	@Produce		json
//	@Param			boardID	path		int	true	"Board id"
//	@Success		200		{object}	board.LogEntry
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/logs/last [get]
func (h *Handler) LastLog(w http.ResponseWriter, r *http.Request) {
	id, ok := boardID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid board id"))
		return
	}
	entry, err := h.svc.LastLog(r.Context(), id)
	if err != nil {
		writeError(w, "last log", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// SearchCards handles GET /api/boards/{boardID}/search.
//
//	@Summary		Full-text search over live cards
//	@Tags			search
//	@Produce		json
//	@Param			boardID	path		int		true	"Board id"
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results (default 20)"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/search [get]
func (h *Handler) SearchCards(w http.ResponseWriter, r *http.Request) {
	id, ok := boardID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid board id"))
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	hits, err := h.svc.SearchCards(r.Context(), id, q.Get("q"), limit)
	if err != nil {
		writeError(w, "search cards", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: hits})
}

// CreateCard handles POST /api/boards/{boardID}/columns/{col}/cards.
//
//	@Summary		Append a card to a column
//	@Tags			cards
//	@Accept			json
//	@Produce		json
//	@Param			boardID	path		int					true	"Board id"
//	@Param			col		path		int					true	"Column position"
//	@Param			body	body		CardContentRequest	true	"Card content"
//	@Success		201		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/columns/{col}/cards [post]
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	id, col, _, ok := cardPath(w, r)
	if !ok {
		return
	}
	var req CardContentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := actorFrom(r.Context())
	res, err := h.svc.CreateCard(r.Context(), id, col, req.Content, actor)
	if err != nil {
		writeError(w, "create card", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// UpdateCard handles PUT /api/boards/{boardID}/columns/{col}/cards/{card}.
//
//	@Summary		Replace the content of a card
//	@Description	Card positions address the stored sequence, archived cards included;
//	@Description	GET /boards/{boardID}?archived=true shows them.
//	@Tags			cards
//	@Accept			json
//	@Produce		json
//	@Param			boardID	path		int					true	"Board id"
//	@Param			col		path		int					true	"Column position"
//	@Param			card	path		int					true	"Card position"
//	@Param			body	body		CardContentRequest	true	"New content"
//	@Success		200		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/columns/{col}/cards/{card} [put]
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	id, col, card, ok := cardPath(w, r)
	if !ok {
		return
	}
	var req CardContentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := actorFrom(r.Context())
	res, err := h.svc.UpdateCard(r.Context(), id, col, card, req.Content, actor)
	if err != nil {
		writeError(w, "update card", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteCard handles DELETE /api/boards/{boardID}/columns/{col}/cards/{card}.
//
//	@Summary		Archive a card
//	@Description	Card positions address the stored sequence, archived cards included;
//	@Description	GET /boards/{boardID}?archived=true shows them.
//	@Tags			cards
//	@Produce		json
//	@Param			boardID	path		int	true	"Board id"
//	@Param			col		path		int	true	"Column position"
//	@Param			card	path		int	true	"Card position"
//	@Success		200		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/columns/{col}/cards/{card} [delete]
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, col, card, ok := cardPath(w, r)
	if !ok {
		return
	}
	actor, _ := actorFrom(r.Context())
	res, err := h.svc.DeleteCard(r.Context(), id, col, card, actor)
	if err != nil {
		writeError(w, "delete card", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// MoveCard handles POST /api/boards/{boardID}/columns/{col}/cards/{card}/move.
//
//	@Summary		Move a card to another column or position
//	@Description	Card positions address the stored sequence, archived cards included;
//	@Description	GET /boards/{boardID}?archived=true shows them.
//	@Description	A source position past the end of the column falls back to the last live
//	@Description	card. The default board view orders cards by id, so destination_position
//	@Description	is only visible with archived=true.
//	@Tags			cards
//	@Accept			json
//	@Produce		json
//	@Param			boardID	path		int				true	"Board id"
//	@Param			col		path		int				true	"Source column position"
//	@Param			card	path		int				true	"Source card position"
//	@Param			body	body		MoveCardRequest	true	"Destination"
//	@Success		200		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/columns/{col}/cards/{card}/move [post]
func (h *Handler) MoveCard(w http.ResponseWriter, r *http.Request) {
	id, col, card, ok := cardPath(w, r)
	if !ok {
		return
	}
	var req MoveCardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := actorFrom(r.Context())
	res, err := h.svc.MoveCard(r.Context(), id, col, card, req.toBoard(), actor)
	if err != nil {
		writeError(w, "move card", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
