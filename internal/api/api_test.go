package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/kanbo/internal/board"
	"github.com/starford/kanbo/internal/boardservice"
	"github.com/starford/kanbo/internal/store"
	"github.com/starford/kanbo/internal/testutil"
)

// testEnv sets up a temp SQLite DB with one two-column board (id 1), the
// service, and the router. An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()

	db := testutil.TestStore(t)
	err := db.UpsertLayout(context.Background(), store.LayoutRow{
		BoardID: 1,
		Name:    "Team",
		Path:    "team.md",
		Columns: []store.ColumnRow{{ID: 10, Name: "To Do"}, {ID: 11, Name: "Done"}},
	})
	if err != nil {
		t.Fatalf("UpsertLayout: %v", err)
	}

	svc := boardservice.NewService(db, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewRouter(svc, authToken != "", authToken)
}

type boardBody struct {
	ID      int64            `json:"id"`
	Name    string           `json:"name"`
	Columns []*board.Column  `json:"columns"`
	Logs    []board.LogEntry `json:"logs"`
}

type mutationBody struct {
	Board boardBody      `json:"board"`
	Log   board.LogEntry `json:"log"`
}

// do sends a request as user 1 and returns the recorder.
func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("X-User-ID", "1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createCard(t *testing.T, router http.Handler, col, content string) mutationBody {
	t.Helper()
	w := do(t, router, http.MethodPost, "/boards/1/columns/"+col+"/cards", map[string]string{"content": content})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var res mutationBody
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return res
}

func TestCreateAndGetBoard(t *testing.T) {
	router := testEnv(t, "")

	res := createCard(t, router, "0", "buy milk")
	if res.Log.Action != board.ActionCreate || res.Log.ActorUserID != 1 {
		t.Errorf("log = %+v", res.Log)
	}

	w := do(t, router, http.MethodGet, "/boards/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var b boardBody
	_ = json.Unmarshal(w.Body.Bytes(), &b)
	if b.Name != "Team" || len(b.Columns) != 2 {
		t.Fatalf("board = %+v", b)
	}
	if len(b.Columns[0].Cards) != 1 || b.Columns[0].Cards[0].Content != "buy milk" {
		t.Errorf("cards = %+v", b.Columns[0].Cards)
	}
	if b.Columns[0].Cards[0].CreatedBy != 1 {
		t.Errorf("created_by = %d", b.Columns[0].Cards[0].CreatedBy)
	}
}

func TestUpdateCard(t *testing.T) {
	router := testEnv(t, "")
	createCard(t, router, "0", "buy milk")

	w := do(t, router, http.MethodPut, "/boards/1/columns/0/cards/0", map[string]string{"content": "buy oat milk"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var res mutationBody
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Log.Action != board.ActionEdit {
		t.Errorf("action = %q", res.Log.Action)
	}
	if res.Log.BeforeContent == nil || *res.Log.BeforeContent != "buy milk" {
		t.Errorf("before = %v", res.Log.BeforeContent)
	}
	if got := res.Board.Columns[0].Cards[0].Content; got != "buy oat milk" {
		t.Errorf("content = %q", got)
	}
	if len(res.Board.Logs) != 2 || res.Board.Logs[0].Action != board.ActionEdit {
		t.Errorf("logs not most recent first: %+v", res.Board.Logs)
	}
}

func TestDeleteCard_ArchivedParam(t *testing.T) {
	router := testEnv(t, "")
	createCard(t, router, "0", "a")

	w := do(t, router, http.MethodDelete, "/boards/1/columns/0/cards/0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/boards/1", nil)
	var b boardBody
	_ = json.Unmarshal(w.Body.Bytes(), &b)
	if len(b.Columns[0].Cards) != 0 {
		t.Errorf("archived card visible: %+v", b.Columns[0].Cards)
	}

	w = do(t, router, http.MethodGet, "/boards/1?archived=true", nil)
	b = boardBody{}
	_ = json.Unmarshal(w.Body.Bytes(), &b)
	if len(b.Columns[0].Cards) != 1 || !b.Columns[0].Cards[0].Archived {
		t.Errorf("raw cards = %+v", b.Columns[0].Cards)
	}
}

// columnContents fetches the board and returns the card contents of column 0.
func columnContents(t *testing.T, router http.Handler, target string) []string {
	t.Helper()
	w := do(t, router, http.MethodGet, target, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var b boardBody
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, c := range b.Columns[0].Cards {
		out = append(out, c.Content)
	}
	return out
}

func TestUpdateCard_PositionCountsArchivedCards(t *testing.T) {
	router := testEnv(t, "")
	createCard(t, router, "0", "a")
	createCard(t, router, "0", "b")
	if w := do(t, router, http.MethodDelete, "/boards/1/columns/0/cards/0", nil); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	// Position 0 is still the archived card, not the first visible one.
	w := do(t, router, http.MethodPut, "/boards/1/columns/0/cards/0", map[string]string{"content": "a2"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := columnContents(t, router, "/boards/1"); len(got) != 1 || got[0] != "b" {
		t.Errorf("display view = %v, want [b]", got)
	}
	if got := columnContents(t, router, "/boards/1?archived=true"); len(got) != 2 || got[0] != "a2" || got[1] != "b" {
		t.Errorf("stored view = %v, want [a2 b]", got)
	}
}

func TestMoveCard_OrderVisibleWithArchivedParam(t *testing.T) {
	router := testEnv(t, "")
	createCard(t, router, "0", "c1")
	createCard(t, router, "0", "c2")

	w := do(t, router, http.MethodPost, "/boards/1/columns/0/cards/1/move",
		map[string]int{"destination_column": 0, "destination_position": 0})
	if w.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := columnContents(t, router, "/boards/1"); len(got) != 2 || got[0] != "c1" {
		t.Errorf("display view = %v, want id order [c1 c2]", got)
	}
	if got := columnContents(t, router, "/boards/1?archived=true"); len(got) != 2 || got[0] != "c2" || got[1] != "c1" {
		t.Errorf("stored view = %v, want [c2 c1]", got)
	}
}

func TestMoveCard(t *testing.T) {
	router := testEnv(t, "")
	createCard(t, router, "0", "c1")
	createCard(t, router, "0", "c2")

	w := do(t, router, http.MethodPost, "/boards/1/columns/0/cards/0/move",
		map[string]int{"destination_column": 1, "destination_position": 0})
	if w.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}
	var res mutationBody
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Board.Columns[0].Cards) != 1 || res.Board.Columns[0].Cards[0].Content != "c2" {
		t.Errorf("source column = %+v", res.Board.Columns[0].Cards)
	}
	if len(res.Board.Columns[1].Cards) != 1 || res.Board.Columns[1].Cards[0].Content != "c1" {
		t.Errorf("destination column = %+v", res.Board.Columns[1].Cards)
	}
	if res.Log.SourceColumnID != 10 || res.Log.DestinationColumnID != 11 {
		t.Errorf("log columns = %d -> %d", res.Log.SourceColumnID, res.Log.DestinationColumnID)
	}
}

func TestMoveCard_MissingDestination(t *testing.T) {
	router := testEnv(t, "")
	createCard(t, router, "0", "c1")

	w := do(t, router, http.MethodPost, "/boards/1/columns/0/cards/0/move", map[string]int{"destination_position": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	router := testEnv(t, "")

	cases := []struct {
		name, method, target string
		body                 any
	}{
		{"create bad column", http.MethodPost, "/boards/1/columns/5/cards", map[string]string{"content": "x"}},
		{"update bad card", http.MethodPut, "/boards/1/columns/0/cards/3", map[string]string{"content": "x"}},
		{"delete negative card", http.MethodDelete, "/boards/1/columns/0/cards/-1", nil},
		{"move from empty column", http.MethodPost, "/boards/1/columns/0/cards/0/move", map[string]int{"destination_column": 1, "destination_position": 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, tc.method, tc.target, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestInvalidContent(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/boards/1/columns/0/cards", map[string]string{"content": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty content = %d, want 400", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/boards/1/columns/0/cards", bytes.NewReader([]byte("{not json")))
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON = %d, want 400", rec.Code)
	}
}

func TestActorRequired(t *testing.T) {
	router := testEnv(t, "")

	for _, id := range []string{"", "abc", "0"} {
		body, _ := json.Marshal(map[string]string{"content": "x"})
		req := httptest.NewRequest(http.MethodPost, "/boards/1/columns/0/cards", bytes.NewReader(body))
		if id != "" {
			req.Header.Set("X-User-ID", id)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("X-User-ID %q: status = %d, want 401", id, w.Code)
		}
	}

	// Reads need no actor.
	req := httptest.NewRequest(http.MethodGet, "/boards/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("read without actor = %d, want 200", w.Code)
	}
}

func TestBoardNotFound(t *testing.T) {
	router := testEnv(t, "")

	for _, target := range []string{"/boards/99", "/boards/99/logs", "/boards/99/logs/last"} {
		w := do(t, router, http.MethodGet, target, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, w.Code)
		}
	}
	w := do(t, router, http.MethodPost, "/boards/99/columns/0/cards", map[string]string{"content": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("create on missing board = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodGet, "/boards/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric board id = %d, want 400", w.Code)
	}
}

func TestLogsEndpoints(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/boards/1/logs/last", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("last log on fresh board = %d, want 404", w.Code)
	}

	createCard(t, router, "0", "a")
	createCard(t, router, "1", "b")

	w = do(t, router, http.MethodGet, "/boards/1/logs?limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logs status = %d", w.Code)
	}
	var hist HistoryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &hist)
	if len(hist.Logs) != 1 || hist.Logs[0].Seq != 2 {
		t.Errorf("history = %+v", hist.Logs)
	}

	w = do(t, router, http.MethodGet, "/boards/1/logs/last", nil)
	var last board.LogEntry
	_ = json.Unmarshal(w.Body.Bytes(), &last)
	if last.Seq != 2 || *last.AfterContent != "b" {
		t.Errorf("last = %+v", last)
	}
}

func TestListBoards(t *testing.T) {
	router := testEnv(t, "")
	createCard(t, router, "0", "a")

	w := do(t, router, http.MethodGet, "/boards", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp BoardListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Boards) != 1 || resp.Boards[0].Cards != 1 || resp.Boards[0].Columns != 2 {
		t.Errorf("boards = %+v", resp.Boards)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")
	createCard(t, router, "0", "fix login bug")
	createCard(t, router, "0", "write docs")

	w := do(t, router, http.MethodGet, "/boards/1/search?q=login", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].CardID != 1 {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/boards/1/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/boards", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/boards", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/boards", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/boards", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("disabled auth = %d, want 200", w.Code)
	}
}
