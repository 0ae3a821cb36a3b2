package store

import "database/sql"

// CardHit is one search result.
type CardHit struct {
	CardID   int64  `json:"card_id"`
	ColumnID int64  `json:"column_id"`
	Snippet  string `json:"snippet"`
}

type ftsCard struct {
	id       int64
	columnID int64
	content  string
}

func scanHits(rows *sql.Rows) ([]CardHit, error) {
	defer rows.Close()
	out := []CardHit{}
	for rows.Next() {
		var h CardHit
		if err := rows.Scan(&h.CardID, &h.ColumnID, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
