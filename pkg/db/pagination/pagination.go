// Package pagination implements opaque cursor paging over snowflake-keyed
// tables. Snowflake ids are time-ordered, so paging descending by id walks
// newest to oldest without an extra sort column.
package pagination

import (
	"encoding/base64"
	"encoding/json"
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=25"`
}

const maxPageSize = 250

// Limit clamps the requested page size to [1, 250].
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return 25
	case p.PageSize > maxPageSize:
		return maxPageSize
	default:
		return p.PageSize
	}
}

type Cursor struct {
	ID string `json:"id,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

// BuildPage trims an over-fetched result (limit+1 rows) down to the page and
// derives the next-page token from the last row kept.
func BuildPage[T any](rows []T, limit int, cursorID func(T) string) ([]T, *PageInfo, error) {
	if len(rows) == 0 {
		return rows, &PageInfo{}, nil
	}

	hasMore := false
	if len(rows) > limit {
		hasMore = true
		rows = rows[:limit]
	}

	info := &PageInfo{HasMore: hasMore}
	if hasMore {
		token, err := EncodeCursor(Cursor{ID: cursorID(rows[len(rows)-1])})
		if err != nil {
			return nil, nil, err
		}
		info.NextPageToken = token
	}
	return rows, info, nil
}
