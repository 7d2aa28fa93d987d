package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Page size limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidCursor is returned when a cursor cannot be decoded or points
// past the end of the list.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest holds pagination query parameters.
type PaginationRequest struct {
	// Cursor is an opaque string from a previous response's NextCursor.
	Cursor string `form:"cursor"`

	Limit int `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// GetLimit returns the limit with defaults applied.
func (p *PaginationRequest) GetLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// PaginatedResponse is a page of items.
type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
	Total      int    `json:"total"`
}

// cursorData is the decoded form of a cursor. Catalogs are fixed, ordered
// lists, so a position is enough.
type cursorData struct {
	Offset int `json:"o"`
}

// EncodeCursor encodes a list offset as an opaque cursor.
func EncodeCursor(offset int) string {
	b, err := json.Marshal(cursorData{Offset: offset})
	if err != nil {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor returns the offset encoded in cursor. An empty cursor is offset 0.
func DecodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}

	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	var data cursorData
	if err := json.Unmarshal(b, &data); err != nil || data.Offset < 0 {
		return 0, ErrInvalidCursor
	}

	return data.Offset, nil
}

// Paginate returns the page of all selected by req, converting each item
// with fn. fn receives the item's position in all.
func Paginate[S, T any](all []S, req PaginationRequest, fn func(i int, item S) T) (*PaginatedResponse[T], error) {
	offset, err := DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}
	if offset > len(all) {
		return nil, ErrInvalidCursor
	}

	end := min(offset+req.GetLimit(), len(all))

	items := make([]T, 0, end-offset)
	for i := offset; i < end; i++ {
		items = append(items, fn(i, all[i]))
	}

	resp := &PaginatedResponse[T]{
		Items:   items,
		HasMore: end < len(all),
		Total:   len(all),
	}
	if resp.HasMore {
		resp.NextCursor = EncodeCursor(end)
	}

	return resp, nil
}
