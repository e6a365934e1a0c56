package content

import (
	"encoding/base64"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
)

// Cursor identifies the last item returned by a page.
// Items are ordered by CreatedAt descending, then ID descending.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// EncodeCursor returns the opaque token for item.
func EncodeCursor(item models.ContentItem) string {
	raw := strconv.FormatInt(item.CreatedAt.UnixNano(), 10) + "|" + item.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: malformed cursor", core.ErrValidation)
	}
	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return Cursor{}, fmt.Errorf("%w: malformed cursor", core.ErrValidation)
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: malformed cursor", core.ErrValidation)
	}
	return Cursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}

// After reports whether item sorts strictly after the cursor position.
func (c Cursor) After(item *models.ContentItem) bool {
	if item.CreatedAt.Equal(c.CreatedAt) {
		return item.ID < c.ID
	}
	return item.CreatedAt.Before(c.CreatedAt)
}

// Compare orders items most recent first, breaking ties by ID descending.
func Compare(a, b models.ContentItem) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}

// BuildPage turns up to limit+1 ordered items into a page.
// The extra item only signals that another page exists.
func BuildPage(fetched []models.ContentItem, limit int) models.ContentPage {
	page := models.ContentPage{Items: fetched}
	if len(fetched) > limit {
		page.Items = fetched[:limit]
		page.HasMore = true
		next := EncodeCursor(page.Items[limit-1])
		page.NextCursor = &next
	}
	if page.Items == nil {
		page.Items = []models.ContentItem{}
	}
	return page
}

// Paginate applies q to an unordered in-memory set.
func Paginate(items []models.ContentItem, q models.ContentQuery) (models.ContentPage, error) {
	q = Normalize(q)
	keep := Filter(q)
	if q.Cursor != "" {
		cur, err := DecodeCursor(q.Cursor)
		if err != nil {
			return models.ContentPage{}, err
		}
		keep = All(keep, cur.After)
	}

	matched := make([]models.ContentItem, 0, len(items))
	for i := range items {
		if keep(&items[i]) {
			matched = append(matched, items[i])
		}
	}
	slices.SortFunc(matched, Compare)

	if len(matched) > q.Limit+1 {
		matched = matched[:q.Limit+1]
	}
	return BuildPage(matched, q.Limit), nil
}
