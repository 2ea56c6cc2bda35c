package port

import (
	"context"
	"errors"

	"github.com/rl1809/cartstore/internal/core/domain"
)

var ErrItemNotFound = errors.New("catalog item not found")

type Catalog interface {
	// Item returns the metadata for itemID or ErrItemNotFound.
	Item(ctx context.Context, itemID domain.ItemID) (domain.CatalogItem, error)
}
