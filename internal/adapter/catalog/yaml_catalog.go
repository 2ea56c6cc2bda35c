package catalog

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/cartstore/internal/core/domain"
	"github.com/rl1809/cartstore/internal/port"
)

type yamlFile struct {
	Items []yamlItem `yaml:"items"`
}

type yamlItem struct {
	ID         string        `yaml:"id"`
	Name       string        `yaml:"name"`
	Price      string        `yaml:"price"`
	ImageURL   string        `yaml:"image_url"`
	CategoryID string        `yaml:"category_id"`
	Stock      *int          `yaml:"stock"`
	Variants   []yamlVariant `yaml:"variants"`
}

type yamlVariant struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Stock *int   `yaml:"stock"`
}

// StaticCatalog serves item metadata loaded once from a YAML document.
type StaticCatalog struct {
	items map[domain.ItemID]domain.CatalogItem
}

func LoadFile(path string) (*StaticCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*StaticCatalog, error) {
	var doc yamlFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	items := make(map[domain.ItemID]domain.CatalogItem, len(doc.Items))
	for i, it := range doc.Items {
		item, err := it.toDomain()
		if err != nil {
			return nil, fmt.Errorf("catalog item %d: %w", i, err)
		}
		if _, dup := items[item.ID]; dup {
			return nil, fmt.Errorf("catalog item %d: duplicate id %q", i, item.ID)
		}
		items[item.ID] = item
	}
	return &StaticCatalog{items: items}, nil
}

func (it yamlItem) toDomain() (domain.CatalogItem, error) {
	if err := domain.NewKey(domain.ItemID(it.ID), domain.NoVariant).Validate(); err != nil {
		return domain.CatalogItem{}, err
	}
	price, err := decimal.NewFromString(it.Price)
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("price %q: %w", it.Price, err)
	}
	if price.IsNegative() {
		return domain.CatalogItem{}, fmt.Errorf("price %q is negative", it.Price)
	}

	item := domain.CatalogItem{
		ID:         domain.ItemID(it.ID),
		Name:       it.Name,
		UnitPrice:  price,
		ImageURL:   it.ImageURL,
		CategoryID: domain.CategoryID(it.CategoryID),
		Stock:      it.Stock,
	}
	for _, v := range it.Variants {
		key := domain.NewKey(item.ID, domain.VariantID(v.ID))
		if v.ID == "" {
			return domain.CatalogItem{}, fmt.Errorf("variant of %q has no id", it.ID)
		}
		if err := key.Validate(); err != nil {
			return domain.CatalogItem{}, err
		}
		item.Variants = append(item.Variants, domain.Variant{ID: key.VariantID, Name: v.Name, Stock: v.Stock})
	}
	return item, nil
}

func (c *StaticCatalog) Item(ctx context.Context, itemID domain.ItemID) (domain.CatalogItem, error) {
	item, ok := c.items[itemID]
	if !ok {
		return domain.CatalogItem{}, fmt.Errorf("%w: %s", port.ErrItemNotFound, itemID)
	}
	return item, nil
}

func (c *StaticCatalog) Len() int { return len(c.items) }
