package order

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownItem = errors.New("unknown catalog item")

// CatalogItem is a counter item sold at a fixed price.
type CatalogItem struct {
	Code  string  `json:"code" toml:"code" yaml:"code"`
	Label string  `json:"label" toml:"label" yaml:"label"`
	Price float64 `json:"price" toml:"price" yaml:"price"`
}

// Catalog is the item list offered on the bill screen, first item first.
type Catalog []CatalogItem

func DefaultCatalog() Catalog {
	return Catalog{
		{Code: "RICE_26KG", Label: "Rice 26 KG", Price: 1499},
		{Code: "TOOR_DAL_500G", Label: "Toor Dal 1/2 KG", Price: 65},
		{Code: "SUGAR_1KG", Label: "Sugar 1 KG", Price: 55},
	}
}

// Lookup finds an item by code, ignoring case and surrounding spaces.
func (c Catalog) Lookup(code string) (CatalogItem, bool) {
	code = strings.TrimSpace(code)
	for _, it := range c {
		if strings.EqualFold(it.Code, code) {
			return it, true
		}
	}
	return CatalogItem{}, false
}

// Price sets o's item label and unit price from the catalog entry for code.
// The error wraps both ErrInvalidOrder and ErrUnknownItem.
func (c Catalog) Price(o *Order, code string) error {
	it, ok := c.Lookup(code)
	if !ok {
		return fmt.Errorf("%w: %w %q", ErrInvalidOrder, ErrUnknownItem, code)
	}
	o.Item = it.Label
	o.Price = it.Price
	return nil
}

// Labels returns the item labels in catalog order.
func (c Catalog) Labels() []string {
	out := make([]string, len(c))
	for i, it := range c {
		out[i] = it.Label
	}
	return out
}

// ByLabel finds an item by its display label.
func (c Catalog) ByLabel(label string) (CatalogItem, bool) {
	for _, it := range c {
		if it.Label == label {
			return it, true
		}
	}
	return CatalogItem{}, false
}
