// Package catalog is the sample audited domain: an in-memory product store
// whose every save runs as an audited unit of work. It exists so the server
// binary exercises the capture pipeline end to end; real deployments wire the
// aggregator around their own persistence layer instead.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/saturn72/efaudit/internal/capture"
	"github.com/saturn72/efaudit/internal/tracking"
	"github.com/saturn72/efaudit/pkg/platform/sentinel"
)

// Product is the sample audited entity. ID is assigned by the store at
// commit.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ProductTag is the short name of the product/tag association rows staged
// through Session.Link.
const ProductTag = "ProductTag"

// RegisterTypes registers the catalog's entity types with the snapshot
// registry. Association types are materialized generically and need no
// registration.
func RegisterTypes(registry *capture.Registry) {
	registry.MustRegister("Product", Product{})
}

// Service owns the products and runs each mutation as one audited save.
type Service struct {
	mu         sync.Mutex
	db         *tracking.DB
	aggregator *capture.Aggregator
	products   map[int64]Product
}

func New(db *tracking.DB, aggregator *capture.Aggregator) *Service {
	return &Service{
		db:         db,
		aggregator: aggregator,
		products:   make(map[int64]Product),
	}
}

// Create stores a new product, returning it with its store-assigned key.
func (s *Service) Create(ctx context.Context, name string, price float64) (Product, error) {
	product := &Product{Name: name, Price: price}
	sess := s.db.NewSession()
	if err := sess.Insert(product); err != nil {
		return Product{}, err
	}

	err := s.aggregator.Audited(ctx, sess, func(ctx context.Context) error {
		if err := sess.Commit(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		s.products[product.ID] = *product
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return *product, nil
}

// Update applies new field values to an existing product.
func (s *Service) Update(ctx context.Context, id int64, name string, price float64) (Product, error) {
	s.mu.Lock()
	stored, ok := s.products[id]
	s.mu.Unlock()
	if !ok {
		return Product{}, fmt.Errorf("product %d: %w", id, sentinel.ErrNotFound)
	}

	product := stored
	sess := s.db.NewSession()
	if err := sess.Track(&product); err != nil {
		return Product{}, err
	}
	product.Name = name
	product.Price = price

	err := s.aggregator.Audited(ctx, sess, func(ctx context.Context) error {
		if err := sess.Commit(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		s.products[id] = product
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return product, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	stored, ok := s.products[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("product %d: %w", id, sentinel.ErrNotFound)
	}

	product := stored
	sess := s.db.NewSession()
	if err := sess.Delete(&product); err != nil {
		return err
	}

	return s.aggregator.Audited(ctx, sess, func(ctx context.Context) error {
		if err := sess.Commit(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		delete(s.products, id)
		s.mu.Unlock()
		return nil
	})
}

// Tag links a tag to a product through an association row, exercising the
// many-to-many audit path.
func (s *Service) Tag(ctx context.Context, productID int64, tag string) error {
	s.mu.Lock()
	_, ok := s.products[productID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("product %d: %w", productID, sentinel.ErrNotFound)
	}

	sess := s.db.NewSession()
	sess.Link(ProductTag, map[string]any{
		"ProductID": productID,
		"Tag":       tag,
	})
	return s.aggregator.Audited(ctx, sess, sess.Commit)
}

// Get returns one product.
func (s *Service) Get(id int64) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[id]
	return product, ok
}
