// Package cart holds the shopping cart: one line per product, quantity
// bounded by stock and a hard per-line cap, persisted to durable storage
// on every mutation.
package cart

import (
	"errors"
	"sync"

	"github.com/sajilostore/storefront/internal/logging"
	"github.com/sajilostore/storefront/internal/model"
	"github.com/sajilostore/storefront/internal/storage"
)

// storageKey is the durable-storage key the backend contract names.
const storageKey = storage.KeyCart

// MaxPerLine caps how many units of one product a single order may hold.
const MaxPerLine = 10

// defaultStock is assumed when a product reports no stock figure.
const defaultStock = 10

// Line is one cart entry. Quantity stays within [1, min(StockLimit, 10)]
// after every mutation.
type Line struct {
	ProductID  string  `json:"productId"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Image      string  `json:"image"`
	Size       string  `json:"size,omitempty"`
	Quantity   int     `json:"quantity"`
	StockLimit int     `json:"stockLimit"`
}

func (l Line) maxQuantity() int {
	max := l.StockLimit
	if max > MaxPerLine || max <= 0 {
		max = MaxPerLine
	}
	return max
}

// Store owns the cart lines. Screens mutate only through its methods.
type Store struct {
	mu      sync.Mutex
	storage storage.Store
	logger  *logging.Logger
	lines   []Line
}

// New creates the cart store and restores persisted lines. A corrupt
// persisted cart is discarded and the cart starts empty.
func New(st storage.Store, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Store{storage: st, logger: logger}

	var lines []Line
	if err := storage.GetJSON(st, storageKey, &lines); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.WithError(err).Warn("discarding persisted cart")
		}
	} else {
		s.lines = lines
	}
	return s
}

// Add puts one unit of the product in the cart. An existing line for the
// same product is incremented instead of duplicated, clamped to the
// line's maximum.
func (s *Store) Add(p model.Product, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID == p.ID {
			line := &s.lines[i]
			if line.Quantity < line.maxQuantity() {
				line.Quantity++
			}
			s.persist()
			return
		}
	}

	stock := p.Stock
	if stock <= 0 {
		stock = defaultStock
	}
	s.lines = append(s.lines, Line{
		ProductID:  p.ID,
		Name:       p.Name,
		Price:      p.Price,
		Image:      p.Image,
		Size:       size,
		Quantity:   1,
		StockLimit: stock,
	})
	s.persist()
}

// Increase bumps a line's quantity by one, clamped to the line maximum.
func (s *Store) Increase(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			line := &s.lines[i]
			if line.Quantity < line.maxQuantity() {
				line.Quantity++
			}
			s.persist()
			return
		}
	}
}

// Decrease lowers a line's quantity by one, flooring at 1. Removing a
// line is a separate explicit action.
func (s *Store) Decrease(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			if s.lines[i].Quantity > 1 {
				s.lines[i].Quantity--
			}
			s.persist()
			return
		}
	}
}

// Remove deletes a line unconditionally.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			break
		}
	}
	s.persist()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.persist()
}

// Lines returns a copy of the cart contents.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Len returns the number of lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Total returns the cart total price.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, l := range s.lines {
		total += l.Price * float64(l.Quantity)
	}
	return total
}

// persist writes the full collection. Called with the lock held after
// every mutation; a write failure keeps the in-memory state and is only
// logged, the next mutation retries.
func (s *Store) persist() {
	lines := s.lines
	if lines == nil {
		lines = []Line{}
	}
	if err := storage.PutJSON(s.storage, storageKey, lines); err != nil {
		s.logger.WithError(err).Warn("persisting cart failed")
	}
}
