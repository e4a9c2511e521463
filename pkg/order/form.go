package order

import (
	"Go-Order-Intake/domain"
	"time"

	"github.com/google/uuid"
)

const (
	BannerSuccess = "success"
	BannerError   = "error"
)

// Banner is the single result message of a form; each event replaces it.
type Banner struct {
	Type    string
	Message string
}

// Form is one operator session: the chosen manager and the order cards.
type Form struct {
	ID         uuid.UUID
	Manager    string
	Items      []Item
	Result     *Banner
	Submitting bool
	UpdatedAt  time.Time

	nextID  int64
	nextGen uint64
}

func NewForm() *Form {
	f := &Form{ID: uuid.New(), UpdatedAt: time.Now()}
	f.Add()
	return f
}

// clone copies the item list so the copy can be mutated without touching f.
func (f *Form) clone() *Form {
	out := *f
	out.Items = append([]Item(nil), f.Items...)
	if f.Result != nil {
		b := *f.Result
		out.Result = &b
	}
	return &out
}

func (f *Form) newID() int64 {
	f.nextID++
	return f.nextID
}

// NextGeneration hands out the token an async result must echo back.
func (f *Form) NextGeneration() uint64 {
	f.nextGen++
	return f.nextGen
}

func (f *Form) Add() Item {
	it := NewItem(f.newID())
	f.Items = append(f.Items, it)
	return it
}

func (f *Form) CopyLast() Item {
	if len(f.Items) == 0 {
		return f.Add()
	}
	it := CopyOf(f.newID(), f.Items[len(f.Items)-1])
	f.Items = append(f.Items, it)
	return it
}

func (f *Form) Remove(id int64) error {
	idx := f.index(id)
	if idx < 0 {
		return domain.ErrOrderNotFound
	}
	if len(f.Items) <= 1 {
		return domain.ErrLastOrder
	}
	f.Items = append(f.Items[:idx:idx], f.Items[idx+1:]...)
	return nil
}

// Reset leaves a single empty card; the manager stays selected.
func (f *Form) Reset() {
	f.Items = nil
	f.Add()
}

func (f *Form) Item(id int64) (Item, error) {
	idx := f.index(id)
	if idx < 0 {
		return Item{}, domain.ErrOrderNotFound
	}
	return f.Items[idx], nil
}

// Replace swaps in the card with the same ID.
func (f *Form) Replace(it Item) error {
	idx := f.index(it.ID)
	if idx < 0 {
		return domain.ErrOrderNotFound
	}
	f.Items[idx] = it
	return nil
}

// Update applies fn to the card with the given ID and stores the result.
func (f *Form) Update(id int64, fn func(Item) (Item, error)) (Item, error) {
	it, err := f.Item(id)
	if err != nil {
		return Item{}, err
	}
	next, err := fn(it)
	if err != nil {
		return it, err
	}
	return next, f.Replace(next)
}

// Position returns the 1-based card number shown to the operator.
func (f *Form) Position(id int64) int {
	return f.index(id) + 1
}

func (f *Form) SetResult(kind, message string) {
	f.Result = &Banner{Type: kind, Message: message}
}

func (f *Form) index(id int64) int {
	for i, it := range f.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
