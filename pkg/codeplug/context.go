package codeplug

import (
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

// Kind identifies one entity table of a Context. Indices of different kinds
// never collide.
type Kind[T any] struct {
	name string
}

// NewKind declares a Context table for objects of type T
func NewKind[T any](name string) Kind[T] {
	return Kind[T]{name: name}
}

// Name returns the table name used in error messages
func (k Kind[T]) Name() string { return k.name }

// Kinds shared by every family
var (
	RadioIDs   = NewKind[model.RadioID]("radio ID")
	Contacts   = NewKind[model.Contact]("contact")
	GroupLists = NewKind[model.GroupList]("group list")
	Channels   = NewKind[model.Channel]("channel")
	Zones      = NewKind[model.Zone]("zone")
	ScanLists  = NewKind[model.ScanList]("scan list")
	GPSSystems = NewKind[model.GPSSystem]("GPS system")
)

type table struct {
	byIndex map[int]any
	byObj   map[any]int
}

// Context maps binary indices to domain objects and back, per kind. A new
// Context is created for every decode or encode.
type Context struct {
	tables map[string]*table
}

// NewContext returns an empty context
func NewContext() *Context {
	return &Context{tables: make(map[string]*table)}
}

func (c *Context) table(name string) *table {
	t, ok := c.tables[name]
	if !ok {
		t = &table{byIndex: make(map[int]any), byObj: make(map[any]int)}
		c.tables[name] = t
	}
	return t
}

// Count returns the number of indices registered for a kind
func (c *Context) Count(kind string) int {
	t, ok := c.tables[kind]
	if !ok {
		return 0
	}
	return len(t.byIndex)
}

// Register pairs idx with obj. Registering an index twice is a hard failure.
// The same object may be registered under several indices; IndexOf then
// reports the first one.
func Register[T any](c *Context, k Kind[T], idx int, obj *T) error {
	t := c.table(k.name)
	if _, exists := t.byIndex[idx]; exists {
		return &DuplicateIndexError{Kind: k.name, Index: idx}
	}
	t.byIndex[idx] = obj
	if _, seen := t.byObj[obj]; !seen {
		t.byObj[obj] = idx
	}
	return nil
}

// Lookup returns the object registered at idx
func Lookup[T any](c *Context, k Kind[T], idx int) (*T, bool) {
	t, ok := c.tables[k.name]
	if !ok {
		return nil, false
	}
	obj, ok := t.byIndex[idx]
	if !ok {
		return nil, false
	}
	return obj.(*T), true
}

// IndexOf returns the index assigned to obj
func IndexOf[T any](c *Context, k Kind[T], obj *T) (int, bool) {
	if obj == nil {
		return 0, false
	}
	t, ok := c.tables[k.name]
	if !ok {
		return 0, false
	}
	idx, ok := t.byObj[obj]
	return idx, ok
}

// Resolve is Lookup for mandatory references
func Resolve[T any](c *Context, k Kind[T], idx int) (*T, error) {
	obj, ok := Lookup(c, k, idx)
	if !ok {
		return nil, &UnresolvedError{Kind: k.name, Index: idx}
	}
	return obj, nil
}

// Optional resolves an optional reference: idx == none yields nil without
// error, any other absent index is reported.
func Optional[T any](c *Context, k Kind[T], idx, none int) (*T, error) {
	if idx == none {
		return nil, nil
	}
	return Resolve(c, k, idx)
}

// OptionalLenient resolves an optional reference and treats any absent index
// as "no reference".
func OptionalLenient[T any](c *Context, k Kind[T], idx int) *T {
	obj, _ := Lookup(c, k, idx)
	return obj
}

// IndexOrNone returns obj's index, or none if obj is nil. A non-nil object
// without an index is reported.
func IndexOrNone[T any](c *Context, k Kind[T], obj *T, none int) (int, error) {
	if obj == nil {
		return none, nil
	}
	idx, ok := IndexOf(c, k, obj)
	if !ok {
		return 0, &UnindexedError{Kind: k.name}
	}
	return idx, nil
}
