package usage

import (
	"bytes"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/albertocavalcante/depview/internal/log"
	"github.com/albertocavalcante/depview/pkg/binio"
)

// DefaultDescriptorCacheSize bounds the number of parsed descriptors a
// Context keeps per descriptor kind.
const DefaultDescriptorCacheSize = 4096

// registryShards must be a power of two.
const registryShards = 64

// InternObserver is notified of every intern request. hit is true when an
// existing canonical instance was returned.
type InternObserver interface {
	UsageInterned(kind Kind, hit bool)
}

// Context is the interning scope of one build session. It owns the name
// table, the descriptor caches and the usage registry. A Context is safe
// for concurrent use by many analysis workers.
type Context struct {
	names    *NameTable
	fields   *lru.Cache[string, Type]
	methods  *lru.Cache[string, MethodSignature]
	observer InternObserver

	cacheSize int
	shards    [registryShards]registryShard
}

type registryShard struct {
	mu     sync.RWMutex
	usages map[string]Usage
}

// Option configures a Context.
type Option func(*Context)

// WithNames makes the Context resolve and assign ids through names, for
// example a table restored from a usage stream.
func WithNames(names *NameTable) Option {
	return func(c *Context) {
		c.names = names
	}
}

// WithDescriptorCacheSize sets the descriptor cache capacity.
func WithDescriptorCacheSize(n int) Option {
	return func(c *Context) {
		c.cacheSize = n
	}
}

// WithObserver registers an intern observer.
func WithObserver(o InternObserver) Option {
	return func(c *Context) {
		c.observer = o
	}
}

// NewContext creates an empty interning scope.
func NewContext(opts ...Option) (*Context, error) {
	c := &Context{cacheSize: DefaultDescriptorCacheSize}
	for _, opt := range opts {
		opt(c)
	}
	if c.names == nil {
		c.names = NewNameTable()
	}
	if c.cacheSize <= 0 {
		c.cacheSize = DefaultDescriptorCacheSize
	}

	var err error
	if c.fields, err = lru.New[string, Type](c.cacheSize); err != nil {
		return nil, fmt.Errorf("create field descriptor cache: %w", err)
	}
	if c.methods, err = lru.New[string, MethodSignature](c.cacheSize); err != nil {
		return nil, fmt.Errorf("create method descriptor cache: %w", err)
	}
	for i := range c.shards {
		c.shards[i].usages = make(map[string]Usage)
	}
	return c, nil
}

// Names returns the name table.
func (c *Context) Names() *NameTable { return c.names }

// Intern returns the id for name.
func (c *Context) Intern(name string) int32 { return c.names.Intern(name) }

// Value returns the name for id.
func (c *Context) Value(id int32) string { return c.names.Value(id) }

// FieldType parses a field descriptor, consulting the cache first.
func (c *Context) FieldType(descr string) (Type, error) {
	if t, ok := c.fields.Get(descr); ok {
		return t, nil
	}
	t, err := ParseFieldDescriptor(c.names, descr)
	if err != nil {
		return nil, err
	}
	c.fields.Add(descr, t)
	return t, nil
}

// MethodSignature parses a method descriptor, consulting the cache first.
func (c *Context) MethodSignature(descr string) (MethodSignature, error) {
	if sig, ok := c.methods.Get(descr); ok {
		return sig, nil
	}
	sig, err := ParseMethodDescriptor(c.names, descr)
	if err != nil {
		return MethodSignature{}, err
	}
	c.methods.Add(descr, sig)
	return sig, nil
}

// Usage returns the canonical instance structurally equal to u, publishing
// u if none exists yet. Lookup and publication are atomic per structural
// value: concurrent callers with equal usages all receive the same instance.
func (c *Context) Usage(u Usage) Usage {
	key := registryKey(u)
	shard := &c.shards[uint32(u.Hash())&(registryShards-1)]

	shard.mu.RLock()
	existing, ok := shard.usages[key]
	shard.mu.RUnlock()
	if ok {
		c.notify(u.Kind(), true)
		return existing
	}

	shard.mu.Lock()
	// Double check.
	if existing, ok := shard.usages[key]; ok {
		shard.mu.Unlock()
		c.notify(u.Kind(), true)
		return existing
	}
	shard.usages[key] = u
	shard.mu.Unlock()

	c.notify(u.Kind(), false)
	return u
}

// Len returns the number of canonical usages.
func (c *Context) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		n += len(s.usages)
		s.mu.RUnlock()
	}
	return n
}

// Close ends the session: the registry and caches are released. Usages
// already handed out stay valid. A closed Context keeps its name table and
// starts over with an empty registry.
func (c *Context) Close() {
	log.Component("usage").Debug("closing usage context",
		"usages", c.Len(),
		"names", c.names.Len(),
	)
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.usages = make(map[string]Usage)
		s.mu.Unlock()
	}
	c.fields.Purge()
	c.methods.Purge()
}

func (c *Context) notify(kind Kind, hit bool) {
	if c.observer != nil {
		c.observer.UsageInterned(kind, hit)
	}
}

// registryKey is the canonical encoding of u. Two usages have the same key
// exactly when they are Equal.
func registryKey(u Usage) string {
	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	writeUsage(w, u)
	return buf.String()
}
