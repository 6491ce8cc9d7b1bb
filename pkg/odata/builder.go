package odata

import (
	"io"
	"log"
	"reflect"
)

const (
	DefaultNamespace     = "Default"
	DefaultContainerName = "Container"
)

type Option func(*ModelBuilder)

func WithNamespace(namespace string) Option {
	return func(b *ModelBuilder) { b.namespace = namespace }
}

func WithContainerName(name string) Option {
	return func(b *ModelBuilder) { b.container = name }
}

// WithLogger replaces the registration logger. A nil logger silences it.
func WithLogger(logger *log.Logger) Option {
	return func(b *ModelBuilder) {
		if logger == nil {
			logger = log.New(io.Discard, "", 0)
		}
		b.logger = logger
	}
}

// ModelBuilder collects entity sets, types and operations and turns them into
// an immutable Model. Calls that can fail immediately return their error;
// chained configuration calls record errors which Build reports. A builder
// is not safe for concurrent use and cannot be used after Build.
type ModelBuilder struct {
	namespace string
	container string
	logger    *log.Logger

	entityTypes  map[reflect.Type]*EntityType
	entityOrder  []*EntityType
	complexTypes map[reflect.Type]*ComplexType
	complexOrder []*ComplexType
	enumTypes    map[reflect.Type]*EnumType
	enumOrder    []*EnumType
	typeNames    map[string]reflect.Type

	entitySets map[string]*EntitySetConfig
	setOrder   []*EntitySetConfig
	operations []*Operation

	errs   []error
	sealed bool
}

func NewModelBuilder(opts ...Option) *ModelBuilder {
	b := &ModelBuilder{
		namespace:    DefaultNamespace,
		container:    DefaultContainerName,
		logger:       log.Default(),
		entityTypes:  make(map[reflect.Type]*EntityType),
		complexTypes: make(map[reflect.Type]*ComplexType),
		enumTypes:    make(map[reflect.Type]*EnumType),
		typeNames:    make(map[string]reflect.Type),
		entitySets:   make(map[string]*EntitySetConfig),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *ModelBuilder) Namespace() string { return b.namespace }

// fail records err so that Build reports it and returns err back.
func (b *ModelBuilder) fail(err error) error {
	b.errs = append(b.errs, err)
	return err
}

// AddEntitySet declares the entity set name for shape t. Declaring the same
// name for the same shape again returns the existing set; declaring it for
// another shape fails.
func (b *ModelBuilder) AddEntitySet(name string, t reflect.Type) (*EntitySetConfig, error) {
	if b.sealed {
		return nil, ErrBuilderSealed
	}
	name = normalizeName(name)
	if err := checkIdentifier("entity set", name); err != nil {
		return nil, b.fail(err)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if set, ok := b.entitySets[name]; ok {
		if set.entityType.goType != t {
			return nil, b.fail(ErrAlreadyExists("entity set «%s» is bound to «%s», cannot bind it to %v",
				name, set.entityType.Name(), t))
		}
		return set, nil
	}
	et, err := b.addEntityType(t)
	if err != nil {
		return nil, b.fail(err)
	}
	set := &EntitySetConfig{name: name, entityType: et}
	b.entitySets[name] = set
	b.setOrder = append(b.setOrder, set)
	b.logger.Printf("Registered entity set: %s (%s)", name, et.Name())
	return set, nil
}

// EnsureEntitySet returns the entity set called name, creating it for shape
// t when it does not exist yet. When it exists, t is only registered as a
// known entity type and the set keeps its own type.
func (b *ModelBuilder) EnsureEntitySet(name string, t reflect.Type) (*EntitySetConfig, error) {
	if b.sealed {
		return nil, ErrBuilderSealed
	}
	set, ok := b.entitySets[normalizeName(name)]
	if !ok {
		return b.AddEntitySet(name, t)
	}
	if _, err := b.addEntityType(t); err != nil {
		return nil, b.fail(err)
	}
	return set, nil
}

// knownType reports whether ref names an EDM primitive or a type registered
// with the builder under the kind ref claims.
func (b *ModelBuilder) knownType(ref TypeRef) bool {
	if ref.Kind == TypeKindPrimitive {
		return EdmPrimitiveKind(ref.Name).valid()
	}
	t, ok := b.typeNames[ref.Name]
	if !ok {
		return false
	}
	switch ref.Kind {
	case TypeKindEntity:
		_, ok = b.entityTypes[t]
	case TypeKindComplex:
		_, ok = b.complexTypes[t]
	case TypeKindEnum:
		_, ok = b.enumTypes[t]
	default:
		ok = false
	}
	return ok
}

// FindEntitySet returns nil if no set is called name.
func (b *ModelBuilder) FindEntitySet(name string) *EntitySetConfig {
	return b.entitySets[normalizeName(name)]
}

func (b *ModelBuilder) EntitySets() []*EntitySetConfig { return b.setOrder }

// AddEntityType registers shape t, its base types and every entity shape
// reachable through its navigation properties. On failure the error is
// recorded and the returned config ignores further configuration.
func (b *ModelBuilder) AddEntityType(t reflect.Type) *EntityTypeConfig {
	if b.sealed {
		return &EntityTypeConfig{b: b}
	}
	et, err := b.addEntityType(t)
	if err != nil {
		b.fail(err)
		return &EntityTypeConfig{b: b}
	}
	return &EntityTypeConfig{b: b, t: et}
}

// FindEntityType returns nil if no entity type is called name.
func (b *ModelBuilder) FindEntityType(name string) *EntityType {
	name = normalizeName(name)
	for _, et := range b.entityOrder {
		if et.name == name {
			return et
		}
	}
	return nil
}

// Action declares an unbound action, exposed through an action import.
func (b *ModelBuilder) Action(name string) *OperationConfig {
	return b.addOperation(name, OperationKindAction, nil)
}

// Function declares an unbound function, exposed through a function import.
func (b *ModelBuilder) Function(name string) *OperationConfig {
	return b.addOperation(name, OperationKindFunction, nil)
}

func (b *ModelBuilder) addOperation(name string, kind OperationKind, binding *Binding) *OperationConfig {
	if b.sealed {
		return &OperationConfig{b: b}
	}
	op := &Operation{
		namespace: b.namespace,
		name:      normalizeName(name),
		kind:      kind,
		binding:   binding,
	}
	b.operations = append(b.operations, op)
	b.logger.Printf("Registered operation: %s", op.Signature())
	return &OperationConfig{b: b, op: op}
}

type EntitySetConfig struct {
	name       string
	entityType *EntityType
}

func (s *EntitySetConfig) Name() string { return s.name }

func (s *EntitySetConfig) EntityType() *EntityType { return s.entityType }

type EntityTypeConfig struct {
	b *ModelBuilder
	t *EntityType
}

// EntityType returns nil when the type failed to register.
func (c *EntityTypeConfig) EntityType() *EntityType { return c.t }

func (c *EntityTypeConfig) Name() string {
	if c.t == nil {
		return ""
	}
	return c.t.name
}

func (c *EntityTypeConfig) usable() bool { return c.t != nil && !c.b.sealed }

// ComplexProperty declares the field as a complex property. The field must
// hold a keyless struct; keyed structs are entity types and navigate instead.
func (c *EntityTypeConfig) ComplexProperty(field string) *EntityTypeConfig {
	if !c.usable() {
		return c
	}
	if p := findProperty(c.t.properties, field); p != nil {
		if p.Type.Kind != TypeKindComplex {
			c.b.fail(ErrInvalid("property «%s.%s» is %v, not complex", c.t.name, p.Name, p.Type.Kind))
			return c
		}
		c.b.logger.Printf("Registered complex property: %s.%s (%s)", c.t.name, p.Name, p.Type)
		return c
	}
	for _, n := range c.t.navigations {
		if n.Name == field || n.Field == field {
			c.b.fail(ErrIncompatible("property «%s.%s» refers to entity type «%s» and cannot be complex",
				c.t.name, n.Name, n.Target.name))
			return c
		}
	}
	c.b.fail(ErrNotFound("property «%s» of entity type «%s»", field, c.t.name))
	return c
}

// HasRequired marks a single-valued navigation property declared on this
// type as non-nullable.
func (c *EntityTypeConfig) HasRequired(field string) *EntityTypeConfig {
	if !c.usable() {
		return c
	}
	for _, n := range c.t.navigations {
		if n.Name != field && n.Field != field {
			continue
		}
		if n.Collection {
			c.b.fail(ErrInvalid("navigation property «%s.%s» is a collection and cannot be required", c.t.name, n.Name))
			return c
		}
		n.Nullable = false
		return c
	}
	c.b.fail(ErrNotFound("navigation property «%s» of entity type «%s»", field, c.t.name))
	return c
}

// Action binds a new action to a single instance of this type.
func (c *EntityTypeConfig) Action(name string) *OperationConfig {
	if !c.usable() {
		return &OperationConfig{b: c.b}
	}
	return c.b.addOperation(name, OperationKindAction, &Binding{EntityType: c.t})
}

// Function binds a new function to a single instance of this type.
func (c *EntityTypeConfig) Function(name string) *OperationConfig {
	if !c.usable() {
		return &OperationConfig{b: c.b}
	}
	return c.b.addOperation(name, OperationKindFunction, &Binding{EntityType: c.t})
}

// Collection binds operations to collections of this type.
func (c *EntityTypeConfig) Collection() *CollectionConfig {
	return &CollectionConfig{entity: c}
}

type CollectionConfig struct {
	entity *EntityTypeConfig
}

func (c *CollectionConfig) Action(name string) *OperationConfig {
	if !c.entity.usable() {
		return &OperationConfig{b: c.entity.b}
	}
	return c.entity.b.addOperation(name, OperationKindAction, &Binding{EntityType: c.entity.t, Collection: true})
}

func (c *CollectionConfig) Function(name string) *OperationConfig {
	if !c.entity.usable() {
		return &OperationConfig{b: c.entity.b}
	}
	return c.entity.b.addOperation(name, OperationKindFunction, &Binding{EntityType: c.entity.t, Collection: true})
}

func findProperty(props []*Property, name string) *Property {
	for _, p := range props {
		if p.Name == name || p.Field == name {
			return p
		}
	}
	return nil
}
