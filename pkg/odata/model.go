package odata

import (
	"errors"
	"slices"
)

// EntitySet is a named, addressable collection rooted at one entity type.
type EntitySet struct {
	name       string
	entityType *EntityType
	bindings   []NavigationBinding
}

func (s *EntitySet) Name() string { return s.name }

func (s *EntitySet) EntityType() *EntityType { return s.entityType }

// NavigationBindings returns the sets navigation properties of this set lead to.
func (s *EntitySet) NavigationBindings() []NavigationBinding { return slices.Clone(s.bindings) }

// NavigationBinding binds a navigation path of an entity set to a target set.
// Paths of properties declared on derived types are cast, "NS.VIP/Prop".
type NavigationBinding struct {
	Path   string
	Target string
}

// Model is the immutable result of ModelBuilder.Build. It is safe for
// concurrent readers. Accessors return copies of slices and descriptors.
type Model struct {
	namespace string
	container string

	entityTypes  []*EntityType
	complexTypes []*ComplexType
	enumTypes    []*EnumType
	entitySets   []*EntitySet
	operations   []*Operation

	entityTypesByName map[string]*EntityType
	entitySetsByName  map[string]*EntitySet
	operationsByName  map[string][]*Operation
	derived           map[*EntityType][]*EntityType
}

// Build validates everything registered so far and returns the model. All
// registration and validation errors are joined into the returned error.
// The builder cannot be used afterwards.
func (b *ModelBuilder) Build() (*Model, error) {
	if b.sealed {
		return nil, ErrBuilderSealed
	}
	b.sealed = true

	err := errors.Join(b.errs...)
	for _, set := range b.setOrder {
		if len(set.entityType.Root().key) == 0 {
			err = errors.Join(err, ErrMissed("key of entity type «%s» of entity set «%s»", set.entityType.name, set.name))
		}
	}
	for _, op := range b.operations {
		err = errors.Join(err, op.validate(b.knownType))
	}
	err = errors.Join(err, validateOverloads(b.operations))
	if err != nil {
		return nil, err
	}

	m := &Model{
		namespace:         b.namespace,
		container:         b.container,
		entityTypes:       b.entityOrder,
		complexTypes:      b.complexOrder,
		enumTypes:         b.enumOrder,
		operations:        b.operations,
		entityTypesByName: make(map[string]*EntityType, len(b.entityOrder)),
		entitySetsByName:  make(map[string]*EntitySet, len(b.setOrder)),
		operationsByName:  make(map[string][]*Operation),
		derived:           make(map[*EntityType][]*EntityType),
	}
	for _, et := range b.entityOrder {
		m.entityTypesByName[et.name] = et
		for base := et.base; base != nil; base = base.base {
			m.derived[base] = append(m.derived[base], et)
		}
	}
	for _, op := range b.operations {
		m.operationsByName[op.name] = append(m.operationsByName[op.name], op)
	}
	for _, cfg := range b.setOrder {
		set := &EntitySet{name: cfg.name, entityType: cfg.entityType}
		m.entitySets = append(m.entitySets, set)
		m.entitySetsByName[set.name] = set
	}
	for _, set := range m.entitySets {
		set.bindings = m.navigationBindings(set)
	}

	b.logger.Printf("Built model %s: %d entity sets, %d entity types, %d operations",
		m.namespace, len(m.entitySets), len(m.entityTypes), len(m.operations))
	return m, nil
}

func (m *Model) Namespace() string { return m.namespace }

func (m *Model) ContainerName() string { return m.container }

// EntitySets returns the sets in registration order.
func (m *Model) EntitySets() []*EntitySet { return slices.Clone(m.entitySets) }

// EntitySet looks a set up by its NFC-normalised name.
func (m *Model) EntitySet(name string) (*EntitySet, bool) {
	s, ok := m.entitySetsByName[normalizeName(name)]
	return s, ok
}

func (m *Model) EntityTypes() []*EntityType { return slices.Clone(m.entityTypes) }

func (m *Model) EntityType(name string) (*EntityType, bool) {
	t, ok := m.entityTypesByName[normalizeName(name)]
	return t, ok
}

func (m *Model) ComplexTypes() []*ComplexType { return slices.Clone(m.complexTypes) }

func (m *Model) EnumTypes() []*EnumType { return slices.Clone(m.enumTypes) }

func (m *Model) Operations() []*Operation { return slices.Clone(m.operations) }

// FindOperations returns every overload called name.
func (m *Model) FindOperations(name string) []*Operation {
	return slices.Clone(m.operationsByName[normalizeName(name)])
}

// FindBoundOperations returns the operations callable on an instance (or a
// collection) of typeName: those bound to it first, then those bound to its
// ancestors.
func (m *Model) FindBoundOperations(typeName string, collection bool) []*Operation {
	t, ok := m.EntityType(typeName)
	if !ok {
		return nil
	}
	var res []*Operation
	for c := t; c != nil; c = c.base {
		for _, op := range m.operations {
			if op.binding != nil && op.binding.EntityType == c && op.binding.Collection == collection {
				res = append(res, op)
			}
		}
	}
	return res
}

// UnboundOperations returns actions and functions exposed through imports.
func (m *Model) UnboundOperations() []*Operation {
	var res []*Operation
	for _, op := range m.operations {
		if op.binding == nil {
			res = append(res, op)
		}
	}
	return res
}

// DerivedTypes returns every direct and indirect descendant of typeName.
func (m *Model) DerivedTypes(typeName string) []*EntityType {
	t, ok := m.EntityType(typeName)
	if !ok {
		return nil
	}
	return slices.Clone(m.derived[t])
}

// IsAssignable reports whether an instance of derived may appear where base
// is expected.
func (m *Model) IsAssignable(base, derived string) bool {
	b, ok := m.EntityType(base)
	if !ok {
		return false
	}
	d, ok := m.EntityType(derived)
	if !ok {
		return false
	}
	return d.DerivesFrom(b)
}

// navigationBindings binds each navigation property reachable from set, its
// type's own and inherited ones plus those of derived types, to the single
// entity set whose type the target derives from. Ambiguous or unmatched
// targets stay unbound.
func (m *Model) navigationBindings(set *EntitySet) []NavigationBinding {
	var res []NavigationBinding
	add := func(path string, target *EntityType) {
		var found *EntitySet
		for _, candidate := range m.entitySets {
			if !target.DerivesFrom(candidate.entityType) {
				continue
			}
			if found != nil {
				return
			}
			found = candidate
		}
		if found != nil {
			res = append(res, NavigationBinding{Path: path, Target: found.name})
		}
	}
	for _, n := range set.entityType.allNavigations() {
		add(n.Name, n.Target)
	}
	for _, d := range m.derived[set.entityType] {
		for _, n := range d.navigations {
			add(m.namespace+"."+d.name+"/"+n.Name, n.Target)
		}
	}
	return res
}
