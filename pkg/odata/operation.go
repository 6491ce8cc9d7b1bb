package odata

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// bindingParameterName is the name of the implicit first parameter of bound operations.
const bindingParameterName = "bindingParameter"

type OperationKind int

const (
	OperationKindAction OperationKind = iota + 1
	OperationKindFunction
)

func (k OperationKind) String() string {
	switch k {
	case OperationKindAction:
		return "Action"
	case OperationKindFunction:
		return "Function"
	}
	return fmt.Sprintf("OperationKind(%d)", int(k))
}

// Binding attaches an operation to one instance of an entity type or to a
// collection of it.
type Binding struct {
	EntityType *EntityType
	Collection bool
}

func (b Binding) Type() TypeRef {
	return TypeRef{Kind: TypeKindEntity, Name: b.EntityType.name, Collection: b.Collection}
}

type Parameter struct {
	Name string
	Type TypeRef
}

// Operation is an action (side-effecting) or a function (pure), either bound
// to an entity type or unbound and exposed through an import.
type Operation struct {
	namespace    string
	name         string
	kind         OperationKind
	binding      *Binding
	parameters   []*Parameter
	returnType   *TypeRef
	returnEntity *EntityType
	entitySet    *EntitySetConfig
}

func (o *Operation) Name() string { return o.name }

func (o *Operation) Kind() OperationKind { return o.kind }

func (o *Operation) IsBound() bool { return o.binding != nil }

// Binding returns nil for unbound operations.
func (o *Operation) Binding() *Binding {
	if o.binding == nil {
		return nil
	}
	return copyOf(o.binding)
}

// Parameters excludes the binding parameter.
func (o *Operation) Parameters() []*Parameter { return copyAll(o.parameters) }

// ReturnType returns nil for void actions.
func (o *Operation) ReturnType() *TypeRef {
	if o.returnType == nil {
		return nil
	}
	return copyOf(o.returnType)
}

// EntitySet returns the name of the set returned entities belong to, or "".
func (o *Operation) EntitySet() string {
	if o.entitySet == nil {
		return ""
	}
	return o.entitySet.name
}

// Signature identifies an overload, e.g.
// "Function GetOrdersCount(bindingParameter:NS.RoutingCustomer,factor)".
func (o *Operation) Signature() string {
	params := make([]string, 0, len(o.parameters)+1)
	if o.binding != nil {
		params = append(params, bindingParameterName+":"+o.binding.Type().FullName(o.namespace))
	}
	for _, p := range o.parameters {
		params = append(params, p.Name)
	}
	return fmt.Sprintf("%v %s(%s)", o.kind, o.name, strings.Join(params, ","))
}

func (o *Operation) String() string { return o.Signature() }

func (o *Operation) bindingKey() string {
	if o.binding == nil {
		return "unbound"
	}
	return o.binding.Type().String()
}

// overloadKey is equal for two operations of the same name that cannot
// coexist. Actions overload by binding only, functions by binding and the
// unordered set of parameter names.
func (o *Operation) overloadKey() string {
	key := o.bindingKey()
	if o.kind == OperationKindAction {
		return key
	}
	names := make([]string, 0, len(o.parameters))
	for _, p := range o.parameters {
		names = append(names, p.Name)
	}
	slices.Sort(names)
	return key + "|" + strings.Join(names, ",")
}

// validate checks o on its own. known reports whether a type reference
// names a type of the model.
func (o *Operation) validate(known func(TypeRef) bool) (err error) {
	if e := checkIdentifier(strings.ToLower(o.kind.String()), o.name); e != nil {
		err = errors.Join(err, e)
	}

	seen := make(map[string]bool, len(o.parameters))
	for _, p := range o.parameters {
		switch {
		case p.Name == bindingParameterName && o.binding != nil:
			err = errors.Join(err, ErrInvalid("%v: parameter name «%s» is reserved", o, p.Name))
		case seen[p.Name]:
			err = errors.Join(err, ErrAlreadyExists("%v: parameter «%s»", o, p.Name))
		default:
			if e := checkIdentifier("parameter", p.Name); e != nil {
				err = errors.Join(err, fmt.Errorf("%v: %w", o, e))
			}
		}
		seen[p.Name] = true
		switch {
		case p.Type.Kind == TypeKindNone:
			err = errors.Join(err, ErrMissed("%v: type of parameter «%s»", o, p.Name))
		case !known(p.Type):
			err = errors.Join(err, ErrNotFound("%v: %v type «%s» of parameter «%s»", o, p.Type.Kind, p.Type.Name, p.Name))
		}
	}

	switch {
	case o.returnType == nil:
		if o.kind == OperationKindFunction {
			err = errors.Join(err, ErrMissed("%v: return type of function", o))
		}
	case o.returnType.Kind == TypeKindNone:
		err = errors.Join(err, ErrMissed("%v: return type", o))
	case !known(*o.returnType):
		err = errors.Join(err, ErrNotFound("%v: %v return type «%s»", o, o.returnType.Kind, o.returnType.Name))
	}

	if o.entitySet != nil && o.returnEntity != nil && !o.returnEntity.DerivesFrom(o.entitySet.entityType) {
		err = errors.Join(err, ErrIncompatible("%v: returns «%s» from entity set «%s» of «%s»",
			o, o.returnEntity.name, o.entitySet.name, o.entitySet.entityType.name))
	}
	return err
}

// validateOverloads checks that operations sharing a name are
// distinguishable and that function overloads sharing a binding return the
// same type.
func validateOverloads(ops []*Operation) (err error) {
	byName := make(map[string][]*Operation)
	var names []string
	for _, o := range ops {
		if _, ok := byName[o.name]; !ok {
			names = append(names, o.name)
		}
		byName[o.name] = append(byName[o.name], o)
	}
	for _, name := range names {
		group := byName[name]
		kind := group[0].kind
		keys := make(map[string]*Operation, len(group))
		returns := make(map[string]*Operation, len(group))
		for _, o := range group {
			if o.kind != kind {
				err = errors.Join(err, ErrAmbiguousOverload("«%s» is declared both as %v and %v", name, kind, o.kind))
				break
			}
			key := o.overloadKey()
			if prev, ok := keys[key]; ok {
				err = errors.Join(err, ErrAmbiguousOverload("%v conflicts with %v", o, prev))
				continue
			}
			keys[key] = o

			if o.kind != OperationKindFunction || o.returnType == nil {
				continue
			}
			binding := o.bindingKey()
			if prev, ok := returns[binding]; ok && prev.returnType.String() != o.returnType.String() {
				err = errors.Join(err, ErrAmbiguousOverload("%v returns «%v», %v returns «%v»",
					o, o.returnType, prev, prev.returnType))
				continue
			}
			returns[binding] = o
		}
	}
	return err
}

// OperationConfig configures one operation. Calls on a config returned for
// a failed registration, or after Build, are ignored.
type OperationConfig struct {
	b  *ModelBuilder
	op *Operation
}

// Operation returns nil when the operation failed to register.
func (c *OperationConfig) Operation() *Operation { return c.op }

func (c *OperationConfig) usable() bool { return c.op != nil && !c.b.sealed }

// Parameter appends a parameter. Name clashes are reported by Build.
func (c *OperationConfig) Parameter(name string, typ TypeRef) *OperationConfig {
	if !c.usable() {
		return c
	}
	c.op.parameters = append(c.op.parameters, &Parameter{Name: normalizeName(name), Type: typ})
	return c
}

// Returns sets a return type that does not come from an entity set.
func (c *OperationConfig) Returns(typ TypeRef) *OperationConfig {
	if !c.usable() {
		return c
	}
	c.op.returnType = &typ
	c.op.returnEntity = nil
	c.op.entitySet = nil
	return c
}

// ReturnsFromEntitySet returns a single entity of type t from set.
func (c *OperationConfig) ReturnsFromEntitySet(set *EntitySetConfig, t *EntityTypeConfig) *OperationConfig {
	return c.returnsFromEntitySet(set, t, false)
}

// ReturnsCollectionFromEntitySet returns a collection of entities of type t from set.
func (c *OperationConfig) ReturnsCollectionFromEntitySet(set *EntitySetConfig, t *EntityTypeConfig) *OperationConfig {
	return c.returnsFromEntitySet(set, t, true)
}

func (c *OperationConfig) returnsFromEntitySet(set *EntitySetConfig, t *EntityTypeConfig, collection bool) *OperationConfig {
	if !c.usable() {
		return c
	}
	if set == nil || t == nil || t.t == nil {
		c.b.fail(ErrMissed("%v: entity set or type of the return value", c.op))
		return c
	}
	ref := TypeRef{Kind: TypeKindEntity, Name: t.t.name, Collection: collection, Nullable: !collection}
	c.op.returnType = &ref
	c.op.returnEntity = t.t
	c.op.entitySet = set
	return c
}
