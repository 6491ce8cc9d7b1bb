package odata

import (
	"reflect"
	"slices"
	"strings"
)

// Entity lets a shape choose its EDM type name. Shapes that do not implement
// it are named after their Go type.
type Entity interface {
	EntityName() string
}

// Enum is implemented by named integer types that map to an EDM enum type.
type Enum interface {
	EnumMembers() []EnumMember
}

type EnumMember struct {
	Name  string
	Value int64
}

type EdmPrimitiveKind string

const (
	EdmBinary         EdmPrimitiveKind = "Edm.Binary"
	EdmBoolean        EdmPrimitiveKind = "Edm.Boolean"
	EdmByte           EdmPrimitiveKind = "Edm.Byte"
	EdmDateTimeOffset EdmPrimitiveKind = "Edm.DateTimeOffset"
	EdmDecimal        EdmPrimitiveKind = "Edm.Decimal"
	EdmDouble         EdmPrimitiveKind = "Edm.Double"
	EdmDuration       EdmPrimitiveKind = "Edm.Duration"
	EdmGuid           EdmPrimitiveKind = "Edm.Guid"
	EdmInt16          EdmPrimitiveKind = "Edm.Int16"
	EdmInt32          EdmPrimitiveKind = "Edm.Int32"
	EdmInt64          EdmPrimitiveKind = "Edm.Int64"
	EdmSByte          EdmPrimitiveKind = "Edm.SByte"
	EdmSingle         EdmPrimitiveKind = "Edm.Single"
	EdmString         EdmPrimitiveKind = "Edm.String"
)

func (k EdmPrimitiveKind) valid() bool {
	switch k {
	case EdmBinary, EdmBoolean, EdmByte, EdmDateTimeOffset, EdmDecimal, EdmDouble, EdmDuration,
		EdmGuid, EdmInt16, EdmInt32, EdmInt64, EdmSByte, EdmSingle, EdmString:
		return true
	}
	return false
}

type TypeKind int

const (
	TypeKindNone TypeKind = iota
	TypeKindPrimitive
	TypeKindEnum
	TypeKindComplex
	TypeKindEntity
)

func (k TypeKind) String() string {
	switch k {
	case TypeKindPrimitive:
		return "Primitive"
	case TypeKindEnum:
		return "Enum"
	case TypeKindComplex:
		return "Complex"
	case TypeKindEntity:
		return "Entity"
	}
	return "None"
}

// TypeRef references an EDM type from a property, parameter or return type.
// Name is the full name for primitives ("Edm.Int32") and the simple name
// inside the model namespace for everything else.
type TypeRef struct {
	Kind       TypeKind
	Name       string
	Collection bool
	Nullable   bool
}

// Primitive returns a reference to a primitive type. Strings and binaries
// are nullable, every other primitive is not.
func Primitive(kind EdmPrimitiveKind) TypeRef {
	return TypeRef{
		Kind:     TypeKindPrimitive,
		Name:     string(kind),
		Nullable: kind == EdmString || kind == EdmBinary,
	}
}

// CollectionOf returns t as a collection, e.g. Collection(Edm.String).
func CollectionOf(t TypeRef) TypeRef {
	t.Collection = true
	return t
}

// FullName returns the namespace-qualified type name, wrapped in
// Collection(...) when t is a collection.
func (t TypeRef) FullName(namespace string) string {
	name := t.Name
	if t.Kind != TypeKindPrimitive {
		name = namespace + "." + t.Name
	}
	if t.Collection {
		return "Collection(" + name + ")"
	}
	return name
}

func (t TypeRef) String() string {
	if t.Collection {
		return "Collection(" + t.Name + ")"
	}
	return t.Name
}

// Property describes a structural property. Values handed out by the model
// are copies; changing them does not change the model.
type Property struct {
	Name      string
	Field     string
	Type      TypeRef
	MaxLength string
	Precision string
	Scale     string
}

// NavigationProperty describes a reference to another entity type. Like
// Property, values handed out by the model are copies.
type NavigationProperty struct {
	Name       string
	Field      string
	Target     *EntityType
	Collection bool
	Nullable   bool
}

// Type returns the reference to the navigation target.
func (n *NavigationProperty) Type() TypeRef {
	return TypeRef{Kind: TypeKindEntity, Name: n.Target.Name(), Collection: n.Collection, Nullable: n.Nullable}
}

type EntityType struct {
	name        string
	goType      reflect.Type
	base        *EntityType
	key         []*Property
	properties  []*Property
	navigations []*NavigationProperty
}

func (t *EntityType) Name() string { return t.name }

func (t *EntityType) GoType() reflect.Type { return t.goType }

// BaseType returns nil for root types.
func (t *EntityType) BaseType() *EntityType { return t.base }

// Root returns the topmost ancestor, t itself for root types.
func (t *EntityType) Root() *EntityType {
	r := t
	for r.base != nil {
		r = r.base
	}
	return r
}

// Key returns the key properties, declared on the root type.
func (t *EntityType) Key() []*Property { return copyAll(t.Root().key) }

func (t *EntityType) DeclaredProperties() []*Property { return copyAll(t.properties) }

// Properties returns base properties first, then declared ones.
func (t *EntityType) Properties() []*Property { return copyAll(t.allProperties()) }

func (t *EntityType) DeclaredNavigationProperties() []*NavigationProperty {
	return copyAll(t.navigations)
}

func (t *EntityType) NavigationProperties() []*NavigationProperty {
	return copyAll(t.allNavigations())
}

// Property finds a structural property by EDM or Go field name, inherited included.
func (t *EntityType) Property(name string) *Property {
	for _, p := range t.allProperties() {
		if p.Name == name || p.Field == name {
			return copyOf(p)
		}
	}
	return nil
}

func (t *EntityType) NavigationProperty(name string) *NavigationProperty {
	for _, n := range t.allNavigations() {
		if n.Name == name || n.Field == name {
			return copyOf(n)
		}
	}
	return nil
}

func (t *EntityType) allProperties() []*Property {
	if t.base == nil {
		return t.properties
	}
	return slices.Concat(t.base.allProperties(), t.properties)
}

func (t *EntityType) allNavigations() []*NavigationProperty {
	if t.base == nil {
		return t.navigations
	}
	return slices.Concat(t.base.allNavigations(), t.navigations)
}

// DerivesFrom reports whether base is t or one of its ancestors.
func (t *EntityType) DerivesFrom(base *EntityType) bool {
	for c := t; c != nil; c = c.base {
		if c == base {
			return true
		}
	}
	return false
}

func (t *EntityType) String() string {
	var b strings.Builder
	b.WriteString(t.name)
	for c := t.base; c != nil; c = c.base {
		b.WriteString(" < ")
		b.WriteString(c.name)
	}
	return b.String()
}

type ComplexType struct {
	name       string
	goType     reflect.Type
	properties []*Property
}

func (t *ComplexType) Name() string { return t.name }

func (t *ComplexType) GoType() reflect.Type { return t.goType }

func (t *ComplexType) Properties() []*Property { return copyAll(t.properties) }

type EnumType struct {
	name       string
	goType     reflect.Type
	underlying EdmPrimitiveKind
	members    []EnumMember
}

func (t *EnumType) Name() string { return t.name }

func (t *EnumType) GoType() reflect.Type { return t.goType }

func (t *EnumType) UnderlyingType() EdmPrimitiveKind { return t.underlying }

func (t *EnumType) Members() []EnumMember { return slices.Clone(t.members) }

func copyOf[T any](v *T) *T {
	c := *v
	return &c
}

// copyAll returns fresh copies of the values in s.
func copyAll[T any](s []*T) []*T {
	if s == nil {
		return nil
	}
	res := make([]*T, len(s))
	for i, v := range s {
		res[i] = copyOf(v)
	}
	return res
}
