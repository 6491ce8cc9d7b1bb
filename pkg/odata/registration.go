package odata

import (
	"reflect"
)

// EntitySetOf declares the entity set name rooted at shape T.
func EntitySetOf[T any](b *ModelBuilder, name string) (*EntitySetConfig, error) {
	return b.AddEntitySet(name, reflect.TypeFor[T]())
}

// EnsureEntitySet returns the entity set name, creating it for T if absent
// and otherwise only registering T as a known entity type.
func EnsureEntitySet[T any](b *ModelBuilder, name string) (*EntitySetConfig, error) {
	return b.EnsureEntitySet(name, reflect.TypeFor[T]())
}

// EntityTypeOf registers shape T and returns its configuration.
func EntityTypeOf[T any](b *ModelBuilder) *EntityTypeConfig {
	return b.AddEntityType(reflect.TypeFor[T]())
}

// TypeRefOf maps T to an EDM type reference, registering the types it needs.
func TypeRefOf[T any](b *ModelBuilder) (TypeRef, error) {
	if b.sealed {
		return TypeRef{}, ErrBuilderSealed
	}
	ref, err := b.typeRefFor(reflect.TypeFor[T]())
	if err != nil {
		return TypeRef{}, b.fail(err)
	}
	return ref, nil
}

// ReturnsFromEntitySet makes op return a single T from the entity set
// setName, creating the set for T if it does not exist yet.
func ReturnsFromEntitySet[T any](b *ModelBuilder, op *OperationConfig, setName string) *OperationConfig {
	set, err := EnsureEntitySet[T](b, setName)
	if err != nil {
		return op
	}
	return op.ReturnsFromEntitySet(set, EntityTypeOf[T](b))
}

// ReturnsCollectionFromEntitySet makes op return a collection of T from the
// entity set setName, creating the set for T if it does not exist yet.
func ReturnsCollectionFromEntitySet[T any](b *ModelBuilder, op *OperationConfig, setName string) *OperationConfig {
	set, err := EnsureEntitySet[T](b, setName)
	if err != nil {
		return op
	}
	return op.ReturnsCollectionFromEntitySet(set, EntityTypeOf[T](b))
}
