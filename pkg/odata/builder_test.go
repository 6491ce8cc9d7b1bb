package odata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func propertyNames(props []*Property) []string {
	names := make([]string, 0, len(props))
	for _, p := range props {
		names = append(names, p.Name)
	}
	return names
}

func TestEntitySetRegistersReachableTypes(t *testing.T) {
	b := newTestBuilder()
	set, err := EntitySetOf[TestProducts](b, "Products")
	require.NoError(t, err)
	require.Equal(t, "Products", set.Name())
	require.Equal(t, "Product", set.EntityType().Name())

	m, err := b.Build()
	require.NoError(t, err)

	product, ok := m.EntityType("Product")
	require.True(t, ok)
	if diff := cmp.Diff([]string{"ID", "Name", "Description", "Price", "Tags", "Created"}, propertyNames(product.Properties())); diff != "" {
		t.Errorf("Product properties mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, product.Key(), 1)
	assert.Equal(t, "ID", product.Key()[0].Name)
	assert.False(t, product.Key()[0].Type.Nullable)

	nav := product.NavigationProperty("Category")
	require.NotNil(t, nav)
	assert.Equal(t, "Category", nav.Target.Name())
	assert.False(t, nav.Collection)
	assert.True(t, nav.Nullable)

	category, ok := m.EntityType("Category")
	require.True(t, ok)
	assert.Equal(t, []string{"ID", "Name", "Address", "Size"}, propertyNames(category.Properties()))
	assert.False(t, category.Property("Name").Type.Nullable)
	assert.Equal(t, "111", category.Property("Name").MaxLength)
	require.NotNil(t, category.NavigationProperty("Products"))
	assert.True(t, category.NavigationProperty("Products").Collection)

	require.Len(t, m.ComplexTypes(), 1)
	assert.Equal(t, "TestAddress", m.ComplexTypes()[0].Name())
	require.Len(t, m.EnumTypes(), 1)
	assert.Equal(t, "Size", m.EnumTypes()[0].Name())
}

func TestEntitySetConflicts(t *testing.T) {
	t.Run("same shape is idempotent", func(t *testing.T) {
		b := newTestBuilder()
		first, err := EntitySetOf[Animal](b, "Animals")
		require.NoError(t, err)
		second, err := EntitySetOf[Animal](b, "Animals")
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Len(t, b.EntitySets(), 1)
	})

	t.Run("different shape fails fast", func(t *testing.T) {
		b := newTestBuilder()
		_, err := EntitySetOf[Animal](b, "Animals")
		require.NoError(t, err)
		_, err = EntitySetOf[Dog](b, "Animals")
		require.ErrorIs(t, err, ErrAlreadyExistsError)
		assert.Equal(t, "Animal", b.FindEntitySet("Animals").EntityType().Name())
		assert.Nil(t, b.FindEntityType("Dog"))
		assert.Nil(t, b.FindEntityType("Owner"))

		_, err = b.Build()
		require.ErrorIs(t, err, ErrAlreadyExistsError)
	})

	t.Run("invalid name", func(t *testing.T) {
		b := newTestBuilder()
		_, err := EntitySetOf[Animal](b, "All Animals")
		require.ErrorIs(t, err, ErrInvalidError)
	})

	t.Run("keyless shape", func(t *testing.T) {
		b := newTestBuilder()
		_, err := EntitySetOf[TestAddress](b, "Addresses")
		require.ErrorIs(t, err, ErrMissedError)
		assert.Nil(t, b.FindEntityType("TestAddress"))
	})
}

func TestEnsureEntitySet(t *testing.T) {
	t.Run("creates once", func(t *testing.T) {
		b := newTestBuilder()
		first, err := EnsureEntitySet[Animal](b, "Animals")
		require.NoError(t, err)
		second, err := EnsureEntitySet[Animal](b, "Animals")
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Len(t, b.EntitySets(), 1)
	})

	t.Run("attaches a new shape to an existing set", func(t *testing.T) {
		b := newTestBuilder()
		animals, err := EntitySetOf[Animal](b, "Animals")
		require.NoError(t, err)
		assert.Nil(t, b.FindEntityType("Dog"))

		attached, err := EnsureEntitySet[Dog](b, "Animals")
		require.NoError(t, err)
		assert.Same(t, animals, attached)
		assert.Equal(t, "Animal", attached.EntityType().Name())
		assert.Len(t, b.EntitySets(), 1)
		require.NotNil(t, b.FindEntityType("Dog"))

		m, err := b.Build()
		require.NoError(t, err)
		set, ok := m.EntitySet("Animals")
		require.True(t, ok)
		assert.Equal(t, "Animal", set.EntityType().Name())
		assert.True(t, m.IsAssignable("Animal", "Dog"))
		assert.False(t, m.IsAssignable("Dog", "Animal"))
	})
}

func TestDerivedTypes(t *testing.T) {
	b := newTestBuilder()
	_, err := EntitySetOf[Animal](b, "Animals")
	require.NoError(t, err)
	puppy := EntityTypeOf[Puppy](b)
	require.NotNil(t, puppy.EntityType())

	m, err := b.Build()
	require.NoError(t, err)

	p, ok := m.EntityType("Puppy")
	require.True(t, ok)
	assert.Equal(t, "Puppy < Dog < Animal", p.String())
	assert.Equal(t, []string{"ID", "Name", "Breed", "Age"}, propertyNames(p.Properties()))
	assert.Equal(t, []string{"Age"}, propertyNames(p.DeclaredProperties()))
	require.Len(t, p.Key(), 1)
	assert.Equal(t, "ID", p.Key()[0].Name)
	assert.NotNil(t, p.NavigationProperty("Owner"))
	assert.Empty(t, p.DeclaredNavigationProperties())
	require.Len(t, p.NavigationProperties(), 1)

	dog, ok := m.EntityType("Dog")
	require.True(t, ok)
	declared := dog.DeclaredNavigationProperties()
	require.Len(t, declared, 1)
	assert.Equal(t, "Owner", declared[0].Name)
	assert.Equal(t, "Owner", declared[0].Target.Name())

	var derived []string
	for _, d := range m.DerivedTypes("Animal") {
		derived = append(derived, d.Name())
	}
	assert.ElementsMatch(t, []string{"Dog", "Puppy"}, derived)
}

type BadDog struct {
	Animal
	Tag string `odata:"key"`
}

type TwoBases struct {
	Animal
	Owner
}

type ClashingName struct {
	ID int
}

func (ClashingName) EntityName() string { return "Animal" }

func TestEntityTypeErrors(t *testing.T) {
	t.Run("derived type declares a key", func(t *testing.T) {
		b := newTestBuilder()
		cfg := EntityTypeOf[BadDog](b)
		assert.Nil(t, cfg.EntityType())
		cfg.HasRequired("Owner")
		_, err := b.Build()
		require.ErrorIs(t, err, ErrInvalidError)
	})

	t.Run("two embedded entity types", func(t *testing.T) {
		b := newTestBuilder()
		EntityTypeOf[TwoBases](b)
		_, err := b.Build()
		require.ErrorIs(t, err, ErrInvalidError)
	})

	t.Run("type name used twice", func(t *testing.T) {
		b := newTestBuilder()
		EntityTypeOf[Animal](b)
		EntityTypeOf[ClashingName](b)
		_, err := b.Build()
		require.ErrorIs(t, err, ErrAlreadyExistsError)
	})

	t.Run("not a struct", func(t *testing.T) {
		b := newTestBuilder()
		EntityTypeOf[int](b)
		_, err := b.Build()
		require.ErrorIs(t, err, ErrInvalidError)
	})
}

func TestHasRequired(t *testing.T) {
	b := newTestBuilder()
	dog := EntityTypeOf[Dog](b).HasRequired("Owner")
	assert.False(t, dog.EntityType().NavigationProperty("Owner").Nullable)

	b = newTestBuilder()
	EntityTypeOf[Owner](b).HasRequired("Dogs")
	_, err := b.Build()
	require.ErrorIs(t, err, ErrInvalidError)

	b = newTestBuilder()
	EntityTypeOf[Dog](b).HasRequired("Missing")
	_, err = b.Build()
	require.ErrorIs(t, err, ErrNotFoundError)

	// declared on the base, not on Puppy
	b = newTestBuilder()
	EntityTypeOf[Puppy](b).HasRequired("Owner")
	_, err = b.Build()
	require.ErrorIs(t, err, ErrNotFoundError)
}

func TestComplexProperty(t *testing.T) {
	b := newTestBuilder()
	EntityTypeOf[TestCategories](b).ComplexProperty("Address")
	_, err := b.Build()
	require.NoError(t, err)

	b = newTestBuilder()
	EntityTypeOf[TestProducts](b).ComplexProperty("Category")
	_, err = b.Build()
	require.ErrorIs(t, err, ErrIncompatibleError)

	b = newTestBuilder()
	EntityTypeOf[TestProducts](b).ComplexProperty("Name")
	_, err = b.Build()
	require.ErrorIs(t, err, ErrInvalidError)

	b = newTestBuilder()
	EntityTypeOf[TestProducts](b).ComplexProperty("Nope")
	_, err = b.Build()
	require.ErrorIs(t, err, ErrNotFoundError)
}

func TestBuilderSealed(t *testing.T) {
	b := newTestBuilder()
	_, err := EntitySetOf[Animal](b, "Animals")
	require.NoError(t, err)
	_, err = b.Build()
	require.NoError(t, err)

	_, err = EntitySetOf[Dog](b, "Dogs")
	require.ErrorIs(t, err, ErrBuilderSealed)
	_, err = EnsureEntitySet[Dog](b, "Animals")
	require.ErrorIs(t, err, ErrBuilderSealed)
	assert.Nil(t, EntityTypeOf[Dog](b).EntityType())
	assert.Nil(t, b.Action("Late").Operation())
	_, err = b.Build()
	require.ErrorIs(t, err, ErrBuilderSealed)
}

type Straße struct {
	ID int
}

func TestNamesAreNormalized(t *testing.T) {
	b := newTestBuilder()
	// "u" followed by a combining diaeresis
	set, err := EntitySetOf[Animal](b, "u\u0308Animals")
	require.NoError(t, err)
	assert.Equal(t, "\u00fcAnimals", set.Name())
	assert.Same(t, set, b.FindEntitySet("\u00fcAnimals"))

	EntityTypeOf[Straße](b)
	m, err := b.Build()
	require.NoError(t, err)

	_, ok := m.EntitySet("u\u0308Animals")
	assert.True(t, ok)
	_, ok = m.EntitySet("\u00fcAnimals")
	assert.True(t, ok)
	_, ok = m.EntityType("Straße")
	assert.True(t, ok)
}
