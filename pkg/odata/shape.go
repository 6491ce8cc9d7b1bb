package odata

import (
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	entityInterface = reflect.TypeFor[Entity]()
	enumInterface   = reflect.TypeFor[Enum]()

	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
	decimalType  = reflect.TypeFor[decimal.Decimal]()
)

// odataTags is the parsed form of an `odata:"..."` struct tag, for example
// `odata:"key"` or `odata:"maxlength:30,notnull"`.
type odataTags struct {
	ignore    bool
	key       bool
	notNull   bool
	name      string
	maxLength string
	precision string
	scale     string
}

func getODataTags(field reflect.StructField) odataTags {
	var tags odataTags
	oDataTag := field.Tag.Get("odata")
	if oDataTag == "-" {
		tags.ignore = true
		return tags
	}
	for _, tag := range strings.Split(oDataTag, ",") {
		parts := strings.SplitN(strings.TrimSpace(tag), ":", 2)
		key := strings.ToLower(parts[0])
		if len(parts) == 1 {
			switch key {
			case "key":
				tags.key = true
			case "notnull", "required":
				tags.notNull = true
			}
			continue
		}
		switch key {
		case "name":
			tags.name = parts[1]
		case "maxlength":
			tags.maxLength = parts[1]
		case "precision":
			tags.precision = parts[1]
		case "scale":
			tags.scale = parts[1]
		}
	}
	return tags
}

// Structs with a primitive mapping are never shapes.
func isPrimitiveStruct(t reflect.Type) bool {
	return t == timeType || t == decimalType
}

// isEntityShape reports whether t is a struct with a key of its own or an
// embedded entity base.
func isEntityShape(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || isPrimitiveStruct(t) {
		return false
	}
	base, fields, err := shapeFields(t)
	if err != nil {
		return false
	}
	return base != nil || len(keyFields(t, fields)) > 0
}

// shapeFields returns the embedded entity base of t, if any, and the fields
// t contributes itself. Embedded keyless structs are flattened.
func shapeFields(t reflect.Type) (reflect.Type, []reflect.StructField, error) {
	var (
		base   reflect.Type
		fields []reflect.StructField
	)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && !isPrimitiveStruct(f.Type) {
			if isEntityShape(f.Type) {
				if base != nil {
					return nil, nil, ErrInvalid("type «%v» embeds both «%v» and «%v»", t, base, f.Type)
				}
				base = f.Type
				continue
			}
			_, nested, err := shapeFields(f.Type)
			if err != nil {
				return nil, nil, err
			}
			fields = append(fields, nested...)
			continue
		}
		if !f.IsExported() || getODataTags(f).ignore {
			continue
		}
		fields = append(fields, f)
	}
	return base, fields, nil
}

// keyFields returns the fields tagged as key or, without tags, the field
// called ID or <TypeName>ID.
func keyFields(t reflect.Type, fields []reflect.StructField) []reflect.StructField {
	var keys []reflect.StructField
	for _, f := range fields {
		if getODataTags(f).key {
			keys = append(keys, f)
		}
	}
	if len(keys) > 0 {
		return keys
	}
	for _, f := range fields {
		if f.Name == "ID" || f.Name == t.Name()+"ID" {
			return []reflect.StructField{f}
		}
	}
	return nil
}

// edmTypeName returns EntityName() when t declares it and the Go type name
// otherwise. A name promoted from an embedded shape does not count.
func edmTypeName(t reflect.Type) string {
	if !reflect.PointerTo(t).Implements(entityInterface) {
		return normalizeName(t.Name())
	}
	name := reflect.New(t).Interface().(Entity).EntityName()
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.Anonymous || f.Type.Kind() != reflect.Struct {
				continue
			}
			if reflect.PointerTo(f.Type).Implements(entityInterface) &&
				reflect.New(f.Type).Interface().(Entity).EntityName() == name {
				return normalizeName(t.Name())
			}
		}
	}
	return normalizeName(name)
}

func (b *ModelBuilder) claimTypeName(name string, t reflect.Type) error {
	if err := checkIdentifier("type", name); err != nil {
		return err
	}
	if other, ok := b.typeNames[name]; ok && other != t {
		return ErrAlreadyExists("type name «%s» is used by both «%v» and «%v»", name, other, t)
	}
	b.typeNames[name] = t
	return nil
}

func (b *ModelBuilder) addEntityType(t reflect.Type) (et *EntityType, err error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if et, ok := b.entityTypes[t]; ok {
		return et, nil
	}
	if t.Kind() != reflect.Struct || isPrimitiveStruct(t) {
		return nil, ErrInvalid("entity type «%v» is not a struct", t)
	}
	if _, ok := b.complexTypes[t]; ok {
		return nil, ErrIncompatible("«%v» is already registered as a complex type", t)
	}
	baseType, fields, err := shapeFields(t)
	if err != nil {
		return nil, err
	}
	name := edmTypeName(t)
	if err := b.claimTypeName(name, t); err != nil {
		return nil, err
	}

	created := &EntityType{name: name, goType: t}
	et = created
	b.entityTypes[t] = et
	b.entityOrder = append(b.entityOrder, et)
	defer func() {
		if err != nil {
			b.dropEntityType(created)
		}
	}()

	if baseType != nil {
		if et.base, err = b.addEntityType(baseType); err != nil {
			return nil, err
		}
	}

	keys := keyFields(t, fields)
	if et.base != nil {
		for _, f := range fields {
			if getODataTags(f).key {
				return nil, ErrInvalid("derived entity type «%s» cannot declare key «%s», the key is inherited from «%s»",
					name, f.Name, et.base.Root().name)
			}
		}
		keys = nil
	} else if len(keys) == 0 {
		return nil, ErrMissed("key of entity type «%s»", name)
	}

	for _, f := range fields {
		isKey := false
		for _, k := range keys {
			if k.Name == f.Name {
				isKey = true
				break
			}
		}
		if err := b.addEntityField(et, f, isKey); err != nil {
			return nil, err
		}
	}

	b.logger.Printf("Registered entity type: %s", et)
	return et, nil
}

func (b *ModelBuilder) dropEntityType(et *EntityType) {
	delete(b.entityTypes, et.goType)
	delete(b.typeNames, et.name)
	b.entityOrder = slices.DeleteFunc(b.entityOrder, func(o *EntityType) bool { return o == et })
}

func fieldName(f reflect.StructField, tags odataTags) string {
	if tags.name != "" {
		return normalizeName(tags.name)
	}
	return normalizeName(f.Name)
}

func (b *ModelBuilder) addEntityField(et *EntityType, f reflect.StructField, isKey bool) error {
	tags := getODataTags(f)
	name := fieldName(f, tags)
	if err := checkIdentifier("property", name); err != nil {
		return err
	}
	if et.Property(name) != nil || et.NavigationProperty(name) != nil {
		return ErrAlreadyExists("property «%s» of entity type «%s»", name, et.name)
	}

	ref, err := b.typeRefFor(f.Type)
	if err != nil {
		return EnrichError(err, "property «%s.%s»", et.name, name)
	}

	if ref.Kind == TypeKindEntity {
		if isKey {
			return ErrInvalid("key «%s.%s» refers to an entity type", et.name, name)
		}
		elem := f.Type
		for elem.Kind() == reflect.Pointer || elem.Kind() == reflect.Slice {
			elem = elem.Elem()
		}
		et.navigations = append(et.navigations, &NavigationProperty{
			Name:       name,
			Field:      f.Name,
			Target:     b.entityTypes[elem],
			Collection: ref.Collection,
			Nullable:   !ref.Collection && ref.Nullable && !tags.notNull,
		})
		return nil
	}

	if isKey {
		if ref.Collection || (ref.Kind != TypeKindPrimitive && ref.Kind != TypeKindEnum) {
			return ErrInvalid("key «%s.%s» must be a single primitive or enum value, got %v", et.name, name, ref)
		}
		ref.Nullable = false
	}
	if tags.notNull {
		ref.Nullable = false
	}
	p := &Property{
		Name:      name,
		Field:     f.Name,
		Type:      ref,
		MaxLength: tags.maxLength,
		Precision: tags.precision,
		Scale:     tags.scale,
	}
	et.properties = append(et.properties, p)
	if isKey {
		et.key = append(et.key, p)
	}
	return nil
}

func (b *ModelBuilder) addComplexType(t reflect.Type) (ct *ComplexType, err error) {
	if ct, ok := b.complexTypes[t]; ok {
		return ct, nil
	}
	if _, ok := b.entityTypes[t]; ok {
		return nil, ErrIncompatible("«%v» is already registered as an entity type", t)
	}
	_, fields, err := shapeFields(t)
	if err != nil {
		return nil, err
	}
	name := edmTypeName(t)
	if err := b.claimTypeName(name, t); err != nil {
		return nil, err
	}

	created := &ComplexType{name: name, goType: t}
	ct = created
	b.complexTypes[t] = ct
	b.complexOrder = append(b.complexOrder, ct)
	defer func() {
		if err != nil {
			delete(b.complexTypes, t)
			delete(b.typeNames, name)
			b.complexOrder = slices.DeleteFunc(b.complexOrder, func(o *ComplexType) bool { return o == created })
		}
	}()

	for _, f := range fields {
		tags := getODataTags(f)
		pname := fieldName(f, tags)
		if err := checkIdentifier("property", pname); err != nil {
			return nil, err
		}
		if findProperty(ct.properties, pname) != nil {
			return nil, ErrAlreadyExists("property «%s» of complex type «%s»", pname, name)
		}
		ref, err := b.typeRefFor(f.Type)
		if err != nil {
			return nil, EnrichError(err, "property «%s.%s»", name, pname)
		}
		if ref.Kind == TypeKindEntity {
			return nil, ErrUnsupported("complex type «%s» cannot navigate to entity type «%s»", name, ref.Name)
		}
		if tags.notNull {
			ref.Nullable = false
		}
		ct.properties = append(ct.properties, &Property{
			Name:      pname,
			Field:     f.Name,
			Type:      ref,
			MaxLength: tags.maxLength,
			Precision: tags.precision,
			Scale:     tags.scale,
		})
	}

	b.logger.Printf("Registered complex type: %s", name)
	return ct, nil
}

func (b *ModelBuilder) addEnumType(t reflect.Type) (*EnumType, error) {
	if et, ok := b.enumTypes[t]; ok {
		return et, nil
	}
	var underlying EdmPrimitiveKind
	switch t.Kind() {
	case reflect.Int, reflect.Int32:
		underlying = EdmInt32
	case reflect.Int64:
		underlying = EdmInt64
	case reflect.Int16:
		underlying = EdmInt16
	case reflect.Int8:
		underlying = EdmSByte
	case reflect.Uint8:
		underlying = EdmByte
	default:
		return nil, ErrUnsupported("enum type «%v» must have an integer underlying type", t)
	}
	name := edmTypeName(t)
	members := reflect.New(t).Interface().(Enum).EnumMembers()
	if len(members) == 0 {
		return nil, ErrMissed("members of enum type «%s»", name)
	}
	seen := make(map[string]bool, len(members))
	normalized := make([]EnumMember, 0, len(members))
	for _, m := range members {
		m.Name = normalizeName(m.Name)
		if err := checkIdentifier("enum member", m.Name); err != nil {
			return nil, err
		}
		if seen[m.Name] {
			return nil, ErrAlreadyExists("member «%s» of enum type «%s»", m.Name, name)
		}
		seen[m.Name] = true
		normalized = append(normalized, m)
	}
	if err := b.claimTypeName(name, t); err != nil {
		return nil, err
	}

	et := &EnumType{name: name, goType: t, underlying: underlying, members: normalized}
	b.enumTypes[t] = et
	b.enumOrder = append(b.enumOrder, et)
	b.logger.Printf("Registered enum type: %s", name)
	return et, nil
}

func primitiveRef(kind EdmPrimitiveKind, nullable bool) TypeRef {
	ref := Primitive(kind)
	ref.Nullable = ref.Nullable || nullable
	return ref
}

// typeRefFor maps a Go type to its EDM reference, registering the complex,
// enum and entity types it meets on the way.
func (b *ModelBuilder) typeRefFor(t reflect.Type) (TypeRef, error) {
	nullable := false
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		nullable = true
	}

	switch t {
	case timeType:
		return primitiveRef(EdmDateTimeOffset, nullable), nil
	case durationType:
		return primitiveRef(EdmDuration, nullable), nil
	case uuidType:
		return primitiveRef(EdmGuid, nullable), nil
	case decimalType:
		return primitiveRef(EdmDecimal, nullable), nil
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return primitiveRef(EdmBinary, nullable), nil
	}
	if t.Name() != "" && reflect.PointerTo(t).Implements(enumInterface) {
		en, err := b.addEnumType(t)
		if err != nil {
			return TypeRef{}, err
		}
		return TypeRef{Kind: TypeKindEnum, Name: en.name, Nullable: nullable}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return primitiveRef(EdmString, nullable), nil
	case reflect.Bool:
		return primitiveRef(EdmBoolean, nullable), nil
	case reflect.Int, reflect.Int32:
		return primitiveRef(EdmInt32, nullable), nil
	case reflect.Int64:
		return primitiveRef(EdmInt64, nullable), nil
	case reflect.Int16:
		return primitiveRef(EdmInt16, nullable), nil
	case reflect.Int8:
		return primitiveRef(EdmSByte, nullable), nil
	case reflect.Uint8:
		return primitiveRef(EdmByte, nullable), nil
	case reflect.Float32:
		return primitiveRef(EdmSingle, nullable), nil
	case reflect.Float64:
		return primitiveRef(EdmDouble, nullable), nil
	case reflect.Slice:
		elem, err := b.typeRefFor(t.Elem())
		if err != nil {
			return TypeRef{}, err
		}
		if elem.Collection {
			return TypeRef{}, ErrUnsupported("nested collection «%v»", t)
		}
		elem.Collection = true
		return elem, nil
	case reflect.Struct:
		if isEntityShape(t) {
			et, err := b.addEntityType(t)
			if err != nil {
				return TypeRef{}, err
			}
			return TypeRef{Kind: TypeKindEntity, Name: et.name, Nullable: nullable}, nil
		}
		ct, err := b.addComplexType(t)
		if err != nil {
			return TypeRef{}, err
		}
		return TypeRef{Kind: TypeKindComplex, Name: ct.name, Nullable: nullable}, nil
	}
	return TypeRef{}, ErrUnsupported("Go type «%v» has no EDM mapping", t)
}
