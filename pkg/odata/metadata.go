package odata

import (
	"encoding/xml"
	"strconv"
)

const (
	edmxNamespace = "http://docs.oasis-open.org/odata/ns/edmx"
	edmNamespace  = "http://docs.oasis-open.org/odata/ns/edm"
)

type csdlEdmx struct {
	XMLName      xml.Name         `xml:"edmx:Edmx"`
	Version      string           `xml:"Version,attr"`
	Xmlns        string           `xml:"xmlns:edmx,attr"`
	DataServices csdlDataServices `xml:"edmx:DataServices"`
}

type csdlDataServices struct {
	Schema csdlSchema `xml:"Schema"`
}

type csdlSchema struct {
	Xmlns        string              `xml:"xmlns,attr"`
	Namespace    string              `xml:"Namespace,attr"`
	EntityTypes  []csdlEntityType    `xml:"EntityType"`
	ComplexTypes []csdlComplexType   `xml:"ComplexType"`
	EnumTypes    []csdlEnumType      `xml:"EnumType"`
	Actions      []csdlOperation     `xml:"Action"`
	Functions    []csdlOperation     `xml:"Function"`
	Container    csdlEntityContainer `xml:"EntityContainer"`
}

type csdlEntityType struct {
	Name                 string                   `xml:"Name,attr"`
	BaseType             string                   `xml:"BaseType,attr,omitempty"`
	Key                  *csdlKey                 `xml:"Key,omitempty"`
	Properties           []csdlProperty           `xml:"Property"`
	NavigationProperties []csdlNavigationProperty `xml:"NavigationProperty"`
}

type csdlKey struct {
	PropertyRefs []csdlPropertyRef `xml:"PropertyRef"`
}

type csdlPropertyRef struct {
	Name string `xml:"Name,attr"`
}

type csdlProperty struct {
	Name      string `xml:"Name,attr"`
	Type      string `xml:"Type,attr"`
	Nullable  string `xml:"Nullable,attr,omitempty"`
	MaxLength string `xml:"MaxLength,attr,omitempty"`
	Precision string `xml:"Precision,attr,omitempty"`
	Scale     string `xml:"Scale,attr,omitempty"`
}

type csdlNavigationProperty struct {
	Name     string `xml:"Name,attr"`
	Type     string `xml:"Type,attr"`
	Nullable string `xml:"Nullable,attr,omitempty"`
}

type csdlComplexType struct {
	Name       string         `xml:"Name,attr"`
	Properties []csdlProperty `xml:"Property"`
}

type csdlEnumType struct {
	Name           string           `xml:"Name,attr"`
	UnderlyingType string           `xml:"UnderlyingType,attr,omitempty"`
	Members        []csdlEnumMember `xml:"Member"`
}

type csdlEnumMember struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

type csdlOperation struct {
	Name       string          `xml:"Name,attr"`
	IsBound    string          `xml:"IsBound,attr,omitempty"`
	Parameters []csdlParameter `xml:"Parameter"`
	ReturnType *csdlReturnType `xml:"ReturnType,omitempty"`
}

type csdlParameter struct {
	Name     string `xml:"Name,attr"`
	Type     string `xml:"Type,attr"`
	Nullable string `xml:"Nullable,attr,omitempty"`
}

type csdlReturnType struct {
	Type     string `xml:"Type,attr"`
	Nullable string `xml:"Nullable,attr,omitempty"`
}

type csdlEntityContainer struct {
	Name            string               `xml:"Name,attr"`
	EntitySets      []csdlEntitySet      `xml:"EntitySet"`
	ActionImports   []csdlActionImport   `xml:"ActionImport"`
	FunctionImports []csdlFunctionImport `xml:"FunctionImport"`
}

type csdlEntitySet struct {
	Name                       string                          `xml:"Name,attr"`
	EntityType                 string                          `xml:"EntityType,attr"`
	NavigationPropertyBindings []csdlNavigationPropertyBinding `xml:"NavigationPropertyBinding"`
}

type csdlNavigationPropertyBinding struct {
	Path   string `xml:"Path,attr"`
	Target string `xml:"Target,attr"`
}

type csdlActionImport struct {
	Name      string `xml:"Name,attr"`
	Action    string `xml:"Action,attr"`
	EntitySet string `xml:"EntitySet,attr,omitempty"`
}

type csdlFunctionImport struct {
	Name                     string `xml:"Name,attr"`
	Function                 string `xml:"Function,attr"`
	EntitySet                string `xml:"EntitySet,attr,omitempty"`
	IncludeInServiceDocument string `xml:"IncludeInServiceDocument,attr,omitempty"`
}

// GenerateMetadata renders the model as a CSDL 4.0 XML document, the body
// of the $metadata resource.
func GenerateMetadata(m *Model) (string, error) {
	ns := m.namespace
	schema := csdlSchema{
		Xmlns:     edmNamespace,
		Namespace: ns,
		Container: csdlEntityContainer{Name: m.container},
	}

	for _, et := range m.entityTypes {
		schema.EntityTypes = append(schema.EntityTypes, generateEntityTypeMetadata(ns, et))
	}
	for _, ct := range m.complexTypes {
		c := csdlComplexType{Name: ct.name}
		for _, p := range ct.properties {
			c.Properties = append(c.Properties, generatePropertyMetadata(ns, p))
		}
		schema.ComplexTypes = append(schema.ComplexTypes, c)
	}
	for _, en := range m.enumTypes {
		e := csdlEnumType{Name: en.name}
		if en.underlying != EdmInt32 {
			e.UnderlyingType = string(en.underlying)
		}
		for _, mem := range en.members {
			e.Members = append(e.Members, csdlEnumMember{Name: mem.Name, Value: strconv.FormatInt(mem.Value, 10)})
		}
		schema.EnumTypes = append(schema.EnumTypes, e)
	}

	imported := make(map[string]bool)
	for _, op := range m.operations {
		o := generateOperationMetadata(ns, op)
		if op.kind == OperationKindAction {
			schema.Actions = append(schema.Actions, o)
		} else {
			schema.Functions = append(schema.Functions, o)
		}
		if op.binding != nil || imported[op.name] {
			continue
		}
		imported[op.name] = true
		if op.kind == OperationKindAction {
			schema.Container.ActionImports = append(schema.Container.ActionImports, csdlActionImport{
				Name:      op.name,
				Action:    ns + "." + op.name,
				EntitySet: op.EntitySet(),
			})
		} else {
			schema.Container.FunctionImports = append(schema.Container.FunctionImports, csdlFunctionImport{
				Name:                     op.name,
				Function:                 ns + "." + op.name,
				EntitySet:                op.EntitySet(),
				IncludeInServiceDocument: "true",
			})
		}
	}

	for _, set := range m.entitySets {
		s := csdlEntitySet{Name: set.name, EntityType: ns + "." + set.entityType.name}
		for _, nb := range set.bindings {
			s.NavigationPropertyBindings = append(s.NavigationPropertyBindings, csdlNavigationPropertyBinding(nb))
		}
		schema.Container.EntitySets = append(schema.Container.EntitySets, s)
	}

	doc := csdlEdmx{
		Version:      "4.0",
		Xmlns:        edmxNamespace,
		DataServices: csdlDataServices{Schema: schema},
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", EnrichError(err, "model %s", ns)
	}
	return xml.Header + string(out), nil
}

func generateEntityTypeMetadata(ns string, et *EntityType) csdlEntityType {
	e := csdlEntityType{Name: et.name}
	if et.base != nil {
		e.BaseType = ns + "." + et.base.name
	} else {
		e.Key = &csdlKey{}
		for _, k := range et.key {
			e.Key.PropertyRefs = append(e.Key.PropertyRefs, csdlPropertyRef{Name: k.Name})
		}
	}
	for _, p := range et.properties {
		e.Properties = append(e.Properties, generatePropertyMetadata(ns, p))
	}
	for _, n := range et.navigations {
		e.NavigationProperties = append(e.NavigationProperties, generateNavigationPropertyMetadata(ns, n))
	}
	return e
}

func generatePropertyMetadata(ns string, p *Property) csdlProperty {
	return csdlProperty{
		Name:      p.Name,
		Type:      p.Type.FullName(ns),
		Nullable:  nullableAttr(p.Type),
		MaxLength: p.MaxLength,
		Precision: p.Precision,
		Scale:     p.Scale,
	}
}

func generateNavigationPropertyMetadata(ns string, n *NavigationProperty) csdlNavigationProperty {
	return csdlNavigationProperty{
		Name:     n.Name,
		Type:     n.Type().FullName(ns),
		Nullable: nullableAttr(n.Type()),
	}
}

func generateOperationMetadata(ns string, op *Operation) csdlOperation {
	o := csdlOperation{Name: op.name}
	if op.binding != nil {
		o.IsBound = "true"
		o.Parameters = append(o.Parameters, csdlParameter{
			Name: bindingParameterName,
			Type: op.binding.Type().FullName(ns),
		})
	}
	for _, p := range op.parameters {
		o.Parameters = append(o.Parameters, csdlParameter{
			Name:     p.Name,
			Type:     p.Type.FullName(ns),
			Nullable: nullableAttr(p.Type),
		})
	}
	if op.returnType != nil {
		o.ReturnType = &csdlReturnType{
			Type:     op.returnType.FullName(ns),
			Nullable: nullableAttr(*op.returnType),
		}
	}
	return o
}

// Only Nullable="false" is written, true is the CSDL default. Collections
// carry no Nullable attribute.
func nullableAttr(t TypeRef) string {
	if t.Collection || t.Nullable {
		return ""
	}
	return "false"
}
