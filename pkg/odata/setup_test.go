package odata

import (
	"time"

	"github.com/shopspring/decimal"
)

type TestProducts struct {
	ID          string          `json:"ID" odata:"key"`
	Name        string          `json:"Name" odata:"maxlength:30"`
	Description string          `json:"Description" odata:"maxlength:300"`
	Price       decimal.Decimal `json:"Price" odata:"precision:9,scale:2"`
	Category    *TestCategories `json:"Category,omitempty"`
	Tags        []string        `json:"Tags"`
	Created     time.Time       `json:"Created"`
	internal    int
}

func (p TestProducts) EntityName() string {
	return "Product"
}

type TestCategories struct {
	ID       string         `json:"ID" odata:"key"`
	Name     string         `json:"Name" odata:"maxlength:111,notnull"`
	Products []TestProducts `json:"Products,omitempty"`
	Address  TestAddress    `json:"Address"`
	Size     Size           `json:"Size"`
	Legacy   string         `json:"-" odata:"-"`
}

func (c TestCategories) EntityName() string {
	return "Category"
}

type TestAddress struct {
	Street string
	City   string `odata:"notnull"`
}

type Size int8

const (
	SizeSmall Size = iota
	SizeLarge
)

func (Size) EnumMembers() []EnumMember {
	return []EnumMember{
		{Name: "Small", Value: int64(SizeSmall)},
		{Name: "Large", Value: int64(SizeLarge)},
	}
}

type Animal struct {
	ID   int
	Name string
}

type Dog struct {
	Animal
	Breed string
	Owner *Owner
}

type Puppy struct {
	Dog
	Age int
}

type Owner struct {
	OwnerID int
	Dogs    []Dog
}

func newTestBuilder() *ModelBuilder {
	return NewModelBuilder(WithNamespace("Test"), WithContainerName("TestContainer"), WithLogger(nil))
}
