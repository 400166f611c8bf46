package structure

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type StructureTestSuite struct {
	suite.Suite
}

type address struct {
	City    string `mango:"city"`
	Country string `mango:"country,omitzero"`
}

type person struct {
	Name    string   `mango:"name"`
	Age     int      `mango:"age"`
	Email   *string  `mango:"email,omitempty"`
	Tags    []string `mango:"tags"`
	Address address  `mango:"address"`
	hidden  string
}

// Converts structs honoring mango tags.
func (s *StructureTestSuite) TestToMapRenamesFields() {
	m, err := ToMap(person{Name: "Luke", Age: 19, Tags: []string{"jedi"}})
	s.NoError(err)
	s.Equal("Luke", m["name"])
	s.Equal(19, m["age"])
	s.Equal([]any{"jedi"}, m["tags"])
	s.NotContains(m, "Name")
	s.NotContains(m, "hidden")
}

// Nested structs convert recursively.
func (s *StructureTestSuite) TestToMapNested() {
	m, err := ToMap(person{Address: address{City: "Mos Eisley"}})
	s.NoError(err)
	nested, ok := m["address"].(map[string]any)
	s.True(ok)
	s.Equal("Mos Eisley", nested["city"])
	s.NotContains(nested, "country")
}

// Nil values are skipped under omitempty.
func (s *StructureTestSuite) TestToMapOmitEmpty() {
	m, err := ToMap(person{Name: "Luke"})
	s.NoError(err)
	s.NotContains(m, "email")
}

// Maps pass through with converted values.
func (s *StructureTestSuite) TestToMapFromMap() {
	m, err := ToMap(map[string]any{"a": 1, "b": []any{person{Name: "x"}}})
	s.NoError(err)
	s.Equal(1, m["a"])
	lst, ok := m["b"].([]any)
	s.True(ok)
	inner, ok := lst[0].(map[string]any)
	s.True(ok)
	s.Equal("x", inner["name"])
}

// Embedded structs without a tag flatten into the parent document.
func (s *StructureTestSuite) TestToMapFlattensEmbedded() {
	type carrier struct {
		Kind string `mango:"kind"`
	}
	type outer struct {
		carrier
		Name string `mango:"name"`
	}
	m, err := ToMap(outer{carrier: carrier{Kind: "person"}, Name: "Luke"})
	s.NoError(err)
	s.Equal("person", m["kind"])
	s.Equal("Luke", m["name"])
}

// Nil and primitives are rejected.
func (s *StructureTestSuite) TestToMapRejectsNonObjects() {
	_, err := ToMap(nil)
	s.ErrorIs(err, ErrNilObj)

	_, err = ToMap(42)
	var nonObject ErrNonObject
	s.ErrorAs(err, &nonObject)
}

// Canonical marshaling orders object keys lexically.
func (s *StructureTestSuite) TestMarshalOrdersKeys() {
	b, err := Marshal(map[string]any{"b": 2, "a": 1, "c": map[string]any{"z": 0, "y": 1}})
	s.NoError(err)
	s.Equal(`{"a":1,"b":2,"c":{"y":1,"z":0}}`, string(b))
}

// Marshaling is deterministic across calls.
func (s *StructureTestSuite) TestMarshalDeterministic() {
	v := map[string]any{"x": []any{1, "two", nil}, "a": true}
	first, err := Marshal(v)
	s.NoError(err)
	second, err := Marshal(v)
	s.NoError(err)
	s.Equal(string(first), string(second))
}

// Structs marshal through their tag names.
func (s *StructureTestSuite) TestMarshalStruct() {
	b, err := Marshal(person{Name: "Luke", Age: 19})
	s.NoError(err)
	s.Contains(string(b), `"name":"Luke"`)
	s.Contains(string(b), `"age":19`)
}

func TestStructureTestSuite(t *testing.T) {
	suite.Run(t, new(StructureTestSuite))
}
