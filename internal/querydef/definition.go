package querydef

// Definition is a declarative query over one table: the fields it selects
// and the pipeline evaluated over them.
//
// Definitions are written in YAML or CUE. Both formats share the same
// field names:
//
//	name: oslo_adults
//	table: person
//	dialect: sqlite
//	fields:
//	  - name: id
//	  - name: age
//	  - name: code
//	    mapper: int_to_string
//	pipeline:
//	  - filter: {field: age, kind: greater_or_equal, value: 18}
//	  - sorted: [{field: age, nulls: first}]
//	  - limit: 5
type Definition struct {
	Name     string     `yaml:"name" json:"name"`
	Table    string     `yaml:"table" json:"table"`
	Dialect  string     `yaml:"dialect,omitempty" json:"dialect,omitempty"`
	Fields   []FieldDef `yaml:"fields" json:"fields"`
	Pipeline []StepDef  `yaml:"pipeline" json:"pipeline"`
}

// FieldDef declares a selected column. Mapper names a built-in TypeMapper;
// empty means identity.
type FieldDef struct {
	Name   string `yaml:"name" json:"name"`
	Mapper string `yaml:"mapper,omitempty" json:"mapper,omitempty"`
}

// StepDef is one pipeline operation. Exactly one member must be set.
type StepDef struct {
	Filter *PredicateDef `yaml:"filter,omitempty" json:"filter,omitempty"`
	Sorted []SortKeyDef  `yaml:"sorted,omitempty" json:"sorted,omitempty"`
	Skip   *int64        `yaml:"skip,omitempty" json:"skip,omitempty"`
	Limit  *int64        `yaml:"limit,omitempty" json:"limit,omitempty"`
	// Other names an operation evaluated in memory only. Known names are
	// "distinct" and "reverse"; any other name is the identity.
	Other string `yaml:"other,omitempty" json:"other,omitempty"`
}

// PredicateDef is either a combination (And / Or) or an atomic comparison
// on Field. Value holds the single operand; Values holds list operands
// (IN, NOT_IN) and the two BETWEEN bounds.
type PredicateDef struct {
	And []PredicateDef `yaml:"and,omitempty" json:"and,omitempty"`
	Or  []PredicateDef `yaml:"or,omitempty" json:"or,omitempty"`

	Field     string `yaml:"field,omitempty" json:"field,omitempty"`
	Kind      string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Value     any    `yaml:"value,omitempty" json:"value,omitempty"`
	Values    []any  `yaml:"values,omitempty" json:"values,omitempty"`
	Inclusion string `yaml:"inclusion,omitempty" json:"inclusion,omitempty"`
}

// SortKeyDef orders by one field. Nulls is NONE, FIRST or LAST.
type SortKeyDef struct {
	Field    string `yaml:"field" json:"field"`
	Reversed bool   `yaml:"reversed,omitempty" json:"reversed,omitempty"`
	Nulls    string `yaml:"nulls,omitempty" json:"nulls,omitempty"`
}
