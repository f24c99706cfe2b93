package types

// ValueType tags the payload carried by a Value, a Datum or a container
// element (spec §3 "Types").
type ValueType int32

const (
	TypeNone ValueType = iota
	TypeInteger
	TypeFloat
	TypeString
	TypeBlob
	TypeRef
	TypeFileRef
	TypeStruct
	TypeContainer
	TypeMultiset
)

func (t ValueType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeString:
		return "STRING"
	case TypeBlob:
		return "BLOB"
	case TypeRef:
		return "REF"
	case TypeFileRef:
		return "FILE_REF"
	case TypeStruct:
		return "STRUCT"
	case TypeContainer:
		return "CONTAINER"
	case TypeMultiset:
		return "MULTISET"
	default:
		return "NONE"
	}
}

// FileRefValue is the payload of a FILE_REF value: two referenced ids plus a
// boolean flag (spec §3 Types).
type FileRefValue struct {
	ID1, ID2 int64
	Flag     bool
}

// StructField is one named-by-position field of a STRUCT value. Fields carry
// their own type tag since struct members may differ in type.
type StructField struct {
	Type  ValueType
	Value Value
}

// StructValue is an ordered, tagged tuple (spec §3: "STRUCT (tag + ordered
// fields)").
type StructValue struct {
	Tag    int64
	Fields []StructField
}

// ContainerEntry is one mapping slot of a Container: a length-prefixed key
// and an owned value. Filled distinguishes a real stored value from the
// "reserved but not filled" sentinel left by Insert_atomic (spec §3, §4.1).
type ContainerEntry struct {
	Key    []byte
	Value  Value
	Filled bool
}

// Container is the mapping from key-bytes to an owned value described in
// spec §3 "Container". Entries preserve insertion order so Enumerate can
// return a stable, offset-addressable slice.
type Container struct {
	KeyType ValueType
	ValType ValueType
	order   []string
	index   map[string]int
	Entries []ContainerEntry
}

// NewContainer allocates an empty container of the given key/value types.
func NewContainer(keyType, valType ValueType) *Container {
	return &Container{
		KeyType: keyType,
		ValType: valType,
		index:   make(map[string]int),
	}
}

// Lookup returns the entry at key and whether it exists (filled or
// reserved).
func (c *Container) Lookup(key []byte) (*ContainerEntry, bool) {
	i, ok := c.index[string(key)]
	if !ok {
		return nil, false
	}
	return &c.Entries[i], true
}

// Reserve inserts a NULL-sentinel entry for key if absent, returning the
// entry and whether it was newly created.
func (c *Container) Reserve(key []byte) (*ContainerEntry, bool) {
	if e, ok := c.Lookup(key); ok {
		return e, false
	}
	c.Entries = append(c.Entries, ContainerEntry{Key: append([]byte(nil), key...)})
	c.index[string(key)] = len(c.Entries) - 1
	c.order = append(c.order, string(key))
	return &c.Entries[len(c.Entries)-1], true
}

// Len returns the number of entries (filled or reserved).
func (c *Container) Len() int { return len(c.Entries) }

// Multiset is the append-only owned sequence described in spec §3
// "MULTISET".
type Multiset struct {
	ElemType ValueType
	Elems    []Value
}

// NewMultiset allocates an empty multiset of the given element type.
func NewMultiset(elemType ValueType) *Multiset {
	return &Multiset{ElemType: elemType}
}

// Append adds v to the end of the sequence.
func (m *Multiset) Append(v Value) { m.Elems = append(m.Elems, v) }

// Value is the tagged union carried by a Datum's storage, a container
// entry or a multiset element (spec §3 "Types").
type Value struct {
	Type      ValueType
	Integer   int64
	Float     float64
	Bytes     []byte // STRING / BLOB payload
	Ref       int64
	FileRef   FileRefValue
	Struct    *StructValue
	Container *Container
	Multiset  *Multiset
}

// Referands returns the ids directly embedded in v as REF or FILE_REF
// values, or as nested structs/containers/multisets. Used by destruction
// (spec §4.1 "Refcount change", step 4) to recursively decrement referand
// read-refcounts.
func (v Value) Referands() []int64 {
	var out []int64
	switch v.Type {
	case TypeRef:
		out = append(out, v.Ref)
	case TypeFileRef:
		out = append(out, v.FileRef.ID1, v.FileRef.ID2)
	case TypeStruct:
		if v.Struct != nil {
			for _, f := range v.Struct.Fields {
				out = append(out, f.Value.Referands()...)
			}
		}
	case TypeContainer:
		if v.Container != nil {
			for _, e := range v.Container.Entries {
				if e.Filled {
					out = append(out, e.Value.Referands()...)
				}
			}
		}
	case TypeMultiset:
		if v.Multiset != nil {
			for _, e := range v.Multiset.Elems {
				out = append(out, e.Referands()...)
			}
		}
	}
	return out
}
