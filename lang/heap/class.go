package heap

// ClassObj is a class declared with "class Name { }". vellum's class
// chapter stops short of methods and inheritance (see the language's
// Non-goals), so a class carries nothing but its name: it exists purely as
// a factory for instances.
type ClassObj struct {
	header
	Name *StringObj
}

func (c *ClassObj) String() string { return c.Name.chars }
func (*ClassObj) Type() string     { return "class" }

// InstanceObj is an instance of a class, with its own open-ended bag of
// fields set via SET_PROPERTY.
type InstanceObj struct {
	header
	Class  *ClassObj
	Fields *Table
}

func (i *InstanceObj) String() string { return i.Class.Name.chars + " instance" }
func (*InstanceObj) Type() string     { return "instance" }
