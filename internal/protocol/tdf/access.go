package tdf

// Find returns the first value labeled label.
func Find(fields []Labeled, label string) (Labeled, bool) {
	for _, f := range fields {
		if f.Label == label {
			return f, true
		}
	}
	return Labeled{}, false
}

// As projects v onto the concrete variant T.
//
// Example:
//
//	s, err := tdf.As[tdf.String](v)
func As[T Value](v Value) (T, error) {
	var zero T
	if v == nil {
		return zero, NewError(ErrStructural, nil, "expected %s, got no value", typeName(zero))
	}
	t, ok := v.(T)
	if !ok {
		return zero, NewError(ErrStructural, nil, "expected %s, got %s", typeName(zero), v.Type())
	}
	return t, nil
}

func typeName(v Value) string {
	if v == nil {
		return "value"
	}
	return v.Type().String()
}

// Get looks up label in fields and projects it onto T. A missing label and
// a type mismatch both fail with ErrStructural naming the label.
func Get[T Value](fields []Labeled, label string) (T, error) {
	f, ok := Find(fields, label)
	if !ok {
		var zero T
		return zero, &Error{Code: ErrStructural, Message: "label not found", Label: label}
	}
	t, err := As[T](f.Value)
	if err != nil {
		return t, withLabel(err, label)
	}
	return t, nil
}

// Child looks up label inside v, which must be a Group.
func Child(v Value, label string) (Value, error) {
	g, err := As[Group](v)
	if err != nil {
		return nil, withLabel(err, label)
	}
	return g.Get(label)
}

// Get returns the value labeled label.
func (g Group) Get(label string) (Value, error) {
	f, ok := Find(g.Fields, label)
	if !ok {
		return nil, &Error{Code: ErrStructural, Message: "label not found", Label: label}
	}
	return f.Value, nil
}

// Text returns the string labeled label.
func (g Group) Text(label string) (string, error) {
	s, err := Get[String](g.Fields, label)
	return string(s), err
}

// Int returns the VarInt labeled label.
func (g Group) Int(label string) (int64, error) {
	n, err := Get[VarInt](g.Fields, label)
	return int64(n), err
}

// Sub returns the nested group labeled label.
func (g Group) Sub(label string) (Group, error) {
	return Get[Group](g.Fields, label)
}
