package postgres

import (
	"reflect"
)

// ExtractDBColumns returns the column names from T's "db" tags in field
// order. Embedded structs are flattened; untagged and "-" fields are skipped.
//
//	columns := ExtractDBColumns[user.User]()
//	// ["id", "email", "password", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			cols = append(cols, columnsOf(field.Type)...)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}
	return cols
}

// Without returns cols minus the excluded names, keeping order.
func Without(cols []string, exclude ...string) []string {
	out := make([]string, 0, len(cols))
outer:
	for _, c := range cols {
		for _, e := range exclude {
			if c == e {
				continue outer
			}
		}
		out = append(out, c)
	}
	return out
}
