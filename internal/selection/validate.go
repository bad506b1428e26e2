package selection

import "fmt"

// Validate checks a shape for structural problems:
//
//  1. Every field has a non-empty name
//  2. Response keys are unique within each level (two calls to the same
//     field need distinct aliases)
//  3. Argument names are non-empty and unique per field
//
// Validate is a pure function with no side effects.
func Validate(shape Shape) error {
	return validateLevel(shape, "")
}

func validateLevel(shape Shape, path string) error {
	seen := make(map[string]bool, len(shape))
	for _, f := range shape {
		if f.Name == "" {
			return fmt.Errorf("selection%s: field with empty name", at(path))
		}
		key := f.ResponseKey()
		if seen[key] {
			return fmt.Errorf("selection%s: duplicate response key %q", at(path), key)
		}
		seen[key] = true

		argSeen := make(map[string]bool, len(f.Args))
		for _, a := range f.Args {
			if a.Name == "" {
				return fmt.Errorf("selection%s: field %q has an argument with empty name", at(path), f.Name)
			}
			if argSeen[a.Name] {
				return fmt.Errorf("selection%s: field %q repeats argument %q", at(path), f.Name, a.Name)
			}
			argSeen[a.Name] = true
			if a.Value != nil && a.Variable != "" {
				return fmt.Errorf("selection%s: field %q argument %q sets both value and variable", at(path), f.Name, a.Name)
			}
		}

		if len(f.Of) > 0 {
			child := path + "." + key
			if path == "" {
				child = key
			}
			if err := validateLevel(f.Of, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func at(path string) string {
	if path == "" {
		return ""
	}
	return " at " + path
}
