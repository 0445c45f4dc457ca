package hcl

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// propertiesFromValue flattens a `properties = { ... }` value into the map the
// project model is seeded with. A missing or null value yields nil.
func propertiesFromValue(v *cty.Value) (map[string]cty.Value, error) {
	if v == nil || v.IsNull() {
		return nil, nil
	}
	val := *v
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("properties must be known values")
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("properties must be an object, got %s", ty.FriendlyName())
	}

	props := make(map[string]cty.Value, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		k, elem := it.Element()
		props[k.AsString()] = elem
	}
	return props, nil
}
