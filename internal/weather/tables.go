package weather

import "fmt"

// CodeTable maps a provider's proprietary condition code to a shared bucket.
type CodeTable map[int]Condition

// PrecipTable maps a provider's precipitation enumeration to the shared vocabulary.
type PrecipTable map[int]PrecipitationType

// CodeRange fills table with bucket for every code in [lo, hi].
func (t CodeTable) CodeRange(lo, hi int, bucket Condition) CodeTable {
	for code := lo; code <= hi; code++ {
		t[code] = bucket
	}
	return t
}

// Validate fails if the table is empty, holds an unknown bucket, or cannot
// express both clear and rain conditions.
func (t CodeTable) Validate(provider string) error {
	if len(t) == 0 {
		return fmt.Errorf("%s: empty condition table", provider)
	}
	seen := make(map[Condition]bool)
	for code, bucket := range t {
		if !bucket.Valid() {
			return fmt.Errorf("%s: code %d maps to unknown bucket %d", provider, code, bucket)
		}
		seen[bucket] = true
	}
	for _, required := range []Condition{ConditionClear, ConditionRain} {
		if !seen[required] {
			return fmt.Errorf("%s: condition table has no %s mapping", provider, required)
		}
	}
	return nil
}

// Lookup returns the bucket for code or an error if the code is unmapped.
func (t CodeTable) Lookup(code int) (Condition, error) {
	bucket, ok := t[code]
	if !ok {
		return ConditionUnknown, fmt.Errorf("%w: unmapped condition code %d", ErrMalformed, code)
	}
	return bucket, nil
}

// Validate fails if the table is empty or holds a type outside the vocabulary.
func (t PrecipTable) Validate(provider string) error {
	if len(t) == 0 {
		return fmt.Errorf("%s: empty precipitation table", provider)
	}
	for code, typ := range t {
		if !typ.Valid() {
			return fmt.Errorf("%s: precipitation code %d maps to unknown type %q", provider, code, typ)
		}
	}
	return nil
}

// Lookup returns the shared type for code or an error if the code is unmapped.
func (t PrecipTable) Lookup(code int) (PrecipitationType, error) {
	typ, ok := t[code]
	if !ok {
		return "", fmt.Errorf("%w: unmapped precipitation code %d", ErrMalformed, code)
	}
	return typ, nil
}
