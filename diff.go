package xschema

import "maps"

// ValidateAndDiffResult is the outcome of ValidateAndComputeDiff. Sanitized,
// ChangeSet and Changes must not be applied unless Success is true.
type ValidateAndDiffResult struct {
	Success bool
	// Errors maps members to user-facing messages.
	Errors    map[string]string
	Sanitized Row
	// ChangeSet lists the changed members in declaration order.
	ChangeSet []string
	Changes   Row
}

// Err returns the validation errors as an error wrapping ErrValidation.
func (r ValidateAndDiffResult) Err() error {
	if r.Success {
		return nil
	}
	return (&validationError{errors: maps.Clone(r.Errors)}).Err()
}

// ValidateAndComputeDiff validates every field of next in declaration order,
// collecting all errors, then lists the sanitized members that differ from
// old according to each field's own equality. Fields missing from next are
// skipped. Nothing is diffed unless every field validated.
func (t *Table) ValidateAndComputeDiff(old, next Row, mode Mode, cc ClientContext) ValidateAndDiffResult {
	res := ValidateAndDiffResult{Errors: map[string]string{}, Sanitized: Row{}, Changes: Row{}}
	errs := &validationError{}
	for _, f := range t.fields {
		pr := f.ValidateAndParse(next, mode, cc)
		switch pr.Status {
		case ParseError:
			errs.Add(f.Member(), pr.Message)
		case ParseSuccess:
			res.Sanitized[f.Member()] = pr.Value
		}
	}
	if errs.Err() != nil {
		res.Errors = errs.errors
		return res
	}
	res.Success = true
	for _, f := range t.fields {
		value, ok := res.Sanitized[f.Member()]
		if !ok {
			continue
		}
		if !f.IsEqual(storedValue(f, old), value) {
			res.ChangeSet = append(res.ChangeSet, f.Member())
			res.Changes[f.Member()] = value
		}
	}
	return res
}

// storedValue returns the prior value of a field. A foreign field may hold
// its id under the object member only.
func storedValue(f Field, old Row) any {
	if ff, ok := f.(*foreignField); ok {
		if v, has := ff.rawID(old); has {
			return v
		}
		return nil
	}
	return old[f.Member()]
}
