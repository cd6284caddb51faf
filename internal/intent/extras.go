package intent

// Diff returns the entries of original whose keys are missing from
// roundTripped. Only key presence counts: an entry that survived with a
// different value is not recovered.
func Diff(original, roundTripped Extras) Extras {
	recovered := make(Extras)
	for key, v := range original {
		if !roundTripped.Has(key) {
			recovered[key] = v
		}
	}
	return recovered
}

// Reapply merges recovered entries into a copy of decoded. Entries already
// present on decoded win, so an edited value is never replaced by a
// recovered one.
func Reapply(decoded *Intent, recovered Extras) *Intent {
	out := decoded.Clone()
	if out == nil {
		out = &Intent{}
	}
	for key, v := range recovered {
		if out.Extras.Has(key) {
			continue
		}
		out.PutExtra(key, v)
	}
	return out
}

// RoundTrip runs one Encode→Decode pass, the same lossy path an edited URI
// takes.
func RoundTrip(in *Intent) (*Intent, error) {
	return Decode(Encode(in))
}
