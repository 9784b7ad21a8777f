package phase

// Orientation remembers, per sample, whether the maternal allele is
// reported first. Flags are only ever set while phasing the index variant
// and are read for every variant after it.
type Orientation struct {
	reverse map[string]bool
}

// NewOrientation returns an empty orientation memory.
func NewOrientation() *Orientation {
	return &Orientation{reverse: make(map[string]bool)}
}

// Reversed returns true if the sample reports maternal|paternal.
func (o *Orientation) Reversed(sample string) bool {
	return o.reverse[sample]
}

// establish records the index-variant phase of a sample. Only a maternal
// ALT with a paternal REF flips the order.
func (o *Orientation) establish(sample string, paternal, maternal int) {
	if maternal == 1 && paternal == 0 {
		o.reverse[sample] = true
	}
}

// Len returns the number of reversed samples.
func (o *Orientation) Len() int {
	return len(o.reverse)
}
