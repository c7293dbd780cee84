package domain

import "github.com/bits-and-blooms/bitset"

// FlagSet is a small ordered set of string labels backed by a bitset so that
// membership tests and unions are O(1)/O(words) instead of O(n) slice scans.
// It stands in for the spec's "distress_flags: set" and
// "conviction_components: ordered set" columns.
type FlagSet struct {
	labels []string
	index  map[string]uint
	bits   *bitset.BitSet
}

// NewFlagSet builds an empty set whose vocabulary is fixed up front — the
// vocabularies here (distress flag codes, conviction component codes) are
// small and known at compile time.
func NewFlagSet(vocabulary ...string) *FlagSet {
	fs := &FlagSet{
		labels: vocabulary,
		index:  make(map[string]uint, len(vocabulary)),
		bits:   bitset.New(uint(len(vocabulary))),
	}
	for i, l := range vocabulary {
		fs.index[l] = uint(i)
	}
	return fs
}

// Add sets a flag. Unknown labels are ignored (programmer error, not a runtime one).
func (fs *FlagSet) Add(label string) {
	if i, ok := fs.index[label]; ok {
		fs.bits.Set(i)
	}
}

// Has reports whether label is present.
func (fs *FlagSet) Has(label string) bool {
	i, ok := fs.index[label]
	return ok && fs.bits.Test(i)
}

// Ordered returns the set labels in vocabulary order (the "ordered set" the
// spec describes for conviction_components).
func (fs *FlagSet) Ordered() []string {
	out := make([]string, 0, len(fs.labels))
	for i, l := range fs.labels {
		if fs.bits.Test(uint(i)) {
			out = append(out, l)
		}
	}
	return out
}

// Empty reports whether no flags are set.
func (fs *FlagSet) Empty() bool {
	return fs.bits.None()
}

// Distress flag vocabulary, in the order the spec and the signal evaluators enumerate them.
var DistressFlagVocabulary = []string{"veg_overgrowth", "veg_neglect", "flood", "structural", "usps_vacancy"}

// Conviction component vocabulary (§4.6/§8 scenario 5/6).
var ConvictionComponentVocabulary = []string{"DS", "MC", "VAC"}

func NewDistressFlagSet() *FlagSet      { return NewFlagSet(DistressFlagVocabulary...) }
func NewConvictionComponentSet() *FlagSet { return NewFlagSet(ConvictionComponentVocabulary...) }
