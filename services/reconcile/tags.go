package reconcile

import (
	"fmt"
	"sort"
	"strings"
)

// Tag identifies what a submitted receipt is paying for
type Tag string

const (
	TagInstallment1 Tag = "inst_1"
	TagInstallment2 Tag = "inst_2"
	TagInstallment3 Tag = "inst_3"
	TagTotal        Tag = "total"    // lump payment of the full price
	TagExternal     Tag = "external" // proof of a payment made outside the club channels
)

// InstallmentTag returns the tag for installment slot 1..3
func InstallmentTag(i int) Tag {
	return Tag(fmt.Sprintf("inst_%d", i))
}

// Index returns the installment slot (1..3) for an installment tag, 0 otherwise
func (t Tag) Index() int {
	switch t {
	case TagInstallment1:
		return 1
	case TagInstallment2:
		return 2
	case TagInstallment3:
		return 3
	}
	return 0
}

// TagSet is the set of tags one submission is paying now
type TagSet map[Tag]bool

// ParseTags builds a TagSet from the comma-joined form field. Unknown values
// are reported back so the validator can reject them.
func ParseTags(raw string) (TagSet, []string) {
	set := make(TagSet)
	var unknown []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch Tag(part) {
		case TagInstallment1, TagInstallment2, TagInstallment3, TagTotal, TagExternal:
			set[Tag(part)] = true
		default:
			unknown = append(unknown, part)
		}
	}
	return set, unknown
}

// Clone returns an independent copy of the set
func (s TagSet) Clone() TagSet {
	out := make(TagSet, len(s))
	for t, v := range s {
		if v {
			out[t] = true
		}
	}
	return out
}

// HasTotal reports whether the submission is a lump/"total" payment
func (s TagSet) HasTotal() bool {
	return s[TagTotal] || s[TagExternal]
}

// Sorted returns the tags in stable order, installments first
func (s TagSet) Sorted() []Tag {
	out := make([]Tag, 0, len(s))
	for t, v := range s {
		if v {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Join renders the set for audit rows and file-name prefixes
func (s TagSet) Join(sep string) string {
	parts := make([]string, 0, len(s))
	for _, t := range s.Sorted() {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, sep)
}
