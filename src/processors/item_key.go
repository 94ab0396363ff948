package processors

import "strings"

// ItemKey identifies one inventory line. Two keys are the same item when
// their normalized forms match; Type and Description keep the display form.
//
// Only surrounding whitespace and case are normalized. "Gloss  White" and
// "Gloss White" are different items.
type ItemKey struct {
	Type        string
	Description string
}

// NormalizedKey is the comparable lookup form of an ItemKey.
type NormalizedKey struct {
	Type        string
	Description string
}

// NewItemKey trims both parts for display.
func NewItemKey(itemType, itemDescription string) ItemKey {
	return ItemKey{
		Type:        strings.TrimSpace(itemType),
		Description: strings.TrimSpace(itemDescription),
	}
}

// Normalized returns the case-folded lookup key.
func (k ItemKey) Normalized() NormalizedKey {
	return NormalizedKey{
		Type:        strings.ToLower(strings.TrimSpace(k.Type)),
		Description: strings.ToLower(strings.TrimSpace(k.Description)),
	}
}

// Equal reports whether k and o name the same item.
func (k ItemKey) Equal(o ItemKey) bool {
	return k.Normalized() == o.Normalized()
}

// IsEmpty reports whether either part is blank after trimming.
func (k ItemKey) IsEmpty() bool {
	return strings.TrimSpace(k.Type) == "" || strings.TrimSpace(k.Description) == ""
}

func (k ItemKey) String() string {
	return k.Type + " / " + k.Description
}
