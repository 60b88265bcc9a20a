package editing

import "strings"

// Fragment is a piece of markup with the script attached to it. The script
// is emitted right after its markup.
type Fragment struct {
	Markup string
	Script string
}

func (f Fragment) String() string {
	return f.Markup + f.Script
}

// IsZero reports whether the fragment renders nothing.
func (f Fragment) IsZero() bool {
	return f.Markup == "" && f.Script == ""
}

// Fragments collects fragments in the order they were added.
type Fragments struct {
	parts []Fragment
}

// Add appends frag unless it is empty.
func (f *Fragments) Add(frag Fragment) {
	if frag.IsZero() {
		return
	}
	f.parts = append(f.parts, frag)
}

// AddMarkup appends markup without a script.
func (f *Fragments) AddMarkup(markup string) {
	f.Add(Fragment{Markup: markup})
}

// Len returns the number of collected fragments.
func (f *Fragments) Len() int {
	return len(f.parts)
}

// Parts returns a copy of the collected fragments.
func (f *Fragments) Parts() []Fragment {
	return append([]Fragment(nil), f.parts...)
}

// Scripts returns the attached scripts only, in order.
func (f *Fragments) Scripts() string {
	var b strings.Builder
	for _, part := range f.parts {
		b.WriteString(part.Script)
	}
	return b.String()
}

func (f *Fragments) String() string {
	var b strings.Builder
	for _, part := range f.parts {
		b.WriteString(part.Markup)
		b.WriteString(part.Script)
	}
	return b.String()
}
