package palette

import (
	"strings"

	"github.com/goliatone/go-dcaform/pkg/dca"
)

// Request describes one field of a submission that is checked against the
// active palette.
type Request struct {
	Table     dca.TableSpec
	Field     string
	InputName string
	// Stored is the current field value, compared with Posted to detect a
	// selector change.
	Stored string
	Posted string
	// FormFields holds the submitted field list entries (FORM_FIELDS).
	FormFields []string
	// Override is a palette supplied by the caller; nil computes a fresh one.
	Override []string
	// Suffix is the per-record disambiguator in batch edit mode.
	Suffix     string
	BatchEdit  bool
	Privileged bool
	// OverrideAll bypasses the intersection check.
	OverrideAll bool
	State       State
}

// Scope is the outcome of a palette evaluation.
type Scope struct {
	Palette    []string
	Active     []string
	Recomputed bool
	InScope    bool
}

// Evaluate computes the active field set of a submission and reports
// whether the requested field takes part in validation.
func Evaluate(req Request) Scope {
	posted := Unique(splitList(req.FormFields))

	var (
		fields     []string
		recomputed bool
	)
	if req.Override == nil {
		fields = Fields(req.Table, req.State)
		recomputed = true
	} else {
		fields = Split(strings.Join(req.Override, ","))
		if req.Table.IsSelector(req.Field) && req.Stored != req.Posted {
			fields = Fields(req.Table, req.State)
			recomputed = true
		}
	}

	if req.BatchEdit {
		suffixed := make([]string, 0, len(fields)+2)
		for _, name := range fields {
			suffixed = append(suffixed, name+"_"+req.Suffix)
		}
		if req.Privileged {
			suffixed = append(suffixed, "pid_"+req.Suffix, "sorting_"+req.Suffix)
		}
		fields = suffixed
	}
	fields = Unique(fields)

	active := Intersect(posted, fields)
	inScope := req.OverrideAll
	for _, name := range active {
		if name == req.InputName {
			inScope = true
			break
		}
	}
	return Scope{
		Palette:    fields,
		Active:     active,
		Recomputed: recomputed,
		InScope:    inScope,
	}
}

func splitList(values []string) []string {
	return Split(strings.Join(values, ","))
}
