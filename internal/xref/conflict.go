package xref

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"git.home.luguber.info/inful/docxref/internal/moniker"
	"git.home.luguber.info/inful/docxref/internal/report"
	"git.home.luguber.info/inful/docxref/internal/util/sets"
)

// ConflictKind distinguishes the two ways a uid group can be invalid.
type ConflictKind string

const (
	ConflictUnconditional ConflictKind = "unconditional"
	ConflictMonikers      ConflictKind = "monikers"
)

// Conflict describes a dropped uid.
type Conflict struct {
	UID  string
	Kind ConflictKind
	// Files are the declaring files of every record in the group, ordered by href.
	Files []string
	// Monikers lists the overlapping monikers for ConflictMonikers.
	Monikers []string
}

func (c Conflict) Error() string {
	switch c.Kind {
	case ConflictMonikers:
		return fmt.Sprintf("%v: uid %q is declared for overlapping monikers [%s] in %s",
			ErrUIDConflict, c.UID, strings.Join(c.Monikers, ", "), strings.Join(c.Files, ", "))
	default:
		return fmt.Sprintf("%v: uid %q is declared without monikers in more than one file: %s",
			ErrUIDConflict, c.UID, strings.Join(c.Files, ", "))
	}
}

func (c Conflict) Unwrap() error { return ErrUIDConflict }

// Issue converts the conflict into a report entry.
func (c Conflict) Issue() report.Issue {
	is := report.Issue{
		Code:     report.IssueUIDConflict,
		Severity: report.SeverityError,
		Message:  c.Error(),
		Files:    slices.Clone(c.Files),
	}
	if len(c.Files) > 0 {
		is.File = c.Files[0]
	}
	return is
}

// ResolveConflicts validates every uid group and orders the surviving ones:
// the unconditional record first, then conditional records by descending rank
// of their highest moniker, ties broken by href.
func ResolveConflicts(groups map[string][]*XrefRecord, comparer moniker.Comparer) (map[string][]*XrefRecord, []Conflict) {
	live := make(map[string][]*XrefRecord, len(groups))
	var conflicts []Conflict

	for uid, group := range groups {
		if len(group) <= 1 {
			live[uid] = slices.Clone(group)
			continue
		}

		var unconditional, conditional []*XrefRecord
		for _, r := range group {
			if r.IsConditional() {
				conditional = append(conditional, r)
			} else {
				unconditional = append(unconditional, r)
			}
		}

		if len(unconditional) > 1 {
			conflicts = append(conflicts, Conflict{UID: uid, Kind: ConflictUnconditional, Files: filesByHref(group)})
			continue
		}
		if overlap := overlappingMonikers(conditional); len(overlap) > 0 {
			conflicts = append(conflicts, Conflict{UID: uid, Kind: ConflictMonikers, Files: filesByHref(group), Monikers: overlap})
			continue
		}

		highest := make(map[*XrefRecord]string, len(conditional))
		for _, r := range conditional {
			highest[r] = moniker.Highest(comparer, r.MonikerList())
		}
		slices.SortStableFunc(conditional, func(a, b *XrefRecord) int {
			return cmp.Or(
				comparer.Compare(highest[b], highest[a]),
				cmp.Compare(a.Href, b.Href),
				cmp.Compare(a.DeclaringFile, b.DeclaringFile),
			)
		})
		live[uid] = append(unconditional, conditional...)
	}

	slices.SortFunc(conflicts, func(a, b Conflict) int { return cmp.Compare(a.UID, b.UID) })
	return live, conflicts
}

func overlappingMonikers(records []*XrefRecord) []string {
	seen := sets.New[string]()
	overlap := sets.New[string]()
	for _, r := range records {
		for m := range r.Monikers {
			if seen.Has(m) {
				overlap.Add(m)
			}
			seen.Add(m)
		}
	}
	return sets.SortedOrdered(overlap)
}

func filesByHref(records []*XrefRecord) []string {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b *XrefRecord) int {
		return cmp.Or(cmp.Compare(a.Href, b.Href), cmp.Compare(a.DeclaringFile, b.DeclaringFile))
	})
	files := make([]string, 0, len(sorted))
	for _, r := range sorted {
		files = append(files, r.DeclaringFile)
	}
	return files
}
