package domain

import (
	"fmt"
	"strings"
)

// NodeID identifies a node inside the arena of a dialogue.
// Zero is never assigned and means "no node".
type NodeID int

// None is the zero NodeID.
const None NodeID = 0

func (id NodeID) String() string {
	return fmt.Sprintf("#%d", int(id))
}

// Level is the constraint level of a node.
type Level int

const (
	// LevelObject is a concrete object.
	LevelObject Level = 0
	// LevelQuery is a query or filter over objects ("Foo?()").
	LevelQuery Level = 1
	// LevelPartial is a partially specified object awaiting more data ("Foo??()").
	LevelPartial Level = 2
)

// IsConstraint reports whether the level describes a constraint rather than an object.
func (l Level) IsConstraint() bool {
	return l > LevelObject
}

// Suffix returns the P-expression suffix for the level.
func (l Level) Suffix() string {
	return strings.Repeat("?", int(l))
}

func (l Level) String() string {
	switch l {
	case LevelObject:
		return "object"
	case LevelQuery:
		return "query"
	case LevelPartial:
		return "partial"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Qualifier is a comparison operator applied by qualifier nodes.
type Qualifier string

const (
	QualEQ   Qualifier = "EQ"
	QualNEQ  Qualifier = "NEQ"
	QualLT   Qualifier = "LT"
	QualLE   Qualifier = "LE"
	QualGT   Qualifier = "GT"
	QualGE   Qualifier = "GE"
	QualLIKE Qualifier = "LIKE"
)

// Qualifiers lists every qualifier in registration order.
var Qualifiers = []Qualifier{QualEQ, QualNEQ, QualLT, QualLE, QualGT, QualGE, QualLIKE}

// Holds reports whether a three-way comparison result satisfies the qualifier.
// LIKE is not an ordering and is treated as EQ here.
func (q Qualifier) Holds(cmp int) bool {
	switch q {
	case QualEQ, QualLIKE:
		return cmp == 0
	case QualNEQ:
		return cmp != 0
	case QualLT:
		return cmp < 0
	case QualLE:
		return cmp <= 0
	case QualGT:
		return cmp > 0
	case QualGE:
		return cmp >= 0
	}
	return false
}

// MergeMode selects how revise combines the old subgraph with the new one.
type MergeMode string

const (
	MergeNew       MergeMode = "new"
	MergeOverwrite MergeMode = "overwrite"
	MergeExtend    MergeMode = "extend"
	MergeAddAnd    MergeMode = "addAnd"
	MergeAddOr     MergeMode = "addOr"
	MergeModif     MergeMode = "modif"
	MergeAuto      MergeMode = "auto"
	MergeAutoTop   MergeMode = "autotop"
)

// ParseMergeMode validates a merge mode name. The empty string maps to MergeNew.
func ParseMergeMode(s string) (MergeMode, error) {
	switch m := MergeMode(strings.TrimSpace(s)); m {
	case "":
		return MergeNew, nil
	case MergeNew, MergeOverwrite, MergeExtend, MergeAddAnd, MergeAddOr, MergeModif, MergeAuto, MergeAutoTop:
		return m, nil
	default:
		return "", fmt.Errorf("unknown merge mode %q", s)
	}
}

// Strictness controls how revise matches the old node against candidates.
type Strictness string

const (
	// StrictMatch requires type and constraint level to agree.
	StrictMatch Strictness = "strict"
	// PreferMatch requires the type to agree, ranking strict matches first.
	PreferMatch Strictness = "prefer"
	// AnyMatch accepts the first structural match, including against node results.
	AnyMatch Strictness = "any"
)

// ParseStrictness validates a strictness name. The empty string maps to PreferMatch.
func ParseStrictness(s string) (Strictness, error) {
	switch v := Strictness(strings.TrimSpace(s)); v {
	case "":
		return PreferMatch, nil
	case StrictMatch, PreferMatch, AnyMatch:
		return v, nil
	default:
		return "", fmt.Errorf("unknown match strictness %q", s)
	}
}
