package domain

// NodeKind distinguishes folders from test cases. The set is closed:
// every switch over NodeKind carries an explicit default so adding a
// third kind forces each consumer to be revisited.
type NodeKind string

const (
	KindFolder   NodeKind = "folder"
	KindTestCase NodeKind = "testcase"
)

// ValidNodeKinds is the canonical set of accepted node kind strings.
var ValidNodeKinds = map[string]bool{
	string(KindFolder):   true,
	string(KindTestCase): true,
}

// Valid reports whether the kind is a known variant.
func (k NodeKind) Valid() bool {
	return ValidNodeKinds[string(k)]
}

// DropType is the structural intent of a completed drag gesture.
type DropType string

const (
	// DropReorder repositions the dragged node among the target's siblings.
	DropReorder DropType = "reorder"
	// DropHierarchy reparents the dragged node into the target folder.
	DropHierarchy DropType = "hierarchy"
)

// DropPosition refines a reorder drop relative to the target.
type DropPosition string

const (
	PositionBefore DropPosition = "before"
	PositionAfter  DropPosition = "after"
)

// DropZone is the classified region of a hover target's hit area.
type DropZone string

const (
	ZoneTop     DropZone = "top"
	ZoneMiddle  DropZone = "middle"
	ZoneBottom  DropZone = "bottom"
	ZoneInvalid DropZone = "invalid"
)
