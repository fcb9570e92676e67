// Package dragdrop models one drag-and-drop interaction: classifying
// where a pointer sits over a hover target and accumulating that into a
// structural move request for the tree mutation engine.
package dragdrop

import "github.com/avoran/casetree/internal/domain"

// Folder rows split 25/50/25 into top/middle/bottom. Test case rows have
// no middle zone, so reparenting into a leaf is impossible by geometry.
const folderEdgeFraction = 0.25

// ClassifyZone maps a pointer's vertical offset within a target row to a
// drop zone. Returns ZoneInvalid when the pointer is outside the row or
// the target is the dragged node itself.
func ClassifyZone(offsetY, height float64, targetKind domain.NodeKind, targetIsDragged bool) domain.DropZone {
	if targetIsDragged || height <= 0 || offsetY < 0 || offsetY >= height {
		return domain.ZoneInvalid
	}

	frac := offsetY / height
	switch targetKind {
	case domain.KindFolder:
		switch {
		case frac < folderEdgeFraction:
			return domain.ZoneTop
		case frac < 1-folderEdgeFraction:
			return domain.ZoneMiddle
		default:
			return domain.ZoneBottom
		}
	case domain.KindTestCase:
		if frac < 0.5 {
			return domain.ZoneTop
		}
		return domain.ZoneBottom
	default:
		return domain.ZoneInvalid
	}
}

// ZoneIntent converts a classified zone into the structural drop intent.
// The boolean is false when the zone does not produce a droppable intent.
func ZoneIntent(zone domain.DropZone) (domain.DropType, *domain.DropPosition, bool) {
	switch zone {
	case domain.ZoneTop:
		pos := domain.PositionBefore
		return domain.DropReorder, &pos, true
	case domain.ZoneBottom:
		pos := domain.PositionAfter
		return domain.DropReorder, &pos, true
	case domain.ZoneMiddle:
		return domain.DropHierarchy, nil, true
	default:
		return "", nil, false
	}
}
