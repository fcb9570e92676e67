package dragdrop

import (
	"testing"

	"github.com/avoran/casetree/internal/domain"
	"github.com/avoran/casetree/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Start(t *testing.T) {
	dragged := testutil.NewTestCase("login works")
	dragged.ID = 7

	s := Start(dragged)

	assert.NotEmpty(t, s.Token)
	assert.Equal(t, dragged, s.Dragged)
	assert.Nil(t, s.Target)
	assert.Equal(t, domain.ZoneInvalid, s.Zone)
	assert.False(t, s.CanDrop(), "a fresh session has nothing to drop on")

	other := Start(dragged)
	assert.NotEqual(t, s.Token, other.Token, "every gesture gets its own token")
}

func TestSession_HoverAt(t *testing.T) {
	dragged := testutil.NewTestCase("login works")
	dragged.ID = 7
	folder := testutil.NewFolder("Smoke")
	folder.ID = 3

	s := Start(dragged)

	zone := s.HoverAt(folder, 20, 40)
	assert.Equal(t, domain.ZoneMiddle, zone)
	assert.Equal(t, folder, s.Target)
	assert.True(t, s.CanDrop())

	// Hovering the dragged node itself invalidates the drop.
	zone = s.HoverAt(dragged, 20, 40)
	assert.Equal(t, domain.ZoneInvalid, zone)
	assert.False(t, s.CanDrop())
}

func TestSession_Hover_SanitizesZone(t *testing.T) {
	dragged := testutil.NewTestCase("login works")
	dragged.ID = 7
	leaf := testutil.NewTestCase("logout works")
	leaf.ID = 8

	s := Start(dragged)

	assert.Equal(t, domain.ZoneTop, s.Hover(leaf, domain.ZoneTop))
	assert.Equal(t, domain.ZoneInvalid, s.Hover(leaf, domain.ZoneMiddle),
		"test cases cannot take a middle-zone drop")
	assert.Equal(t, domain.ZoneInvalid, s.Hover(dragged, domain.ZoneTop),
		"the dragged node is never a valid target")
}

func TestSession_BuildRequest(t *testing.T) {
	dragged := testutil.NewTestCase("login works")
	dragged.ID = 7
	folder := testutil.NewFolder("Smoke")
	folder.ID = 3

	t.Run("middle zone builds a hierarchy request", func(t *testing.T) {
		s := Start(dragged)
		s.Hover(folder, domain.ZoneMiddle)

		req, err := s.BuildRequest()
		require.NoError(t, err)
		assert.Equal(t, dragged.ID, req.DraggedNodeID)
		assert.Equal(t, folder.ID, req.TargetNodeID)
		assert.Equal(t, domain.DropHierarchy, req.DropType)
		assert.Nil(t, req.Position)
	})

	t.Run("bottom zone builds a reorder-after request", func(t *testing.T) {
		s := Start(dragged)
		s.Hover(folder, domain.ZoneBottom)

		req, err := s.BuildRequest()
		require.NoError(t, err)
		assert.Equal(t, domain.DropReorder, req.DropType)
		require.NotNil(t, req.Position)
		assert.Equal(t, domain.PositionAfter, *req.Position)
	})

	t.Run("no target", func(t *testing.T) {
		s := Start(dragged)
		_, err := s.BuildRequest()
		assert.Error(t, err)
	})

	t.Run("invalid zone", func(t *testing.T) {
		s := Start(dragged)
		s.Hover(folder, domain.ZoneInvalid)
		_, err := s.BuildRequest()
		assert.Error(t, err)
	})
}

func TestSession_Cancel(t *testing.T) {
	dragged := testutil.NewTestCase("login works")
	dragged.ID = 7
	folder := testutil.NewFolder("Smoke")
	folder.ID = 3

	s := Start(dragged)
	s.Hover(folder, domain.ZoneMiddle)
	require.True(t, s.CanDrop())

	s.Cancel()

	assert.Nil(t, s.Dragged)
	assert.Nil(t, s.Target)
	assert.False(t, s.CanDrop())
}
