package devbackend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GadCoder/BikeRoutes/internal/devbackend"
	"github.com/GadCoder/BikeRoutes/internal/domain"
)

func createMarker(t *testing.T, b *devbackend.Backend, owner, routeID, label string, order int) domain.Marker {
	t.Helper()
	m, err := b.CreateMarker(context.Background(), owner, routeID, devbackend.MarkerInput{
		Geometry:   domain.PointGeometry(miraflores),
		Label:      ptr(label),
		OrderIndex: order,
	})
	require.NoError(t, err)
	return m
}

func labels(markers []domain.Marker) []string {
	out := make([]string, len(markers))
	for i, m := range markers {
		out[i] = m.Properties.Label
	}
	return out
}

// ---- CreateMarker ----

func TestCreateMarker_Defaults(t *testing.T) {
	b, _ := newBackend(t)
	owner := register(t, b, "rider@example.com")
	r := createRoute(t, b, owner, "Loop", false)

	m, err := b.CreateMarker(context.Background(), owner, r.ID, devbackend.MarkerInput{
		Geometry: domain.PointGeometry(miraflores),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, domain.FeatureType, m.Type)
	assert.Equal(t, domain.DefaultIconType, m.Properties.IconType)
	require.NotNil(t, m.Properties.OrderIndex)
	assert.Equal(t, 0, *m.Properties.OrderIndex)
	got, ok := m.Geometry.AsPoint()
	require.True(t, ok)
	assert.Equal(t, miraflores, got)
}

func TestCreateMarker_OrderConflict(t *testing.T) {
	b, _ := newBackend(t)
	owner := register(t, b, "rider@example.com")
	r := createRoute(t, b, owner, "Loop", false)
	createMarker(t, b, owner, r.ID, "first", 3)

	_, err := b.CreateMarker(context.Background(), owner, r.ID, devbackend.MarkerInput{
		Geometry:   domain.PointGeometry(barranco),
		OrderIndex: 3,
	})

	assertRejected(t, err, domain.ErrConflict, "Marker order_index conflict")
}

func TestCreateMarker_Rejections(t *testing.T) {
	b, _ := newBackend(t)
	owner := register(t, b, "owner@example.com")
	other := register(t, b, "other@example.com")
	r := createRoute(t, b, owner, "Loop", true)

	_, err := b.CreateMarker(context.Background(), other, r.ID, devbackend.MarkerInput{Geometry: domain.PointGeometry(miraflores)})
	assert.ErrorIs(t, err, domain.ErrForbidden, "public routes are still owner-only for writes")

	_, err = b.CreateMarker(context.Background(), owner, "missing", devbackend.MarkerInput{Geometry: domain.PointGeometry(miraflores)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = b.CreateMarker(context.Background(), owner, r.ID, devbackend.MarkerInput{Geometry: line(miraflores, barranco)})
	assert.ErrorIs(t, err, devbackend.ErrMalformed)

	_, err = b.CreateMarker(context.Background(), owner, r.ID, devbackend.MarkerInput{Geometry: rawGeometry("Point", "[1]")})
	assert.ErrorIs(t, err, devbackend.ErrMalformed)
}

// ---- ListMarkers ----

func TestListMarkers_OrderedByIndex(t *testing.T) {
	b, _ := newBackend(t)
	owner := register(t, b, "rider@example.com")
	r := createRoute(t, b, owner, "Loop", false)
	createMarker(t, b, owner, r.ID, "third", 2)
	createMarker(t, b, owner, r.ID, "first", 0)
	createMarker(t, b, owner, r.ID, "second", 1)

	got, err := b.ListMarkers(context.Background(), owner, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, labels(got))

	route, err := b.GetRoute(context.Background(), owner, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, labels(route.Properties.Markers))
}

func TestListMarkers_Visibility(t *testing.T) {
	b, _ := newBackend(t)
	owner := register(t, b, "owner@example.com")
	other := register(t, b, "other@example.com")
	private := createRoute(t, b, owner, "Private", false)

	_, err := b.ListMarkers(context.Background(), other, private.ID)

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// ---- UpdateMarker ----

func TestUpdateMarker_PatchesFields(t *testing.T) {
	b, _ := newBackend(t)
	owner := register(t, b, "rider@example.com")
	r := createRoute(t, b, owner, "Loop", false)
	m := createMarker(t, b, owner, r.ID, "water", 0)

	got, err := b.UpdateMarker(context.Background(), owner, r.ID, m.ID, devbackend.MarkerPatch{
		Geometry:   ptr(domain.PointGeometry(barranco)),
		IconType:   ptr("cafe"),
		OrderIndex: ptr(4),
	})

	require.NoError(t, err)
	assert.Equal(t, "water", got.Properties.Label)
	assert.Equal(t, "cafe", got.Properties.IconType)
	assert.Equal(t, 4, *got.Properties.OrderIndex)
	pos, _ := got.Geometry.AsPoint()
	assert.Equal(t, barranco, pos)
}

func TestUpdateMarker_OrderConflictLeavesMarkerUnchanged(t *testing.T) {
	b, _ := newBackend(t)
	owner := register(t, b, "rider@example.com")
	r := createRoute(t, b, owner, "Loop", false)
	createMarker(t, b, owner, r.ID, "a", 0)
	m := createMarker(t, b, owner, r.ID, "b", 1)

	_, err := b.UpdateMarker(context.Background(), owner, r.ID, m.ID, devbackend.MarkerPatch{Label: ptr("renamed"), OrderIndex: ptr(0)})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := b.ListMarkers(context.Background(), owner, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, labels(got))

	// Keeping its own index is not a conflict.
	_, err = b.UpdateMarker(context.Background(), owner, r.ID, m.ID, devbackend.MarkerPatch{OrderIndex: ptr(1)})
	assert.NoError(t, err)
}

func TestUpdateMarker_NotFound(t *testing.T) {
	b, _ := newBackend(t)
	owner := register(t, b, "rider@example.com")
	r := createRoute(t, b, owner, "Loop", false)

	_, err := b.UpdateMarker(context.Background(), owner, r.ID, "missing", devbackend.MarkerPatch{})

	assertRejected(t, err, domain.ErrNotFound, "Marker not found")
}

// ---- DeleteMarker ----

func TestDeleteMarker(t *testing.T) {
	b, _ := newBackend(t)
	owner := register(t, b, "rider@example.com")
	r := createRoute(t, b, owner, "Loop", false)
	m := createMarker(t, b, owner, r.ID, "gone", 0)

	require.NoError(t, b.DeleteMarker(context.Background(), owner, r.ID, m.ID))

	got, err := b.ListMarkers(context.Background(), owner, r.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.ErrorIs(t, b.DeleteMarker(context.Background(), owner, r.ID, m.ID), domain.ErrNotFound)
}
