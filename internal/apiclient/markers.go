package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

type markerIn struct {
	Geometry    domain.Geometry `json:"geometry"`
	Label       *string         `json:"label"`
	Description *string         `json:"description"`
	IconType    string          `json:"icon_type"`
	OrderIndex  int             `json:"order_index"`
}

func newMarkerIn(d domain.MarkerDraft) markerIn {
	icon := d.IconType
	if icon == "" {
		icon = domain.DefaultIconType
	}
	return markerIn{
		Geometry:    domain.PointGeometry(d.Coordinate),
		Label:       optional(d.Label),
		Description: optional(d.Description),
		IconType:    icon,
		OrderIndex:  d.OrderIndex,
	}
}

// ListMarkers returns the markers of route routeID ordered by order_index.
func (c *Client) ListMarkers(ctx context.Context, accessToken, routeID string) ([]domain.Marker, error) {
	path, err := markersPath(routeID)
	if err != nil {
		return nil, fmt.Errorf("apiclient.Client.ListMarkers: %w", err)
	}
	var out []domain.Marker
	if err := c.do(ctx, http.MethodGet, path, nil, accessToken, nil, &out); err != nil {
		return nil, fmt.Errorf("apiclient.Client.ListMarkers: %w", err)
	}
	if out == nil {
		out = []domain.Marker{}
	}
	return out, nil
}

// CreateMarker adds a marker to route routeID.
func (c *Client) CreateMarker(ctx context.Context, accessToken, routeID string, draft domain.MarkerDraft) (domain.Marker, error) {
	path, err := markersPath(routeID)
	if err != nil {
		return domain.Marker{}, fmt.Errorf("apiclient.Client.CreateMarker: %w", err)
	}
	var out domain.Marker
	if err := c.do(ctx, http.MethodPost, path, nil, accessToken, newMarkerIn(draft), &out); err != nil {
		return domain.Marker{}, fmt.Errorf("apiclient.Client.CreateMarker: %w", err)
	}
	return out, nil
}

// UpdateMarker replaces the fields of marker markerID.
func (c *Client) UpdateMarker(ctx context.Context, accessToken, routeID, markerID string, draft domain.MarkerDraft) (domain.Marker, error) {
	path, err := markerPath(routeID, markerID)
	if err != nil {
		return domain.Marker{}, fmt.Errorf("apiclient.Client.UpdateMarker: %w", err)
	}
	var out domain.Marker
	if err := c.do(ctx, http.MethodPut, path, nil, accessToken, newMarkerIn(draft), &out); err != nil {
		return domain.Marker{}, fmt.Errorf("apiclient.Client.UpdateMarker: %w", err)
	}
	return out, nil
}

// DeleteMarker removes marker markerID from route routeID.
func (c *Client) DeleteMarker(ctx context.Context, accessToken, routeID, markerID string) error {
	path, err := markerPath(routeID, markerID)
	if err != nil {
		return fmt.Errorf("apiclient.Client.DeleteMarker: %w", err)
	}
	if err := c.do(ctx, http.MethodDelete, path, nil, accessToken, nil, nil); err != nil {
		return fmt.Errorf("apiclient.Client.DeleteMarker: %w", err)
	}
	return nil
}

func markersPath(routeID string) (string, error) {
	base, err := routePath(routeID)
	if err != nil {
		return "", err
	}
	return base + "/markers", nil
}

func markerPath(routeID, markerID string) (string, error) {
	base, err := markersPath(routeID)
	if err != nil {
		return "", err
	}
	seg, err := pathParam("marker_id", markerID)
	if err != nil {
		return "", err
	}
	return base + "/" + seg, nil
}
