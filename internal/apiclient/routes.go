package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

type routeIn struct {
	Title       string            `json:"title"`
	Description *string           `json:"description"`
	Geometry    domain.LineString `json:"geometry"`
	IsPublic    bool              `json:"is_public"`
}

func newRouteIn(d domain.RouteDraft) routeIn {
	return routeIn{
		Title:       d.Title,
		Description: optional(d.Description),
		Geometry:    d.Geometry,
		IsPublic:    d.IsPublic,
	}
}

// ListRoutes returns one page of the caller's routes.
func (c *Client) ListRoutes(ctx context.Context, accessToken string, p domain.ListParams) ([]domain.Route, error) {
	q := url.Values{}
	params := []struct {
		name  string
		value any
		set   bool
	}{
		{"q", p.Query, p.Query != ""},
		{"page", p.Page, p.Page > 0},
		{"page_size", p.PageSize, p.PageSize > 0},
		{"sort", p.Sort, p.Sort != ""},
		{"order", p.Order, p.Order != ""},
	}
	for _, param := range params {
		if !param.set {
			continue
		}
		if err := addQuery(q, param.name, param.value); err != nil {
			return nil, fmt.Errorf("apiclient.Client.ListRoutes: %w", err)
		}
	}

	var out []domain.Route
	if err := c.do(ctx, http.MethodGet, "/routes", q, accessToken, nil, &out); err != nil {
		return nil, fmt.Errorf("apiclient.Client.ListRoutes: %w", err)
	}
	if out == nil {
		out = []domain.Route{}
	}
	return out, nil
}

// GetRoute fetches one route with its markers.
func (c *Client) GetRoute(ctx context.Context, accessToken, id string) (domain.Route, error) {
	path, err := routePath(id)
	if err != nil {
		return domain.Route{}, fmt.Errorf("apiclient.Client.GetRoute: %w", err)
	}
	var out domain.Route
	if err := c.do(ctx, http.MethodGet, path, nil, accessToken, nil, &out); err != nil {
		return domain.Route{}, fmt.Errorf("apiclient.Client.GetRoute: %w", err)
	}
	return out, nil
}

// CreateRoute creates a route from draft.
func (c *Client) CreateRoute(ctx context.Context, accessToken string, draft domain.RouteDraft) (domain.Route, error) {
	var out domain.Route
	if err := c.do(ctx, http.MethodPost, "/routes", nil, accessToken, newRouteIn(draft), &out); err != nil {
		return domain.Route{}, fmt.Errorf("apiclient.Client.CreateRoute: %w", err)
	}
	return out, nil
}

// UpdateRoute replaces the title, description, geometry, and visibility of
// route id.
func (c *Client) UpdateRoute(ctx context.Context, accessToken, id string, draft domain.RouteDraft) (domain.Route, error) {
	path, err := routePath(id)
	if err != nil {
		return domain.Route{}, fmt.Errorf("apiclient.Client.UpdateRoute: %w", err)
	}
	var out domain.Route
	if err := c.do(ctx, http.MethodPut, path, nil, accessToken, newRouteIn(draft), &out); err != nil {
		return domain.Route{}, fmt.Errorf("apiclient.Client.UpdateRoute: %w", err)
	}
	return out, nil
}

// DeleteRoute deletes route id and its markers.
func (c *Client) DeleteRoute(ctx context.Context, accessToken, id string) error {
	path, err := routePath(id)
	if err != nil {
		return fmt.Errorf("apiclient.Client.DeleteRoute: %w", err)
	}
	if err := c.do(ctx, http.MethodDelete, path, nil, accessToken, nil, nil); err != nil {
		return fmt.Errorf("apiclient.Client.DeleteRoute: %w", err)
	}
	return nil
}

func routePath(id string) (string, error) {
	seg, err := pathParam("route_id", id)
	if err != nil {
		return "", err
	}
	return "/routes/" + seg, nil
}
