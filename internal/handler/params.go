package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/GadCoder/BikeRoutes/internal/devbackend"
)

// pathUUID binds a required uuid path parameter the way generated
// oapi-codegen servers do and returns it in canonical form.
func pathUUID(r *http.Request, name string) (string, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", badParam(name, err)
	}
	return id.String(), nil
}

// listRoutesParams mirrors the optional query parameters of GET /routes.
type listRoutesParams struct {
	Q        *string
	Page     *int
	PageSize *int
	Sort     *string
	Order    *string
	BBox     *string
}

// bindListQuery reads the listing query over the server defaults.
func bindListQuery(r *http.Request) (devbackend.ListQuery, error) {
	var p listRoutesParams
	query := r.URL.Query()
	bindings := []struct {
		name string
		dest any
	}{
		{"q", &p.Q},
		{"page", &p.Page},
		{"page_size", &p.PageSize},
		{"sort", &p.Sort},
		{"order", &p.Order},
		{"bbox", &p.BBox},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			return devbackend.ListQuery{}, badParam(b.name, err)
		}
	}

	q := devbackend.DefaultListQuery()
	if p.Q != nil {
		q.Query = *p.Q
	}
	if p.Page != nil {
		q.Page = *p.Page
	}
	if p.PageSize != nil {
		q.PageSize = *p.PageSize
	}
	if p.Sort != nil {
		q.Sort = *p.Sort
	}
	if p.Order != nil {
		q.Order = *p.Order
	}
	if p.BBox != nil {
		q.BBox = *p.BBox
	}
	return q, nil
}

// exportParams mirrors the query parameters of GET /routes/{route_id}/export.
type exportParams struct {
	Format *string
}

func bindExportParams(r *http.Request) (exportParams, error) {
	var p exportParams
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &p.Format); err != nil {
		return exportParams{}, badParam("format", err)
	}
	return p, nil
}
