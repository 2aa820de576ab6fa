package history

import (
	"fmt"
	"io"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

// FromGPX reads a GPX document and flattens it into a single draft path.
// Track points are used when the file has any tracks, in track then segment
// order; otherwise route points are used. A document with no points is a
// validation error.
func FromGPX(r io.Reader) (domain.LineString, error) {
	doc, err := gpx.Parse(r)
	if err != nil {
		return domain.LineString{}, fmt.Errorf("history.FromGPX: %w", err)
	}

	var coords []domain.Position
	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			for _, point := range segment.Points {
				coords = append(coords, domain.Position{point.Longitude, point.Latitude})
			}
		}
	}
	if len(coords) == 0 {
		for _, route := range doc.Routes {
			for _, point := range route.Points {
				coords = append(coords, domain.Position{point.Longitude, point.Latitude})
			}
		}
	}
	if len(coords) == 0 {
		return domain.LineString{}, fmt.Errorf("history.FromGPX: %w: no track or route points", domain.ErrValidation)
	}
	return domain.NewLineString(coords...), nil
}
