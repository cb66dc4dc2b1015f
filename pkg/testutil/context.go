package testutil

import (
	"net/http"
	"strings"

	"sglgb/pkg/platform/middleware/metadata"
)

// WithActor sets the upstream identity headers the metadata middleware reads.
// Use it for tests that run the full router.
func WithActor(req *http.Request, id, role string, areas ...string) *http.Request {
	req.Header.Set(metadata.HeaderActorID, id)
	req.Header.Set(metadata.HeaderActorRole, role)
	if len(areas) > 0 {
		req.Header.Set(metadata.HeaderActorAreas, strings.Join(areas, ","))
	}
	return req
}
