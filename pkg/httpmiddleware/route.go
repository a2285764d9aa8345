package httpmiddleware

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouteFinder resolves the route template that will serve r, such as
// "/api/admin/orders/{id}".
type RouteFinder func(r *http.Request) (string, bool)

// MakeRouteFinder matches requests against router without dispatching them.
func MakeRouteFinder(router *mux.Router) RouteFinder {
	return func(r *http.Request) (string, bool) {
		var match mux.RouteMatch
		if !router.Match(r, &match) || match.Route == nil {
			return "", false
		}
		tpl, err := match.Route.GetPathTemplate()
		if err != nil {
			return "", false
		}
		return tpl, true
	}
}
