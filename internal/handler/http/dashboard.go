package http

import (
	"net/http"

	"github.com/markofilipovic2762/eshop-cms/pkg/httputil"
)

// DashboardStatus handles GET /dashboard. It is only reached when the
// guard accepted the user cookie, and reports who is signed in.
func DashboardStatus(w http.ResponseWriter, r *http.Request) {
	s := storesFrom(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sessionResponse(s.Session)})
}
