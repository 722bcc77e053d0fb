package http

import (
	"net/http"
	"strings"

	"budget/internal/core"
	"budget/internal/upload"
)

// isHTMX reports whether r was issued by htmx rather than a full navigation.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect navigates to url: through HX-Redirect for htmx, 303 otherwise.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(url).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// stagedTemplate names the staged list partial of table.
func stagedTemplate(table core.Table) string {
	if table == core.BillsTable {
		return "staged_bills"
	}
	return "staged_transactions"
}

// acceptedExtensions is the accept attribute of the upload input.
func acceptedExtensions() string {
	return strings.Join(upload.Extensions(), ",")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
