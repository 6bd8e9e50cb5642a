package web

import (
	"net/http"
	"strconv"
)

// PathID parses the {id} wildcard. Non-numeric or non-positive values are
// reported as absent.
func PathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
