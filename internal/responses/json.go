// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package responses

import (
	"encoding/json"
	"net/http"
)

const ContentTypeJSON = "application/json; charset=UTF-8"

// WriteJSON writes v with status. Statuses that forbid a body (204, 304)
// are written empty.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	if !bodyAllowed(status) {
		return WriteEmpty(w, status)
	}

	WriteHeaders(w)
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(v)
}
