// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package responses

import (
	"net/http"
	"time"
)

// WriteHeaders sets the headers common to every response. A request id
// already placed by middleware is kept.
func WriteHeaders(w http.ResponseWriter) {
	h := w.Header()

	h.Set("Server", "seedapi")
	h.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	if h.Get(HeaderRequestID) == "" {
		h.Set(HeaderRequestID, NewRequestID())
	}
}
