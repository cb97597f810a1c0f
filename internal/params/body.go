// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package params

import (
	"bytes"
	"fmt"
	"mime"

	"seedapi/internal/apierror"

	"github.com/ohler55/ojg/oj"
)

const (
	MIMEJSON = "application/json"
	MIMEForm = "application/x-www-form-urlencoded"
)

// ParseBody decodes a request body. JSON bodies must be objects and keep
// their types; form bodies are decoded like query strings. Any other
// content type is rejected.
func ParseBody(contentType string, body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil && contentType != "" {
		return nil, apierror.InvalidRequest(fmt.Sprintf("Invalid content type %q", contentType))
	}

	switch mediaType {
	case MIMEJSON:
		data, err := oj.Parse(body)
		if err != nil {
			return nil, apierror.InvalidRequest("Request body is not valid JSON")
		}
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, apierror.InvalidRequest("Request body must be a JSON object")
		}
		return obj, nil
	case MIMEForm:
		return ParseQuery(string(body)), nil
	default:
		return nil, apierror.InvalidRequest(fmt.Sprintf("Unsupported content type %q", contentType))
	}
}
