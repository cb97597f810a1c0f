// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GitHub reads the seed file from a repository through the contents API.
type GitHub struct {
	baseURL string
	path    string
	token   string
	client  *http.Client
}

func NewGitHub(baseURL, path, token string, timeout time.Duration) *GitHub {
	return &GitHub{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    strings.TrimLeft(path, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (g *GitHub) Fetch(ctx context.Context, user, repo string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		g.baseURL, url.PathEscape(user), url.PathEscape(repo), g.path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", user, repo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrNotFound, user, repo, g.path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s/%s: github responded %s", user, repo, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", user, repo, err)
	}

	var contents contentsResponse
	if err := json.Unmarshal(body, &contents); err != nil {
		return nil, fmt.Errorf("decode contents of %s/%s: %w", user, repo, err)
	}

	switch contents.Encoding {
	case "base64":
		clean := strings.NewReplacer("\n", "", "\r", "").Replace(contents.Content)
		data, err := base64.StdEncoding.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("decode contents of %s/%s: %w", user, repo, err)
		}
		return data, nil
	case "", "utf-8":
		return []byte(contents.Content), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q for %s/%s", contents.Encoding, user, repo)
	}
}
