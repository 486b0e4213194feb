package resources

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// HubEndpoint is the base of the hub resolve URLs built for identifiers
// that have no explicit URL in a lookup table.
var HubEndpoint = "https://huggingface.co"

// HubURL returns the download URL of file name for a hub model identifier.
func HubURL(id string, name string) string {
	return HubEndpoint + "/" + id + "/resolve/main/" + name
}

func newRequest(client *http.Client, method string, url string,
	auth string) (*http.Response, error) {
	req, reqErr := http.NewRequest(method, url, nil)
	if reqErr != nil {
		return nil, reqErr
	}
	if auth != "" {
		req.Header.Add("Authorization", "Bearer "+auth)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

// FetchHTTP
// Fetch a resource from a remote HTTP server with optional bearer token auth.
func FetchHTTP(client *http.Client, url string, auth string) (io.ReadCloser,
	error) {
	resp, remoteErr := newRequest(client, http.MethodGet, url, auth)
	if remoteErr != nil {
		return nil, remoteErr
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, statusError(url, resp.StatusCode)
	}
	return resp.Body, nil
}

// SizeHTTP
// Get the size of a remote resource with a HEAD request. A server that does
// not report Content-Length yields a size of 0.
func SizeHTTP(client *http.Client, url string, auth string) (uint, error) {
	resp, remoteErr := newRequest(client, http.MethodHead, url, auth)
	if remoteErr != nil {
		return 0, remoteErr
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, statusError(url, resp.StatusCode)
	}
	size, _ := strconv.Atoi(resp.Header.Get("Content-Length"))
	return uint(size), nil
}

func statusError(url string, code int) error {
	if code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return fmt.Errorf("HTTP status code %d for %s", code, url)
}
