package interfaces

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for upstream HTTP requests.
// Implementations never retry; callers own any retry policy.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request to the specified URL with parameters.
	// Returns the response body as bytes or an error.
	Get(url string, params map[string]string) ([]byte, error)

	// -----------------------------------------------------------------------------

	// PostJSON marshals body as JSON, POSTs it and returns the response body.
	PostJSON(url string, body interface{}) ([]byte, error)
}
