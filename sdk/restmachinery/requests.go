package restmachinery

// OutboundRequest models a request to the API server.
type OutboundRequest struct {
	// Method is the HTTP method, e.g. http.MethodPost.
	Method string
	// Path is the request path relative to the API address, e.g. "user/login".
	// A leading slash is tolerated.
	Path string
	// QueryParams are added to the request URL.
	QueryParams map[string]string
	// Headers are added to the request. The access token header is managed by
	// the BaseClient and should not be set here.
	Headers map[string]string
	// ReqBodyObj is marshaled to JSON and sent as the request body. A []byte is
	// sent as-is.
	ReqBodyObj interface{}
	// RespObj, if non-nil, is what ExecuteRequest decodes the response
	// envelope's data into.
	RespObj interface{}
}
