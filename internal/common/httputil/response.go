// Package httputil writes JSON bodies for the auxiliary HTTP endpoints.
package httputil

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

const contentTypeJSON = "application/json"

// Envelope wraps every JSON body served by loadstats
type Envelope struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteJSON encodes envelope with statusCode. Encoding failures turn into a 500.
func WriteJSON(ctx *fasthttp.RequestCtx, envelope Envelope, statusCode int) {
	body, err := json.Marshal(envelope)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetContentType(contentTypeJSON)
		ctx.SetBodyString(`{"success":false,"error":"failed to encode response"}`)
		return
	}
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType(contentTypeJSON)
	ctx.SetBody(body)
}

// JSONData responds with data and 200
func JSONData(ctx *fasthttp.RequestCtx, data interface{}) {
	WriteJSON(ctx, Envelope{Success: true, Data: data}, fasthttp.StatusOK)
}

// JSONError responds with a failed envelope
func JSONError(ctx *fasthttp.RequestCtx, message string, statusCode int) {
	WriteJSON(ctx, Envelope{Error: message}, statusCode)
}

// AllowMethods rejects requests with other methods with 405 and reports whether
// the handler may proceed
func AllowMethods(ctx *fasthttp.RequestCtx, methods ...string) bool {
	method := string(ctx.Method())
	for _, m := range methods {
		if method == m {
			return true
		}
	}
	JSONError(ctx, "method not allowed", fasthttp.StatusMethodNotAllowed)
	return false
}
