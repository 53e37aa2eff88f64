package tablestore

import (
	"fmt"

	"github.com/nasdf/meeple/record"
)

// Error codes reported in a Response.
const (
	CodeInvalidFilter   = "invalid_filter"
	CodeInvalidValue    = "invalid_value"
	CodeDuplicateKey    = "duplicate_key"
	CodeImmutableColumn = "immutable_column"
	CodeNotSupported    = "not_supported"
	CodeStorage         = "storage_error"
)

// Error is a response level error.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code string, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Response is the result of a terminal builder call.
//
// Exactly one of Data or Error is meaningful. Data is a copy and may be modified freely.
type Response struct {
	Data  []record.Record
	Error *Error
}

func dataResponse(data []record.Record) *Response {
	if data == nil {
		data = []record.Record{}
	}
	return &Response{Data: data}
}

func errorResponse(err *Error) *Response {
	return &Response{Data: []record.Record{}, Error: err}
}

// Rows returns the response data as go maps.
func (r *Response) Rows() []map[string]any {
	rows := make([]map[string]any, len(r.Data))
	for i, rec := range r.Data {
		rows[i] = rec.Map()
	}
	return rows
}

// Err returns the response error or nil.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}
