package graph

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Error is a non-2xx Graph response.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("graph: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("graph: http %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mapError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	ret := &Error{StatusCode: resp.StatusCode()}
	body := errorBody{}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error.Code != "" {
		ret.Code = body.Error.Code
		ret.Message = body.Error.Message
		return ret
	}

	ret.Message = strings.TrimSpace(string(resp.Body()))
	if ret.Message == "" {
		ret.Message = http.StatusText(resp.StatusCode())
	}
	return ret
}
