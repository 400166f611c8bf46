package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vinicius-lino-figueiredo/mango/domain"
)

// serverPayload is the error body the server attaches to non-2xx responses.
type serverPayload struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// classify maps a non-2xx response to the error taxonomy. The response body
// is consumed.
func classify(resp *http.Response) error {
	var payload serverPayload
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &payload)

	if resp.StatusCode >= 500 {
		return domain.ErrServer{
			Status: resp.StatusCode,
			Name:   payload.Error,
			Reason: payload.Reason,
		}
	}

	var kind error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		kind = domain.ErrUnauthorized
	case http.StatusForbidden:
		kind = domain.ErrForbidden
	case http.StatusNotFound:
		kind = domain.ErrNotFound
	case http.StatusConflict:
		kind = domain.ErrConflict
	case http.StatusPreconditionFailed:
		kind = domain.ErrPreconditionFailed
	default:
		return domain.ErrRemote{
			Kind:   errors.New(http.StatusText(resp.StatusCode)),
			Status: resp.StatusCode,
			Name:   payload.Error,
			Reason: payload.Reason,
		}
	}
	return domain.ErrRemote{
		Kind:   kind,
		Status: resp.StatusCode,
		Name:   payload.Error,
		Reason: payload.Reason,
	}
}

// retriable reports whether the error is worth another attempt. Transport
// and 5xx failures are; everything else is not.
func retriable(err error) bool {
	var transportErr domain.ErrTransport
	if errors.As(err, &transportErr) {
		return true
	}
	var serverErr domain.ErrServer
	return errors.As(err, &serverErr)
}

func isUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
