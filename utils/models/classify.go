package models

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// kindForCode maps a gRPC status code onto the failure taxonomy
func kindForCode(code codes.Code) Kind {
	switch code {
	case codes.DeadlineExceeded, codes.Unavailable, codes.Internal, codes.ResourceExhausted:
		return KindTransient
	case codes.Unauthenticated, codes.PermissionDenied:
		return KindAuth
	case codes.InvalidArgument:
		return KindInvalidArgument
	case codes.NotFound:
		return KindNotFound
	default:
		return KindUnexpected
	}
}

// kindForHTTPStatus maps an HTTP status onto the failure taxonomy
func kindForHTTPStatus(code int) Kind {
	switch code {
	case http.StatusGatewayTimeout, http.StatusRequestTimeout, http.StatusServiceUnavailable,
		http.StatusBadGateway, http.StatusInternalServerError, http.StatusTooManyRequests:
		return KindTransient
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusBadRequest:
		return KindInvalidArgument
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindUnexpected
	}
}

var kindMessages = map[Kind]string{
	KindTransient:       "API call failed with retryable error",
	KindAuth:            "authentication/permission error, check your API key",
	KindInvalidArgument: "invalid argument error, check model name, prompt, or generation config",
	KindNotFound:        "model or resource not found, check the model name",
	KindUnexpected:      "an unexpected error occurred",
}

// classifyAPIError converts a transport or SDK failure into a classified error
func classifyAPIError(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	kind := KindUnexpected
	var (
		gErr   *googleapi.Error
		oaErr  *openai.APIError
		reqErr *openai.RequestError
	)
	switch {
	case errors.Is(err, context.Canceled):
		kind = KindUnexpected
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTransient
	case errors.As(err, &gErr):
		kind = kindForHTTPStatus(gErr.Code)
	case errors.As(err, &oaErr):
		kind = kindForHTTPStatus(oaErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		kind = kindForHTTPStatus(reqErr.HTTPStatusCode)
	default:
		if s, ok := status.FromError(err); ok {
			kind = kindForCode(s.Code())
		}
	}

	return newError(kind, kindMessages[kind], err)
}
