package httpresponse

import "fmt"

// APIError is the JSON body returned for every failure mode.
type APIError struct {
	ErrorMessage string `json:"error"`
}

func Error(message string) APIError {
	return APIError{ErrorMessage: message}
}

func Errorf(format string, a ...interface{}) APIError {
	return Error(fmt.Sprintf(format, a...))
}
