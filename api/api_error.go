package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type ApiError struct {
	// Code is the HTTP status code
	Code int `json:"code"`
	// Message is the error message
	Message string `json:"message"`
}

func ApiErrorf(c *gin.Context, code int, format string, args ...interface{}) ApiError {
	ar := ApiError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
	c.AbortWithStatusJSON(code, ar)
	return ar
}

func ValidatorErrorToUser(err validator.ValidationErrors) string {
	var errorMessages []string
	for _, err := range err {
		switch err.Tag() {
		case "required":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is required", err.Field()))
		case "len":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param()))
		case "hexadecimal":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be hex encoded", err.Field()))
		case "min":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param()))
		case "gt":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param()))
		case "gte":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must not be negative", err.Field()))
		default:
			errorMessages = append(errorMessages, fmt.Sprintf("validation failed on field %s", err.Field()))
		}
	}
	return strings.Join(errorMessages, ". ")
}
