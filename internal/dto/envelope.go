package dto

import "github.com/yukikurage/taskflow-api/internal/utils"

// SuccessResponse wraps a single payload.
type SuccessResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// PaginatedResponse wraps one page of a list.
type PaginatedResponse[T any] struct {
	Success bool                 `json:"success"`
	Data    []T                  `json:"data"`
	Meta    utils.PaginationMeta `json:"meta"`
}

// MessageResponse acknowledges an operation without a payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func Success[T any](data T) SuccessResponse[T] {
	return SuccessResponse[T]{Success: true, Data: data}
}

func Paginated[T any](data []T, meta utils.PaginationMeta) PaginatedResponse[T] {
	if data == nil {
		data = []T{}
	}
	return PaginatedResponse[T]{Success: true, Data: data, Meta: meta}
}

func Message(message string) MessageResponse {
	return MessageResponse{Success: true, Message: message}
}
