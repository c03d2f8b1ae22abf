package domain

import (
	"context"
	"errors"
)

type CreateAccountRequest struct {
	DisplayName string
}

type GetAccountRequest struct {
	ID string
}

type ListAccountRequest struct {
	Limit  int
	Offset int
}

type ListAccountResponse struct {
	Accounts []Account `json:"accounts"`
	HasMore  bool      `json:"has_more"`
}

type Service interface {
	Create(context.Context, CreateAccountRequest) (Account, error)
	GetByID(context.Context, GetAccountRequest) (Account, error)
	List(context.Context, ListAccountRequest) (ListAccountResponse, error)
}

var (
	ErrInvalidDisplayName = errors.New("invalid_display_name")
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("not_found")
)
