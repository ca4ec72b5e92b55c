package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrOrderNotFound    = errors.New("order not found")
	ErrRefundNotAllowed = errors.New("refund not allowed for this order")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrProductNotFound  = errors.New("product not found")
	ErrUserNotFound     = errors.New("user not found")
)

// ValidationError lists the required checkout fields left blank, in form order
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "please fill in all required fields: " + strings.Join(e.Missing, ", ")
}

// SubmissionError is returned when the order service rejected or could not
// be reached and checkout is configured to block
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed to submit order: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
