package domain

import (
	"errors"
	"fmt"
	"strings"

	orderdomain "github.com/bekapono/shopping-cart/internal/service/order/domain"
)

var (
	ErrProductNotFound     = orderdomain.ErrProductNotFound
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationExpired  = errors.New("reservation expired")
	ErrAlreadyResolved     = errors.New("reservation already committed or released")
	ErrEmptyReservation    = errors.New("nothing to reserve")
)

// LineFailure 描述一行无法预占的原因
type LineFailure struct {
	ProductID orderdomain.ProductID
	Requested int
	Available int
	Err       error
}

// UnavailableError 是预占整体失败的结果，此时没有任何库存被占用
type UnavailableError struct {
	Lines []LineFailure
}

func (e *UnavailableError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if errors.Is(l.Err, ErrInsufficientStock) {
			parts = append(parts, fmt.Sprintf("%s: %v (requested %d, available %d)", l.ProductID, l.Err, l.Requested, l.Available))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", l.ProductID, l.Err))
	}
	return "inventory unavailable: " + strings.Join(parts, "; ")
}

// Unwrap 让 errors.Is(err, ErrInsufficientStock) 等判断可以穿透
func (e *UnavailableError) Unwrap() []error {
	errs := make([]error, 0, len(e.Lines))
	for _, l := range e.Lines {
		errs = append(errs, l.Err)
	}
	return errs
}
