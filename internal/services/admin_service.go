package services

import (
	"context"
	"errors"
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"tappinpay/internal/domain"
	"tappinpay/internal/remote"
	"tappinpay/internal/scan"
	"tappinpay/internal/validate"
)

var (
	ErrBadPin        = errors.New("invalid admin pin")
	ErrAdminDisabled = errors.New("admin access is not configured")
)

// ValidationError carries field -> failed rule for a rejected payload.
type ValidationError struct{ Fields map[string]string }

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid fields: %v", e.Fields) }

const (
	TagFormatText = "text"
	TagFormatURL  = "url"
)

// AdminService manages the catalogue and prepares tag payloads. Every call is
// gated by a PIN compared against a bcrypt hash.
type AdminService struct {
	API     *remote.Client
	TagBase string

	hash []byte
	v    *validatorv10.Validate
}

// NewAdminService hashes pin once. An empty pin disables admin access.
func NewAdminService(api *remote.Client, pin, tagBase string) (*AdminService, error) {
	s := &AdminService{API: api, TagBase: tagBase, v: validate.New()}
	if pin == "" {
		return s, nil
	}
	if !validate.Pin(pin) {
		return nil, ErrBadPin
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	s.hash = h
	return s, nil
}

func (s *AdminService) Authorize(pin string) error {
	if s.hash == nil {
		return ErrAdminDisabled
	}
	if !validate.Pin(pin) || bcrypt.CompareHashAndPassword(s.hash, []byte(pin)) != nil {
		return ErrBadPin
	}
	return nil
}

func (s *AdminService) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID, _ = validate.ProductID(p.ID)
	if p.Category == "" && len(p.ID) >= 4 {
		p.Category = p.ID[:4]
	}
	if err := s.v.Struct(p); err != nil {
		return domain.Product{}, &ValidationError{Fields: validate.Fields(err)}
	}
	return s.API.AddProduct(ctx, p)
}

func (s *AdminService) UpdateStock(ctx context.Context, id string, stock int) (domain.Product, error) {
	id, ok := validate.ProductID(id)
	if !ok {
		return domain.Product{}, &ValidationError{Fields: map[string]string{"ID": "productid"}}
	}
	if stock < 0 {
		return domain.Product{}, &ValidationError{Fields: map[string]string{"Stock": "gte"}}
	}
	return s.API.UpdateProductStock(ctx, id, stock)
}

// TagMessage builds the NDEF message to write onto a product's tag.
func (s *AdminService) TagMessage(ctx context.Context, id, format string) (scan.Message, error) {
	id, ok := validate.ProductID(id)
	if !ok {
		return scan.Message{}, ErrBadProductID
	}
	if _, found := s.API.GetProductByID(ctx, id); !found {
		return scan.Message{}, ErrProductNotFound
	}
	switch format {
	case "", TagFormatText:
		return scan.Message{Records: []scan.Record{scan.EncodeTextRecord(id, "en")}}, nil
	case TagFormatURL:
		return scan.Message{Records: []scan.Record{scan.EncodeURLRecord(s.TagBase, id)}}, nil
	}
	return scan.Message{}, &ValidationError{Fields: map[string]string{"format": "oneof"}}
}
