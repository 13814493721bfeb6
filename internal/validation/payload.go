package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/iudanet/rentsync/internal/models"
)

// ErrInvalidPayload возвращается, когда данные мутации не проходят проверку
var ErrInvalidPayload = errors.New("invalid payload")

// ErrReadOnlyEntity возвращается при попытке изменить каталог
var ErrReadOnlyEntity = errors.New("entity is read-only")

// New returns a configured validator with struct-level rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// конец брони не может быть раньше начала
	v.RegisterStructValidation(reservationStructValidation, models.Reservation{})

	return v
}

func reservationStructValidation(sl validatorv10.StructLevel) {
	r := sl.Current().Interface().(models.Reservation)
	// формат YYYY-MM-DD сравнивается лексикографически
	if r.StartDate != "" && r.EndDate != "" && r.EndDate < r.StartDate {
		sl.ReportError(r.EndDate, "end_date", "EndDate", "after_start", "")
	}
}

// Payloads validates mutation payloads per entity type.
type Payloads struct {
	v *validatorv10.Validate
}

// NewPayloads creates payload validator.
func NewPayloads() *Payloads {
	return &Payloads{v: New()}
}

// Struct validates any tagged struct.
func (p *Payloads) Struct(s any) error {
	if err := p.v.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, describe(err))
	}
	return nil
}

// Mutation checks that op with payload is acceptable for entityType.
// Delete carries no payload. Products are read-only for clients.
func (p *Payloads) Mutation(entityType models.EntityType, op models.Operation, payload json.RawMessage) error {
	if !entityType.Valid() {
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalidPayload, entityType)
	}
	if !op.Valid() {
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidPayload, op)
	}
	if entityType == models.EntityProduct {
		return fmt.Errorf("%w: %s", ErrReadOnlyEntity, entityType)
	}
	if op == models.OpDelete {
		return nil
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: %s requires a payload", ErrInvalidPayload, op)
	}

	var target any
	switch entityType {
	case models.EntityCart:
		target = &models.CartItem{}
	case models.EntityWishlist:
		target = &models.WishlistItem{}
	case models.EntityReservation:
		target = &models.Reservation{}
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return p.Struct(target)
}

func describe(err error) string {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msg := ""
	for i, fe := range ve {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
	return msg
}
