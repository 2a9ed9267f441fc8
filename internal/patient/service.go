package patient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"medo-shield/internal/platform/apierr"
	"medo-shield/internal/platform/auth"
)

var (
	errInvalidID = apierr.BadRequest("invalid_id", "Invalid patient id")
	errNotFound  = apierr.New(http.StatusNotFound, "patient_not_found", ErrNotFound)
	errForbidden = apierr.Forbidden("Not authorized")
)

// Access resolves which patient records a caller may touch.
type Access interface {
	VerifyAccess(ctx context.Context, rawID string, who auth.Identity) (*Patient, error)
}

type access struct {
	repo Repository
}

func NewAccess(repo Repository) Access {
	return &access{repo: repo}
}

// VerifyAccess parses rawID and checks the caller against it. A patient may
// address their own record by patient id or by their user id; a doctor needs
// an active assignment.
func (a *access) VerifyAccess(ctx context.Context, rawID string, who auth.Identity) (*Patient, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errInvalidID
	}

	switch who.Role {
	case auth.RolePatient:
		p, err := a.repo.GetByUserID(ctx, who.UserID)
		if err != nil {
			return nil, lookupErr(err)
		}
		if id != p.ID && id != p.UserID {
			return nil, errForbidden
		}
		return p, nil

	case auth.RoleDoctor:
		ok, err := a.repo.HasActiveAssignment(ctx, id, who.UserID)
		if err != nil {
			return nil, fmt.Errorf("check assignment: %w", err)
		}
		if !ok {
			return nil, errForbidden
		}
		p, err := a.repo.GetByID(ctx, id)
		if err != nil {
			return nil, lookupErr(err)
		}
		return p, nil
	}
	return nil, errForbidden
}

// Exists is used by doctor-only endpoints that address a patient without an
// assignment check.
func Exists(ctx context.Context, repo Repository, rawID string) (*Patient, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errInvalidID
	}
	p, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err)
	}
	return p, nil
}

func lookupErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return errNotFound
	}
	return fmt.Errorf("load patient: %w", err)
}
