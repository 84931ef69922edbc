package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

// PrincipalKind tags who is behind a request
type PrincipalKind int

const (
	PrincipalAnonymous PrincipalKind = iota
	PrincipalCustomer
	PrincipalAdministrator
)

func (k PrincipalKind) String() string {
	switch k {
	case PrincipalCustomer:
		return RoleCustomer
	case PrincipalAdministrator:
		return RoleAdmin
	default:
		return "anonymous"
	}
}

// Principal is the authenticated caller. The zero value is anonymous.
type Principal struct {
	kind PrincipalKind
	id   uuid.UUID
}

func Anonymous() Principal {
	return Principal{}
}

func CustomerPrincipal(id uuid.UUID) Principal {
	return Principal{kind: PrincipalCustomer, id: id}
}

func AdministratorPrincipal(id uuid.UUID) Principal {
	return Principal{kind: PrincipalAdministrator, id: id}
}

// PrincipalFromClaims resolves the token subject and role into a principal
func PrincipalFromClaims(subject, role string) (Principal, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return Anonymous(), err
	}

	switch role {
	case RoleCustomer:
		return CustomerPrincipal(id), nil
	case RoleAdmin:
		return AdministratorPrincipal(id), nil
	default:
		return Anonymous(), ErrUnknownRole
	}
}

func (p Principal) Kind() PrincipalKind { return p.kind }

func (p Principal) ID() uuid.UUID { return p.id }

func (p Principal) Role() string { return p.kind.String() }

func (p Principal) IsAnonymous() bool { return p.kind == PrincipalAnonymous }

func (p Principal) IsCustomer() bool { return p.kind == PrincipalCustomer }

func (p Principal) IsAdministrator() bool { return p.kind == PrincipalAdministrator }

// CustomerID returns the customer id when the principal is a customer
func (p Principal) CustomerID() (uuid.UUID, bool) {
	if p.kind != PrincipalCustomer {
		return uuid.Nil, false
	}
	return p.id, true
}
