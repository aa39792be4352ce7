package medical

import "context"

type ContactRepository interface {
	// UpdateForOwner rewrites each contact that belongs to ownerID. Contacts
	// that do not exist or belong to someone else are reported as not found.
	// Either every statement commits or none does.
	UpdateForOwner(ctx context.Context, ownerID int64, contacts []ContactUpdate) ([]ContactOutcome, error)
}
