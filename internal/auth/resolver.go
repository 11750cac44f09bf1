package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusnet/campusnet/internal/db"
	"github.com/campusnet/campusnet/internal/models"
)

var (
	ErrCollegeNotFound = errors.New("college not found")
	ErrMemberNotFound  = errors.New("member not found")
)

// Resolver finds the role collection containing a login identifier within
// one college. Collections are scanned in a fixed order and the first match
// wins: administrators, then teachers, then students, then drivers.
type Resolver struct {
	colleges db.CollegeCollection
	scans    []roleScan
}

type roleScan struct {
	role       models.Role
	collection db.MemberCollection
}

// NewResolver builds a resolver over the role collections of a store.
func NewResolver(store *db.Store) *Resolver {
	return &Resolver{
		colleges: store.Colleges,
		scans: []roleScan{
			{models.RoleAdmin, store.Admins},
			{models.RoleTeacher, store.Teachers},
			{models.RoleStudent, store.Students},
			{models.RoleDriver, store.Drivers},
		},
	}
}

// Resolve maps a college code and identifier to the matching member and
// college. Returns ErrCollegeNotFound or ErrMemberNotFound on miss.
func (r *Resolver) Resolve(ctx context.Context, collegeCode, identifier string) (*models.Member, *models.College, error) {
	college, err := r.colleges.FindByCode(ctx, collegeCode)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil, ErrCollegeNotFound
		}
		return nil, nil, fmt.Errorf("college lookup: %w", err)
	}

	collegeID := college.ID.Hex()
	for _, scan := range r.scans {
		member, err := scan.collection.FindByIdentifier(ctx, collegeID, identifier)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				continue
			}
			return nil, nil, fmt.Errorf("%s lookup: %w", scan.role, err)
		}
		member.Role = scan.role
		member.CollegeID = collegeID
		return member, college, nil
	}
	return nil, nil, ErrMemberNotFound
}
