// Package tenant maps an authenticated principal onto the physical storage
// namespace its data lives under. Resolution is a pure function of the
// principal snapshot; path sets are computed fresh per request and never
// cached, because the namespace depends on live account state.
package tenant

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/atelierhq/studio-backoffice/shared/models"
)

// Kind is a logical resource kind. Every kind maps to a collection path under
// the resolved namespace root; the mapping is total so handlers never need a
// nil check.
type Kind string

const (
	KindProjects    Kind = "projects"
	KindDivisions   Kind = "divisions"
	KindItems       Kind = "items"
	KindEmployees   Kind = "employees"
	KindClients     Kind = "clients"
	KindTasks       Kind = "tasks"
	KindAttendance  Kind = "attendance"
	KindAdvances    Kind = "advances"
	KindSalaries    Kind = "salaries"
	KindPayments    Kind = "payments"
	KindAssignments Kind = "assignments"
	KindProcurement Kind = "procurement"
	KindDocuments   Kind = "documents"
)

// AllKinds enumerates every resource kind served by the back office.
var AllKinds = []Kind{
	KindProjects, KindDivisions, KindItems,
	KindEmployees, KindClients, KindTasks,
	KindAttendance, KindAdvances, KindSalaries, KindPayments,
	KindAssignments, KindProcurement, KindDocuments,
}

// HouseOrganizationID is the reserved organization id of the studio itself.
const HouseOrganizationID = "house"

// Class is the closed set of account classifications. Each variant carries
// exactly the fields its namespace needs, so a missing case is a compile
// error rather than a silent fallback.
type Class interface {
	// Root returns the namespace root all collection paths hang off.
	Root() string

	isClass()
}

// HouseClass is the reserved single namespace of the studio ("house") used by
// the platform founder, platform admins and house-organization accounts.
type HouseClass struct{}

// IndividualClass is a one-person namespace keyed by the account's own id.
type IndividualClass struct {
	AccountID string
}

// BusinessClass is a custom-business namespace keyed by an organization id.
type BusinessClass struct {
	OrganizationID string
}

// OrganizationClass is a full organization namespace keyed by organization id.
type OrganizationClass struct {
	OrganizationID string
}

func (HouseClass) Root() string          { return "tenants/" + HouseOrganizationID }
func (c IndividualClass) Root() string   { return "tenants/ind-" + c.AccountID }
func (c BusinessClass) Root() string     { return "tenants/biz-" + c.OrganizationID }
func (c OrganizationClass) Root() string { return "tenants/org-" + c.OrganizationID }

func (HouseClass) isClass()        {}
func (IndividualClass) isClass()   {}
func (BusinessClass) isClass()     {}
func (OrganizationClass) isClass() {}

// Classify decides which namespace class a principal belongs to. Priority is
// fixed: platform founder/admin, then house organization membership, then the
// account type. An unclassifiable account falls back to the house namespace
// with a warning; the switch over AccountType itself is exhaustive, so the
// fallback is only reachable for an unknown stored value.
func Classify(p *models.Principal) Class {
	if p.IsPlatformFounder || p.Role == models.RoleAdmin {
		return HouseClass{}
	}

	if p.OrganizationID == HouseOrganizationID {
		return HouseClass{}
	}

	switch p.AccountType {
	case models.AccountTypeIndividual:
		return IndividualClass{AccountID: p.ID}
	case models.AccountTypeCustomBusiness:
		return BusinessClass{OrganizationID: orgIDOrSynthesized(p)}
	case models.AccountTypeOrganization:
		return OrganizationClass{OrganizationID: orgIDOrSynthesized(p)}
	}

	logrus.WithFields(logrus.Fields{
		"account_id":   p.ID,
		"account_type": p.AccountType,
	}).Warn("account has no tenant classification, defaulting to house namespace")

	return HouseClass{}
}

// orgIDOrSynthesized returns the explicit organization id, or one derived
// from the account when none was ever set.
func orgIDOrSynthesized(p *models.Principal) string {
	if p.OrganizationID != "" {
		return p.OrganizationID
	}
	return "acct-" + p.ID
}

// PathSet maps every resource kind to its collection path under one
// namespace root.
type PathSet struct {
	root  string
	paths map[Kind]string
}

// Resolve computes the tenant path set for a principal. Two calls with an
// identical principal snapshot yield identical path sets.
func Resolve(p *models.Principal) PathSet {
	return NewPathSet(Classify(p).Root())
}

// NewPathSet builds the total kind-to-path mapping under root.
func NewPathSet(root string) PathSet {
	paths := make(map[Kind]string, len(AllKinds))
	for _, kind := range AllKinds {
		paths[kind] = root + "/" + string(kind)
	}
	return PathSet{root: root, paths: paths}
}

// Root returns the namespace root.
func (ps PathSet) Root() string {
	return ps.root
}

// Path returns the collection path for a kind. The mapping is total; an
// unregistered kind still resolves under the root.
func (ps PathSet) Path(kind Kind) string {
	if p, ok := ps.paths[kind]; ok {
		return p
	}
	return ps.root + "/" + string(kind)
}

// Scope returns a gorm scope restricting a query to the kind's collection
// path inside this namespace.
func (ps PathSet) Scope(kind Kind) func(*gorm.DB) *gorm.DB {
	path := ps.Path(kind)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_path = ?", path)
	}
}
