package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/studio-backoffice/shared/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		principal *models.Principal
		wantRoot  string
	}{
		{
			name: "platform founder lands in house regardless of account type",
			principal: &models.Principal{
				ID:                "acc-1",
				Role:              models.RoleEmployee,
				AccountType:       models.AccountTypeOrganization,
				OrganizationID:    "org-9",
				IsPlatformFounder: true,
			},
			wantRoot: "tenants/house",
		},
		{
			name: "platform admin lands in house",
			principal: &models.Principal{
				ID:          "acc-2",
				Role:        models.RoleAdmin,
				AccountType: models.AccountTypeIndividual,
			},
			wantRoot: "tenants/house",
		},
		{
			name: "house organization member lands in house",
			principal: &models.Principal{
				ID:             "acc-3",
				Role:           models.RoleEmployee,
				AccountType:    models.AccountTypeOrganization,
				OrganizationID: HouseOrganizationID,
			},
			wantRoot: "tenants/house",
		},
		{
			name: "individual account gets a namespace keyed by its own id",
			principal: &models.Principal{
				ID:          "acc-4",
				Role:        models.RolePrincipal,
				AccountType: models.AccountTypeIndividual,
			},
			wantRoot: "tenants/ind-acc-4",
		},
		{
			name: "custom business uses its organization id",
			principal: &models.Principal{
				ID:             "acc-5",
				Role:           models.RolePrincipal,
				AccountType:    models.AccountTypeCustomBusiness,
				OrganizationID: "biz-77",
			},
			wantRoot: "tenants/biz-biz-77",
		},
		{
			name: "custom business without an organization id synthesizes one",
			principal: &models.Principal{
				ID:          "acc-6",
				Role:        models.RolePrincipal,
				AccountType: models.AccountTypeCustomBusiness,
			},
			wantRoot: "tenants/biz-acct-acc-6",
		},
		{
			name: "organization uses its organization id",
			principal: &models.Principal{
				ID:             "acc-7",
				Role:           models.RoleEmployee,
				AccountType:    models.AccountTypeOrganization,
				OrganizationID: "org-12",
			},
			wantRoot: "tenants/org-org-12",
		},
		{
			name: "unknown account type falls back to house",
			principal: &models.Principal{
				ID:          "acc-8",
				Role:        models.RoleEmployee,
				AccountType: models.AccountType("legacy"),
			},
			wantRoot: "tenants/house",
		},
		{
			name: "empty account type falls back to house",
			principal: &models.Principal{
				ID:   "acc-9",
				Role: models.RoleEmployee,
			},
			wantRoot: "tenants/house",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRoot, Classify(tt.principal).Root())
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	p := &models.Principal{
		ID:          "acc-1",
		Role:        models.RolePrincipal,
		AccountType: models.AccountTypeIndividual,
	}

	first := Resolve(p)
	second := Resolve(p)

	require.Equal(t, first.Root(), second.Root())
	for _, kind := range AllKinds {
		assert.Equal(t, first.Path(kind), second.Path(kind))
	}
}

func TestPathSetCoversEveryKind(t *testing.T) {
	ps := NewPathSet("tenants/house")

	seen := make(map[string]bool)
	for _, kind := range AllKinds {
		path := ps.Path(kind)
		assert.Equal(t, "tenants/house/"+string(kind), path)
		assert.False(t, seen[path], "duplicate path %s", path)
		seen[path] = true
	}

	// Unregistered kinds still resolve under the root instead of panicking.
	assert.Equal(t, "tenants/house/unknown", ps.Path(Kind("unknown")))
}

func TestNamespaceRootsAreDisjoint(t *testing.T) {
	roots := []string{
		HouseClass{}.Root(),
		IndividualClass{AccountID: "a"}.Root(),
		BusinessClass{OrganizationID: "a"}.Root(),
		OrganizationClass{OrganizationID: "a"}.Root(),
	}

	seen := make(map[string]bool)
	for _, root := range roots {
		assert.False(t, seen[root], "root %s reused across classes", root)
		seen[root] = true
	}
}
