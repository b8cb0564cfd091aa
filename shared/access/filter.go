// Package access narrows every resource query to what the requesting
// principal's role may see, and gates mutations per role. Read-side filtering
// silently narrows; write-side violations surface as forbidden errors so a
// denied mutation is never mistaken for an empty result.
package access

import (
	"gorm.io/gorm"

	"github.com/atelierhq/studio-backoffice/shared/apperrors"
	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/tenant"
)

// Action is a mutation class checked by AuthorizeMutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Filter scopes queries and authorizes mutations for one principal within
// one resolved tenant namespace. Build one per request.
type Filter struct {
	db        *gorm.DB
	paths     tenant.PathSet
	principal *models.Principal
}

// New builds a filter for the principal, resolving its tenant namespace.
func New(db *gorm.DB, principal *models.Principal) *Filter {
	return &Filter{
		db:        db,
		paths:     tenant.Resolve(principal),
		principal: principal,
	}
}

// Paths exposes the resolved tenant path set.
func (f *Filter) Paths() tenant.PathSet {
	return f.paths
}

// Scope returns a gorm scope restricting a query over kind to the rows the
// principal may read. The scope always pins the tenant collection path first,
// then narrows by role.
func (f *Filter) Scope(kind tenant.Kind) func(*gorm.DB) *gorm.DB {
	path := f.paths.Path(kind)

	return func(q *gorm.DB) *gorm.DB {
		q = q.Where("tenant_path = ?", path)

		switch f.principal.Role {
		case models.RolePrincipal, models.RoleAdmin:
			return q
		case models.RoleProcurement:
			// Full visibility; write restrictions are enforced separately.
			return q
		case models.RoleEmployee:
			return f.scopeEmployee(q, kind)
		case models.RoleClient:
			return f.scopeClient(q, kind)
		}

		return q.Where("1 = 0")
	}
}

// scopeEmployee limits an employee to records referencing their own account.
func (f *Filter) scopeEmployee(q *gorm.DB, kind tenant.Kind) *gorm.DB {
	switch kind {
	case tenant.KindTasks:
		return q.Where("assignee_id = ?", f.principal.ID)
	case tenant.KindAttendance, tenant.KindDocuments:
		return q.Where("account_id = ?", f.principal.ID)
	case tenant.KindEmployees:
		return q.Where("account_id = ?", f.principal.ID)
	case tenant.KindSalaries, tenant.KindAdvances:
		return q.Where("employee_id IN (?)", f.ownEmployeeIDs())
	case tenant.KindPayments:
		return q.Where("salary_id IN (?)", f.ownSalaryIDs())
	}
	return q.Where("1 = 0")
}

// scopeClient limits a client to projects an assignment binds them to.
func (f *Filter) scopeClient(q *gorm.DB, kind tenant.Kind) *gorm.DB {
	switch kind {
	case tenant.KindProjects:
		return q.Where("id IN (?)", f.assignedProjectIDs())
	case tenant.KindDivisions, tenant.KindItems, tenant.KindProcurement:
		return q.Where("project_id IN (?)", f.assignedProjectIDs())
	}
	return q.Where("1 = 0")
}

// assignedProjectIDs is a subquery yielding the project ids the principal is
// assigned to within this namespace.
func (f *Filter) assignedProjectIDs() *gorm.DB {
	return f.db.Model(&models.Assignment{}).
		Select("project_id").
		Where("tenant_path = ? AND account_id = ?",
			f.paths.Path(tenant.KindAssignments), f.principal.ID)
}

// ownEmployeeIDs is a subquery yielding the principal's own employee profile
// ids within this namespace.
func (f *Filter) ownEmployeeIDs() *gorm.DB {
	return f.db.Model(&models.EmployeeProfile{}).
		Select("id").
		Where("tenant_path = ? AND account_id = ?",
			f.paths.Path(tenant.KindEmployees), f.principal.ID)
}

// ownSalaryIDs is a subquery yielding salary ids belonging to the
// principal's own employee profiles.
func (f *Filter) ownSalaryIDs() *gorm.DB {
	return f.db.Model(&models.Salary{}).
		Select("id").
		Where("tenant_path = ? AND employee_id IN (?)",
			f.paths.Path(tenant.KindSalaries), f.ownEmployeeIDs())
}

// AuthorizeMutation decides whether the principal's role may perform action
// on kind at all. Ownership checks on the specific target (an employee
// touching only their own task or attendance) are enforced by the handlers on
// top of this gate.
func (f *Filter) AuthorizeMutation(kind tenant.Kind, action Action) error {
	switch f.principal.Role {
	case models.RolePrincipal, models.RoleAdmin:
		return nil

	case models.RoleProcurement:
		if kind == tenant.KindProcurement {
			return nil
		}

	case models.RoleEmployee:
		switch kind {
		case tenant.KindAttendance:
			if action == ActionCreate {
				return nil
			}
		case tenant.KindTasks:
			if action == ActionUpdate {
				return nil
			}
		}

	case models.RoleClient:
		// Clients never mutate back-office records.
	}

	return apperrors.Unauthorizedf("role %s may not %s %s", f.principal.Role, action, kind)
}

// AuthorizeTaskUpdate applies the employee ownership rules for a task
// mutation: only the assignee may touch it, and the assignee may not move
// their own submission into the approved state.
func (f *Filter) AuthorizeTaskUpdate(task *models.Task, next models.TaskStatus) error {
	if f.principal.Role == models.RolePrincipal || f.principal.Role == models.RoleAdmin {
		return nil
	}

	if task.AssigneeID != f.principal.ID {
		return apperrors.Unauthorizedf("task belongs to another employee")
	}

	if next == models.TaskStatusApproved {
		return apperrors.Unauthorizedf("employees may not approve their own tasks")
	}

	return nil
}

// AuthorizeAttendanceTarget rejects an employee recording attendance for
// anyone but themselves.
func (f *Filter) AuthorizeAttendanceTarget(accountID string) error {
	if f.principal.Role == models.RolePrincipal || f.principal.Role == models.RoleAdmin {
		return nil
	}

	if accountID != f.principal.ID {
		return apperrors.Unauthorizedf("attendance may only be recorded for yourself")
	}

	return nil
}

// SanitizeProcurement strips internal markup from procurement records before
// they reach a client-role principal. Other roles see stored values.
func (f *Filter) SanitizeProcurement(items []models.ProcurementItem) []models.ProcurementItem {
	if f.principal.Role != models.RoleClient {
		return items
	}

	sanitized := make([]models.ProcurementItem, len(items))
	for i, item := range items {
		item.InternalMarkup = 0
		sanitized[i] = item
	}
	return sanitized
}
