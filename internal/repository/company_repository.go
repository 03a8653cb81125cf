package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/compliance-api/internal/models"
)

const companyColumns = `id, user_id, name, cuit, rama_key, owner_entity, address, postal_code, city, province, country, locality, phone, is_subscribed, selected_plan, services, created_at, updated_at`

const employeeColumns = `id, company_id, position, name, role, email, created_at`

// CompanyRepository persists companies and their employee lists.
type CompanyRepository struct {
	db *sqlx.DB
}

// NewCompanyRepository constructs the repository.
func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create inserts the company together with its initial employees in one transaction.
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create company: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertCompany = `INSERT INTO companies (` + companyColumns + `) VALUES (:id, :user_id, :name, :cuit, :rama_key, :owner_entity, :address, :postal_code, :city, :province, :country, :locality, :phone, :is_subscribed, :selected_plan, :services, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertCompany, company); err != nil {
		return fmt.Errorf("create company: %w", err)
	}

	for i := range company.Employees {
		emp := &company.Employees[i]
		if emp.ID == "" {
			emp.ID = uuid.NewString()
		}
		emp.CompanyID = company.ID
		emp.Position = i
		emp.CreatedAt = now
		const insertEmployee = `INSERT INTO company_employees (` + employeeColumns + `) VALUES (:id, :company_id, :position, :name, :role, :email, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insertEmployee, emp); err != nil {
			return fmt.Errorf("create employee: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create company: %w", err)
	}
	return nil
}

// FindByUserID returns the company owned by userID including employees.
func (r *CompanyRepository) FindByUserID(ctx context.Context, userID string) (*models.Company, error) {
	return r.findOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE user_id = $1 LIMIT 1`, userID)
}

// FindByID returns a company by identifier including employees.
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*models.Company, error) {
	return r.findOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1 LIMIT 1`, id)
}

func (r *CompanyRepository) findOne(ctx context.Context, query string, arg string) (*models.Company, error) {
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find company: %w", err)
	}
	employees, err := r.ListEmployees(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	company.Employees = employees
	return &company, nil
}

// Update replaces the profile fields and services of a company.
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	company.UpdatedAt = time.Now().UTC()
	const query = `UPDATE companies SET name = :name, cuit = :cuit, rama_key = :rama_key, owner_entity = :owner_entity, address = :address, postal_code = :postal_code, city = :city, province = :province, country = :country, locality = :locality, phone = :phone, services = :services, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, company)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return expectAffected(res, "update company")
}

// Subscribe marks the company as subscribed to plan.
func (r *CompanyRepository) Subscribe(ctx context.Context, companyID, plan string, at time.Time) error {
	const query = `UPDATE companies SET is_subscribed = TRUE, selected_plan = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, companyID, plan, at)
	if err != nil {
		return fmt.Errorf("subscribe company: %w", err)
	}
	return expectAffected(res, "subscribe company")
}

// ListEmployees returns employees in list order.
func (r *CompanyRepository) ListEmployees(ctx context.Context, companyID string) ([]models.Employee, error) {
	const query = `SELECT ` + employeeColumns + ` FROM company_employees WHERE company_id = $1 ORDER BY position ASC, created_at ASC`
	employees := make([]models.Employee, 0)
	if err := r.db.SelectContext(ctx, &employees, query, companyID); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

// AddEmployee appends an employee at the end of the list.
func (r *CompanyRepository) AddEmployee(ctx context.Context, emp *models.Employee) error {
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	emp.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO company_employees (id, company_id, position, name, role, email, created_at)
SELECT $1, $2, COALESCE(MAX(position) + 1, 0), $3, $4, $5, $6 FROM company_employees WHERE company_id = $2
RETURNING position`
	if err := r.db.GetContext(ctx, &emp.Position, query, emp.ID, emp.CompanyID, emp.Name, emp.Role, emp.Email, emp.CreatedAt); err != nil {
		return fmt.Errorf("add employee: %w", err)
	}
	return nil
}

// UpdateEmployee replaces name, role and email of an employee.
func (r *CompanyRepository) UpdateEmployee(ctx context.Context, emp *models.Employee) error {
	const query = `UPDATE company_employees SET name = $3, role = $4, email = $5 WHERE id = $1 AND company_id = $2`
	res, err := r.db.ExecContext(ctx, query, emp.ID, emp.CompanyID, emp.Name, emp.Role, emp.Email)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	return expectAffected(res, "update employee")
}

// DeleteEmployee removes an employee from the company.
func (r *CompanyRepository) DeleteEmployee(ctx context.Context, companyID, id string) error {
	const query = `DELETE FROM company_employees WHERE id = $1 AND company_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, companyID)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	return expectAffected(res, "delete employee")
}
