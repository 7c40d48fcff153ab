package businessflow

import (
	"context"
	"fmt"

	"github.com/nextstep/storefront/app/dto"
	"github.com/nextstep/storefront/app/services"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/repository"
	"github.com/nextstep/storefront/utils"
)

const customerPageSize = 10

// AdminFlow handles the admin panel: login, dashboard and customer management
type AdminFlow interface {
	AdminLogin(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, *EstablishedSession, error)
	DashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error)
	ListCustomers(ctx context.Context, q repository.CustomerListQuery) (*dto.ListCustomersResponse, error)
	ToggleCustomerBlock(ctx context.Context, admin *models.User, customerID uint, metadata *ClientMetadata) (*dto.ToggleBlockResponse, error)
}

// AdminFlowImpl implements the admin business flow
type AdminFlowImpl struct {
	userRepo   repository.UserRepository
	auditRepo  repository.AuditLogRepository
	sessionSvc services.SessionService
}

// NewAdminFlow creates a new admin flow instance
func NewAdminFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	sessionSvc services.SessionService,
) AdminFlow {
	return &AdminFlowImpl{
		userRepo:   userRepo,
		auditRepo:  auditRepo,
		sessionSvc: sessionSvc,
	}
}

// AdminLogin authenticates against admin accounts only
func (s *AdminFlowImpl) AdminLogin(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, *EstablishedSession, error) {
	user, err := s.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Login failed", err)
	}

	// the same generic failure regardless of which check tripped, so the
	// endpoint does not reveal which admin emails exist
	if user == nil || !user.IsAdmin() || !checkPassword(user, req.Password) {
		errMsg := "Invalid admin credentials"
		_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid email or password", ErrInvalidCredentials)
	}

	if utils.IsTrue(user.IsBlocked) {
		return nil, nil, NewBusinessError("ACCOUNT_BLOCKED", "Account is blocked", ErrAccountBlocked)
	}

	ipAddress, userAgent := "", ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	session, err := s.sessionSvc.Establish(ctx, user, ipAddress, userAgent)
	if err != nil {
		return nil, nil, NewBusinessError("SESSION_CREATION_FAILED", "Failed to create session", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, utils.UTCNow()); err != nil {
		return nil, nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Login failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionLoginSuccessful, "Admin login successful", true, nil, metadata)

	return &dto.AdminLoginResponse{
			Message:  "Login successful",
			Redirect: "/admin/dashboard",
			User:     ToUserDTO(user),
		}, &EstablishedSession{
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt.Unix(),
		}, nil
}

// DashboardStats aggregates customer counts plus the ten newest signups
func (s *AdminFlowImpl) DashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	role := utils.RoleUser

	total, err := s.userRepo.Count(ctx, models.UserFilter{Role: &role})
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to load dashboard", err)
	}

	blocked, err := s.userRepo.Count(ctx, models.UserFilter{Role: &role, IsBlocked: utils.ToPtr(true)})
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to load dashboard", err)
	}

	verified, err := s.userRepo.Count(ctx, models.UserFilter{Role: &role, IsVerified: utils.ToPtr(true)})
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to load dashboard", err)
	}

	recent, err := s.userRepo.ByFilter(ctx, models.UserFilter{Role: &role}, "created_at DESC", customerPageSize, 0)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to load dashboard", err)
	}

	recentDTOs := make([]dto.CustomerSummaryDTO, 0, len(recent))
	for _, user := range recent {
		recentDTOs = append(recentDTOs, ToCustomerSummaryDTO(user))
	}

	return &dto.DashboardStatsResponse{
		TotalCustomers:    total,
		ActiveCustomers:   total - blocked,
		BlockedCustomers:  blocked,
		VerifiedCustomers: verified,
		RecentCustomers:   recentDTOs,
	}, nil
}

// ListCustomers returns one filtered, sorted page of customer accounts
func (s *AdminFlowImpl) ListCustomers(ctx context.Context, q repository.CustomerListQuery) (*dto.ListCustomersResponse, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Status == "" {
		q.Status = "all"
	}
	if q.Sort == "" {
		q.Sort = "dateDesc"
	}
	q.PageSize = customerPageSize

	customers, total, err := s.userRepo.ListCustomers(ctx, q)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LIST_FAILED", "Failed to list customers", err)
	}

	customerDTOs := make([]dto.CustomerSummaryDTO, 0, len(customers))
	for _, user := range customers {
		customerDTOs = append(customerDTOs, ToCustomerSummaryDTO(user))
	}

	totalPages := int((total + customerPageSize - 1) / customerPageSize)

	return &dto.ListCustomersResponse{
		Customers: customerDTOs,
		Pagination: dto.Pagination{
			Page:         q.Page,
			PageSize:     customerPageSize,
			TotalPages:   totalPages,
			TotalResults: total,
		},
		Status: q.Status,
		Sort:   q.Sort,
		Search: q.Search,
	}, nil
}

// ToggleCustomerBlock flips the blocked flag. Admin accounts are refused,
// and blocking a customer destroys their sessions.
func (s *AdminFlowImpl) ToggleCustomerBlock(ctx context.Context, admin *models.User, customerID uint, metadata *ClientMetadata) (*dto.ToggleBlockResponse, error) {
	customer, err := s.userRepo.ByID(ctx, customerID)
	if err != nil {
		return nil, NewBusinessError("TOGGLE_BLOCK_FAILED", "Failed to toggle block", err)
	}
	if customer == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "Customer not found", ErrUserNotFound)
	}
	if customer.IsAdmin() {
		return nil, NewBusinessError("CANNOT_BLOCK_ADMIN", "Admin accounts cannot be blocked", ErrCannotBlockAdmin)
	}

	blocked := !utils.IsTrue(customer.IsBlocked)
	if err := s.userRepo.SetBlocked(ctx, customer.ID, blocked); err != nil {
		return nil, NewBusinessError("TOGGLE_BLOCK_FAILED", "Failed to toggle block", err)
	}

	action := models.AuditActionCustomerUnblocked
	message := "Customer unblocked"
	if blocked {
		action = models.AuditActionCustomerBlocked
		message = "Customer blocked"

		if err := s.sessionSvc.DestroyAllForUser(ctx, customer.ID); err != nil {
			return nil, NewBusinessError("TOGGLE_BLOCK_FAILED", "Failed to destroy customer sessions", err)
		}
	}

	_ = createAuditLog(ctx, s.auditRepo, admin, action, fmt.Sprintf("%s (customer %d)", message, customer.ID), true, nil, metadata)

	return &dto.ToggleBlockResponse{
		Message:    message,
		CustomerID: customer.ID,
		IsBlocked:  blocked,
	}, nil
}
