package service

import (
	"time"

	"admin-service/internal/audit"
	"admin-service/internal/hashing"
	"admin-service/internal/mail"
	"admin-service/internal/repository/scylla"
	"admin-service/internal/token"
)

// ServiceFactory wires domain services over their dependencies.
type ServiceFactory struct {
	adminService *AdminService
}

func NewServiceFactory(
	repo scylla.AdminRepository,
	hasher *hashing.Hasher,
	tokens *token.Generator,
	sessions SessionStore,
	limiter AttemptLimiter,
	mailer mail.Mailer,
	auditor *audit.Publisher,
	sessionTTL time.Duration,
) *ServiceFactory {
	return &ServiceFactory{
		adminService: NewAdminService(repo, hasher, tokens, sessions, limiter, mailer, auditor, sessionTTL),
	}
}

func (f *ServiceFactory) AdminService() *AdminService {
	return f.adminService
}
