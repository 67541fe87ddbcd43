package services

import (
	"errors"
	"strings"
	"time"

	"nexusgate/internal/models"

	"gorm.io/gorm"
)

// DirectoryService is the system-of-record access layer for tenant records.
// Uniqueness of the subdomain is enforced by the storage layer (unique
// index), not by a check-then-insert in application code, so two racing
// signups can create at most one record.
type DirectoryService struct {
	db *gorm.DB
}

func NewDirectoryService(db *gorm.DB) *DirectoryService {
	return &DirectoryService{db: db}
}

func (s *DirectoryService) Create(t *models.Tenant) error {
	if err := s.db.Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrSubdomainTaken
		}
		return err
	}
	return nil
}

func (s *DirectoryService) GetBySubdomain(subdomain string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.Where("subdomain = ?", subdomain).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *DirectoryService) GetByOwnerEmail(email string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.Where("owner_email = ?", email).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns tenant records for operator review, bounded by limit.
func (s *DirectoryService) List(limit int) ([]models.Tenant, error) {
	if limit <= 0 {
		limit = 100
	}
	var tenants []models.Tenant
	if err := s.db.Order("created_at desc").Limit(limit).Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (s *DirectoryService) UpdateStatus(subdomain, status string) error {
	res := s.db.Model(&models.Tenant{}).Where("subdomain = ?", subdomain).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// MarkActive records the connection details of a successfully provisioned
// instance and advances the tenant to active. A tenant never reaches active
// without a site URL and a verified credential pair.
func (s *DirectoryService) MarkActive(subdomain, siteURL, erpnextSite, apiKey, apiSecret string) error {
	now := time.Now().UTC()
	res := s.db.Model(&models.Tenant{}).Where("subdomain = ?", subdomain).Updates(map[string]any{
		"status":         models.StatusActive,
		"site_url":       siteURL,
		"erpnext_site":   erpnextSite,
		"api_key":        apiKey,
		"api_secret":     apiSecret,
		"provisioned_at": &now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (s *DirectoryService) MarkFailed(subdomain string) error {
	return s.UpdateStatus(subdomain, models.StatusFailed)
}

func (s *DirectoryService) Delete(subdomain string) error {
	res := s.db.Where("subdomain = ?", subdomain).Delete(&models.Tenant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// UpdateUsage refreshes the periodically collected usage counters.
func (s *DirectoryService) UpdateUsage(subdomain string, users, leads, projects, invoices int) error {
	res := s.db.Model(&models.Tenant{}).Where("subdomain = ?", subdomain).Updates(map[string]any{
		"users":    users,
		"leads":    leads,
		"projects": projects,
		"invoices": invoices,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// The sqlite driver surfaces constraint failures as plain errors
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint")
}
