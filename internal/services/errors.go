package services

import (
	"errors"
	"fmt"
)

var (
	ErrSubdomainTaken     = errors.New("subdomain is already taken")
	ErrInvalidSubdomain   = errors.New("invalid subdomain format")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrActivationTimeout  = errors.New("tenant site did not activate within the polling window")
	ErrCredentialsMissing = errors.New("tenant credentials missing")

	// ErrPartialTeardown marks a delete where the instance and the directory
	// record disagree afterwards. Requires manual reconciliation; never
	// reported as plain success.
	ErrPartialTeardown = errors.New("partial teardown: instance and directory state are inconsistent")
)

// Provisioning step names, reported back to the caller on failure.
const (
	StepCreateRecord = "create_record"
	StepCreateSite   = "create_site"
	StepInstallApps  = "install_apps"
	StepGenerateKeys = "generate_api_keys"
	StepRecordActive = "record_active"
)

// ProvisioningError identifies which provisioning step failed.
type ProvisioningError struct {
	Step string
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning failed at step %s: %v", e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
