package contracts

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedManifest     = errors.New("malformed manifest")
	ErrUnresolvedTemplate    = errors.New("unresolved template")
	ErrNetwork               = errors.New("network error")
	ErrTimeout               = errors.New("timeout")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrInstallConflict       = errors.New("install conflict")
	ErrUnsupportedTargetKind = errors.New("unsupported target kind")
	ErrNotInstalled          = errors.New("package not installed")
	ErrUnknownPackage        = errors.New("package not found in catalog")
)

type Phase string

const (
	PhaseLoad      Phase = "load"
	PhaseResolve   Phase = "resolve"
	PhaseFetch     Phase = "fetch"
	PhaseVerify    Phase = "verify"
	PhaseInstall   Phase = "install"
	PhaseUninstall Phase = "uninstall"
	PhaseLiveCheck Phase = "live-check"
)

// ManifestError wraps ErrMalformedManifest with the offending field.
type ManifestError struct {
	Field  string
	Reason string
}

func (this *ManifestError) Error() string {
	return fmt.Sprintf("malformed manifest: %s: %s", this.Field, this.Reason)
}
func (this *ManifestError) Unwrap() error { return ErrMalformedManifest }

// TemplateError wraps ErrUnresolvedTemplate with the placeholder that had no
// bound value.
type TemplateError struct {
	Field       string
	Placeholder string
}

func (this *TemplateError) Error() string {
	return fmt.Sprintf("unresolved template: {%s} in %s has no bound value", this.Placeholder, this.Field)
}
func (this *TemplateError) Unwrap() error { return ErrUnresolvedTemplate }

// ChecksumError wraps ErrChecksumMismatch with expected and actual digests.
type ChecksumError struct {
	Path     string
	Expected string
	Actual   string
}

func (this *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s (expected: [%s], actual: [%s])", this.Path, this.Expected, this.Actual)
}
func (this *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// ConflictError wraps ErrInstallConflict with the existing destination and the
// source that would have replaced it.
type ConflictError struct {
	Existing string
	Incoming string
	Owner    string
}

func (this *ConflictError) Error() string {
	if this.Owner != "" {
		return fmt.Sprintf("install conflict: %q (owned by %s) would be replaced by %q", this.Existing, this.Owner, this.Incoming)
	}
	return fmt.Sprintf("install conflict: %q already exists and would be replaced by %q", this.Existing, this.Incoming)
}
func (this *ConflictError) Unwrap() error { return ErrInstallConflict }

// TargetKindError wraps ErrUnsupportedTargetKind with the target it rejected.
type TargetKindError struct {
	SourcePath string
	Kind       TargetKind
}

func (this *TargetKindError) Error() string {
	return fmt.Sprintf("unsupported target kind %q for %q", this.Kind, this.SourcePath)
}
func (this *TargetKindError) Unwrap() error { return ErrUnsupportedTargetKind }

// NetworkError wraps ErrNetwork (or ErrTimeout when Timeout is set) with the
// address that failed.
type NetworkError struct {
	Address string
	Status  int
	Timeout bool
	Err     error
}

func (this *NetworkError) Error() string {
	kind := "network error"
	if this.Timeout {
		kind = "timeout"
	}
	if this.Status != 0 {
		return fmt.Sprintf("%s: %s responded with status %d", kind, this.Address, this.Status)
	}
	if this.Err != nil {
		return fmt.Sprintf("%s: %s: %v", kind, this.Address, this.Err)
	}
	return fmt.Sprintf("%s: %s", kind, this.Address)
}
func (this *NetworkError) Unwrap() []error {
	sentinel := ErrNetwork
	if this.Timeout {
		sentinel = ErrTimeout
	}
	if this.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, this.Err}
}

// PhaseError names the pipeline phase an operation failed in.
type PhaseError struct {
	Phase   Phase
	Package string
	Err     error
}

func (this *PhaseError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", this.Phase, this.Package, this.Err)
}
func (this *PhaseError) Unwrap() error { return this.Err }
