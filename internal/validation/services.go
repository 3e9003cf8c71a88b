package validation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zfogg/biolink/internal/logger"
	"go.uber.org/zap"
)

// ServiceCheck probes one backing service
type ServiceCheck func(ctx context.Context) error

// ServiceValidator fails startup when a service marked as required is unreachable.
// A service is required when BIOLINK_REQUIRE_<NAME> is truthy.
type ServiceValidator struct {
	requiredServices []string
	checks           map[string]ServiceCheck
}

// NewServiceValidator creates a validator over the named checks
func NewServiceValidator(checks map[string]ServiceCheck) *ServiceValidator {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	return &ServiceValidator{
		requiredServices: parseRequiredServices(names),
		checks:           checks,
	}
}

// ValidateServices runs the check of every required service
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("🔍 Validating required services",
		zap.Strings("services", sv.requiredServices),
	)

	for _, name := range sv.requiredServices {
		check, ok := sv.checks[name]
		if !ok || check == nil {
			return fmt.Errorf("required service %q is not configured", name)
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("❌ Required service validation failed",
				zap.String("service", name),
				zap.Error(err),
			)
			return fmt.Errorf("required service %q validation failed: %w", name, err)
		}

		logger.Log.Info("✅ Service validated successfully",
			zap.String("service", name),
		)
	}
	return nil
}

// Required returns the names of the services that must be reachable
func (sv *ServiceValidator) Required() []string {
	return sv.requiredServices
}

func parseRequiredServices(names []string) []string {
	var required []string
	for _, name := range names {
		envVar := "BIOLINK_REQUIRE_" + strings.ToUpper(name)
		if isTruthy(os.Getenv(envVar)) {
			required = append(required, name)
		}
	}
	return required
}

// isTruthy checks if a string value represents a truthy value
func isTruthy(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}
