package service

import (
	"errors"
	"fmt"

	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"
)

// lockFailure reports a failed SELECT ... FOR UPDATE. A lock wait the
// database gave up on is SYS_002 so clients may retry; anything else is SYS_001.
func lockFailure(what string, err error) *apperror.AppError {
	if errors.Is(err, ports.ErrLockTimeout) {
		return apperror.ErrLockTimeout(fmt.Errorf("lock %s: %w", what, err))
	}
	return apperror.InternalError(fmt.Errorf("lock %s: %w", what, err))
}
