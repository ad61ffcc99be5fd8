package utils

import (
	"context"

	"marketplace-system/pkg/contextkeys"
	apperrors "marketplace-system/pkg/errors"
)

func GetUserIDFromCtx(ctx context.Context) (uint64, error) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(uint64)
	if !ok {
		return 0, apperrors.ErrUserIDNotFoundInContext
	}
	return userID, nil
}

func GetUserRolesFromCtx(ctx context.Context) ([]string, error) {
	roles, ok := ctx.Value(contextkeys.UserRolesKey).([]string)
	if !ok {
		return nil, apperrors.ErrForbidden
	}
	return roles, nil
}
