package requestdata

import (
	"context"

	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/types"
)

var requestDataKey = struct{}{}

type RequestData struct {
	TokenString string
	UserID      uuid.UUID
	Role        types.UserRole
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}
