package contract

import (
	"context"

	"chatbot-engine-be/internal/entity"
	"chatbot-engine-be/internal/repository/specification"
)

type TurnLogRepository interface {
	Create(ctx context.Context, log *entity.TurnLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	Ping(ctx context.Context) error
}
