package implementation

import (
	"context"

	"chatbot-engine-be/internal/entity"
	"chatbot-engine-be/internal/mapper"
	"chatbot-engine-be/internal/model"
	"chatbot-engine-be/internal/repository/contract"
	"chatbot-engine-be/internal/repository/scope"
	"chatbot-engine-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type turnLogRepository struct {
	db     *gorm.DB
	mapper *mapper.TurnLogMapper
}

func NewTurnLogRepository(db *gorm.DB) contract.TurnLogRepository {
	return &turnLogRepository{db: db, mapper: mapper.NewTurnLogMapper()}
}

func (r *turnLogRepository) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *turnLogRepository) Create(ctx context.Context, log *entity.TurnLog) error {
	if log.Id == uuid.Nil {
		log.Id = uuid.New()
	}
	return r.db.WithContext(ctx).Create(r.mapper.ToModel(log)).Error
}

func (r *turnLogRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnLog, error) {
	var rows []model.TurnLog
	query := r.applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedDesc), specs...)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*entity.TurnLog, len(rows))
	for i := range rows {
		out[i] = r.mapper.ToEntity(&rows[i])
	}
	return out, nil
}

func (r *turnLogRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.TurnLog{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *turnLogRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
