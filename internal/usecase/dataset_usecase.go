package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/planning-data/entity-search/internal/domain/repository"
	"github.com/planning-data/entity-search/internal/usecase/dto"
)

// DatasetUseCase - use case для справочника datasets
type DatasetUseCase struct {
	datasetRepo repository.DatasetRepository
	logger      *zap.Logger
}

// NewDatasetUseCase - создание нового DatasetUseCase
func NewDatasetUseCase(datasetRepo repository.DatasetRepository, logger *zap.Logger) *DatasetUseCase {
	return &DatasetUseCase{
		datasetRepo: datasetRepo,
		logger:      logger,
	}
}

// List возвращает все известные datasets
func (uc *DatasetUseCase) List(ctx context.Context) (*dto.DatasetListResponse, error) {
	datasets, err := uc.datasetRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.DatasetListResponse{
		Datasets: datasets,
		Total:    len(datasets),
	}, nil
}
