package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/planning-data/entity-search/internal/pkg/utils"
	"github.com/planning-data/entity-search/internal/usecase"
)

// DatasetHandler - обработчик для справочника datasets
type DatasetHandler struct {
	datasetUC *usecase.DatasetUseCase
	logger    *zap.Logger
}

// NewDatasetHandler - создание нового DatasetHandler
func NewDatasetHandler(datasetUC *usecase.DatasetUseCase, logger *zap.Logger) *DatasetHandler {
	return &DatasetHandler{
		datasetUC: datasetUC,
		logger:    logger,
	}
}

// List godoc
// @Summary Список известных datasets
// @Tags Datasets
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=dto.DatasetListResponse}
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/datasets [get]
func (h *DatasetHandler) List(c *fiber.Ctx) error {
	result, err := h.datasetUC.List(c.Context())
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		Total: result.Total,
	})
}
