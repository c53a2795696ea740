package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/planning-data/entity-search/internal/domain"
	"github.com/planning-data/entity-search/internal/pkg/errors"
	"github.com/planning-data/entity-search/internal/pkg/utils"
	"github.com/planning-data/entity-search/internal/pkg/validator"
	"github.com/planning-data/entity-search/internal/usecase"
	"github.com/planning-data/entity-search/internal/usecase/dto"
)

// EntityHandler - обработчик для поиска и выборки entities
type EntityHandler struct {
	searchUC *usecase.SearchUseCase
	entityUC *usecase.EntityUseCase
	logger   *zap.Logger
}

// NewEntityHandler - создание нового EntityHandler
func NewEntityHandler(searchUC *usecase.SearchUseCase, entityUC *usecase.EntityUseCase, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{
		searchUC: searchUC,
		entityUC: entityUC,
		logger:   logger,
	}
}

// Search godoc
// @Summary Поиск entities по фильтрам
// @Description Фильтрация каталога по датасетам, идентификаторам, датам и пространственным отношениям; count всегда считается по тем же предикатам, что и выдача
// @Tags Entities
// @Produce json
// @Param dataset query []string false "Dataset names"
// @Param geometry query []string false "Comparison geometry as WKT"
// @Param geometry_relation query string false "intersects|equals|disjoint|touches|contains|covers|coveredby|overlaps|crosses|within"
// @Param period query []string false "current|historical|all"
// @Param limit query int false "Page size"
// @Param offset query int false "Page start"
// @Success 200 {object} dto.SearchResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/entities [get]
func (h *EntityHandler) Search(c *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"validation": err.Error(),
		}))
	}

	if req.Format == string(domain.FormatGeoJSON) {
		fc, err := h.searchUC.SearchGeoJSON(c.Context(), req)
		if err != nil {
			return utils.SendError(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.JSON(fc)
	}

	result, err := h.searchUC.Search(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return c.JSON(result)
}

// GetByID godoc
// @Summary Получение entity по идентификатору
// @Description Перед выборкой проверяется таблица redirect: снятая с учёта entity отвечает 410, перемещённая отдаётся по новому идентификатору
// @Tags Entities
// @Produce json
// @Param id path int true "Entity id"
// @Success 200 {object} utils.SuccessResponse{data=domain.Entity}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 410 {object} utils.ErrorResponse
// @Router /api/v1/entities/{id} [get]
func (h *EntityHandler) GetByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return utils.SendError(c, errors.ErrInvalidEntityID)
	}

	entity, err := h.entityUC.GetByID(c.Context(), id)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, entity, nil)
}
