package errors

import "net/http"

var (
	ErrEntityNotFound = New(
		"ENTITY_NOT_FOUND",
		"Entity not found",
		http.StatusNotFound,
	)

	ErrEntityGone = New(
		"ENTITY_GONE",
		"Entity has been removed",
		http.StatusGone,
	)

	ErrUnknownDataset = New(
		"UNKNOWN_DATASET",
		"One or more requested datasets do not exist",
		http.StatusBadRequest,
	)

	ErrInvalidCurie = New(
		"INVALID_CURIE",
		"Curie must be of the form prefix:reference",
		http.StatusBadRequest,
	)

	ErrInvalidGeometryRelation = New(
		"INVALID_GEOMETRY_RELATION",
		"Unknown geometry relation",
		http.StatusBadRequest,
	)

	ErrEmptyFieldSelection = New(
		"EMPTY_FIELD_SELECTION",
		"Field selection excludes every available column",
		http.StatusBadRequest,
	)

	ErrInvalidEntityID = New(
		"INVALID_ENTITY_ID",
		"Entity id must be a positive integer",
		http.StatusBadRequest,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
