package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/oryxpos/internal/services"
)

// serviceError maps the typed domain errors to one HTTP status and one
// human-readable message per kind. Unknown errors pass through to the fiber
// error handler.
func serviceError(err error) error {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		return fiber.NewError(fiber.StatusBadRequest, validation.Message)
	}

	var rule *services.BusinessRuleError
	if errors.As(err, &rule) {
		return fiber.NewError(fiber.StatusUnprocessableEntity, rule.Message)
	}

	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		return fiber.NewError(fiber.StatusNotFound, notFound.Error())
	}

	var locked *services.OrderLockedError
	var closed *services.OrderClosedError
	var transition *services.InvalidStateTransitionError
	var settled *services.AlreadySettledError
	var merge *services.TableNotAvailableForMergeError
	if errors.As(err, &locked) || errors.As(err, &closed) ||
		errors.As(err, &transition) || errors.As(err, &settled) ||
		errors.As(err, &merge) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}

	return err
}
