package presenter

import "github.com/gofiber/fiber/v2"

type ErrorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func JSON(c *fiber.Ctx, status int, v any) error {
	return c.Status(status).JSON(v)
}

func Error(c *fiber.Ctx, status int, message string) error {
	return JSON(c, status, ErrorResponse{Message: message})
}

// ValidationError reports the first failure as the message and lists all of them.
func ValidationError(c *fiber.Ctx, status int, errs []FieldError) error {
	resp := ErrorResponse{Errors: errs}
	if len(errs) > 0 {
		resp.Message = errs[0].Message
	}
	return JSON(c, status, resp)
}
