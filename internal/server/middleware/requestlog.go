package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// RequestLog logs one line per request after it completes. Handler errors are rendered through the
// app's error handler first so the logged status is the one sent. Paths in skip are not logged.
func RequestLog(log *zap.Logger, skip map[string]bool) fiber.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		if skip[c.Path()] {
			return nil
		}
		// Ctx strings alias fiber's request buffers, which are reused once the handler returns.
		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("method", utils.CopyString(c.Method())),
			zap.String("path", utils.CopyString(c.Path())),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", utils.CopyString(c.IP())),
		}
		if subject, ok := Subject(c.UserContext()); ok {
			fields = append(fields, zap.String("subject", subject))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		log.Info("http request", fields...)
		return nil
	}
}
