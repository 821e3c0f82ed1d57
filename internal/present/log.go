// Package present holds the notification-presentation primitives the
// scheduler delivers through.
package present

import (
	"context"

	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/model"
)

// LogPresenter writes notifications to the log. It always has permission.
type LogPresenter struct {
	log *zap.Logger
}

func NewLogPresenter(log *zap.Logger) *LogPresenter {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPresenter{log: log}
}

func (p *LogPresenter) Present(_ context.Context, req model.NotificationRequest) error {
	fields := []zap.Field{
		zap.String("id", req.ID),
		zap.String("category", req.Category),
		zap.String("title", req.Title),
		zap.String("body", req.Body),
	}
	if req.ActionURL != "" {
		fields = append(fields, zap.String("action_url", req.ActionURL))
	}
	p.log.Info("notification", fields...)
	return nil
}

func (p *LogPresenter) Permission(context.Context) (model.Permission, error) {
	return model.PermissionGranted, nil
}
