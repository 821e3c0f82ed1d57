package geo

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/daypulse/internal/model"
)

// Errors reported by a position source.
var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("location unavailable")
	ErrTimeout          = errors.New("location request timed out")
)

// Options tune a position request.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration // zero means no timeout
	MaximumAge   time.Duration // accept a cached sample this old
}

// DefaultOptions mirrors the platform defaults used by the app.
func DefaultOptions() Options {
	return Options{HighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: time.Minute}
}

// Subscription is an active stream of samples.
type Subscription interface {
	Stop()
}

// Source is the platform position provider.
type Source interface {
	// Current performs a one-shot read.
	Current(ctx context.Context, opts Options) (model.LocationSample, error)

	// Watch streams samples to onSample until the subscription is stopped or
	// ctx is done. Stream errors go to onError.
	Watch(ctx context.Context, opts Options, onSample func(model.LocationSample), onError func(error)) (Subscription, error)

	// Permission reports the permission state, or PermissionUnknown when the
	// platform cannot answer without trying.
	Permission(ctx context.Context) (model.Permission, error)

	// RequestPermission asks the user for access.
	RequestPermission(ctx context.Context) (model.Permission, error)
}

// ResolvePermission queries the source and, when the answer is unknown,
// attempts a read and infers the state from its outcome.
func ResolvePermission(ctx context.Context, src Source, probeTimeout time.Duration) model.Permission {
	p, err := src.Permission(ctx)
	if err == nil && p != model.PermissionUnknown && p != "" {
		return p
	}

	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err = src.Current(pctx, Options{Timeout: probeTimeout, MaximumAge: 24 * time.Hour})
	switch {
	case err == nil:
		return model.PermissionGranted
	case errors.Is(err, ErrPermissionDenied):
		return model.PermissionDenied
	default:
		return model.PermissionPrompt
	}
}
