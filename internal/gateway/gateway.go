// Package gateway is the composition root of the data-integrity and
// external-sync layer. Writes pass through ownership check, validation and
// sanitization before persistence; provider calls pass through the rate
// limiter, the retrying client and usage accounting.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/finwell/finance-gateway/internal/models"
	"github.com/finwell/finance-gateway/internal/monitor"
	"github.com/finwell/finance-gateway/internal/provider"
	"github.com/finwell/finance-gateway/internal/sanitize"
	"github.com/finwell/finance-gateway/internal/usage"
	"github.com/finwell/finance-gateway/internal/validate"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Entity types accepted by ValidateAndSanitize.
const (
	EntityTransaction = "transaction"
	EntityAccount     = "account"
	EntityUser        = "user"
)

// AuditLog receives best-effort security events.
type AuditLog interface {
	AppendSecurityEvent(ev models.SecurityEvent) error
}

// Gateway wires the validation, sanitization, rate limiting, provider and
// usage components in order.
type Gateway struct {
	validator *validate.Validator
	client    *provider.Client
	tracker   *usage.Tracker
	monitor   *monitor.Monitor
	audit     AuditLog
	log       *logrus.Logger
}

// New constructs a Gateway. All collaborators are required except mon,
// which may be nil to disable suspicious-activity checks.
func New(validator *validate.Validator, client *provider.Client, tracker *usage.Tracker, mon *monitor.Monitor, audit AuditLog, log *logrus.Logger) *Gateway {
	return &Gateway{
		validator: validator,
		client:    client,
		tracker:   tracker,
		monitor:   mon,
		audit:     audit,
		log:       log,
	}
}

// ValidateAndSanitize runs a candidate write through the integrity
// pipeline: ownership check, entity validation with aggregated violations,
// then canonicalization. It returns the canonical record ready for
// persistence, or one of ErrUnauthorized, ErrInvalidDataType or a
// *ValidationError. The record is never partially applied.
func (g *Gateway) ValidateAndSanitize(ctx context.Context, data any, entityType, actorID string) (any, error) {
	switch entityType {
	case EntityTransaction:
		in, ok := data.(*models.TransactionInput)
		if !ok {
			return nil, fmt.Errorf("%w: %s payload has type %T", ErrInvalidDataType, entityType, data)
		}
		if err := g.checkOwnership(in.UserID, actorID, entityType); err != nil {
			return nil, err
		}
		if err := g.checkResult(g.validator.Transaction(in), entityType, actorID); err != nil {
			return nil, err
		}
		canonical, warnings := sanitize.Transaction(in, actorID)
		g.logWarnings(actorID, entityType, warnings)
		g.observeWrite(actorID, entityType, monitor.Activity{
			Amount:   canonical.Amount,
			Category: canonical.Category,
			Date:     canonical.Date,
		})
		return canonical, nil

	case EntityAccount:
		in, ok := data.(*models.AccountInput)
		if !ok {
			return nil, fmt.Errorf("%w: %s payload has type %T", ErrInvalidDataType, entityType, data)
		}
		if err := g.checkOwnership(in.UserID, actorID, entityType); err != nil {
			return nil, err
		}
		if err := g.checkResult(g.validator.Account(in), entityType, actorID); err != nil {
			return nil, err
		}
		canonical, warnings := sanitize.Account(in, actorID)
		g.logWarnings(actorID, entityType, warnings)
		g.observeWrite(actorID, entityType, monitor.Activity{Amount: canonical.Balance})
		return canonical, nil

	case EntityUser:
		in, ok := data.(*models.UserInput)
		if !ok {
			return nil, fmt.Errorf("%w: %s payload has type %T", ErrInvalidDataType, entityType, data)
		}
		if err := g.checkOwnership(in.UserID, actorID, entityType); err != nil {
			return nil, err
		}
		if err := g.checkResult(g.validator.User(in), entityType, actorID); err != nil {
			return nil, err
		}
		canonical, warnings := sanitize.User(in, actorID)
		g.logWarnings(actorID, entityType, warnings)
		g.observeWrite(actorID, entityType, monitor.Activity{})
		return canonical, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDataType, entityType)
	}
}

// checkOwnership rejects records whose ownership field names someone other
// than the actor. An empty field inherits the actor during sanitization.
func (g *Gateway) checkOwnership(owner, actorID, entityType string) error {
	if owner == "" || owner == actorID {
		return nil
	}
	g.emitEvent(actorID, models.EventUnauthorized, map[string]string{
		"entity_type": entityType,
		"owner":       owner,
	})
	return ErrUnauthorized
}

// checkResult converts a validation result into the aggregated error and
// audit entry, and logs any warnings.
func (g *Gateway) checkResult(res validate.Result, entityType, actorID string) error {
	g.logWarnings(actorID, entityType, res.Warnings)
	if res.OK() {
		return nil
	}
	g.emitEvent(actorID, models.EventValidationFailed, map[string]string{
		"entity_type": entityType,
		"violations":  fmt.Sprintf("%d", len(res.Violations)),
	})
	return &ValidationError{Violations: res.Violations}
}

func (g *Gateway) logWarnings(actorID, entityType string, warnings []string) {
	for _, w := range warnings {
		g.log.WithFields(logrus.Fields{
			"user_id":     actorID,
			"entity_type": entityType,
		}).Warn(w)
	}
}

// observeWrite runs the suspicious-activity heuristics. Flagging never
// blocks the write.
func (g *Gateway) observeWrite(actorID, entityType string, act monitor.Activity) {
	if g.monitor == nil {
		return
	}
	g.monitor.IsSuspicious(actorID, "create_"+entityType, act)
}

// emitEvent writes an audit entry in a detached task. Failure is reported
// to the log and never joins the primary result path.
func (g *Gateway) emitEvent(actorID, eventType string, detail map[string]string) {
	ev := models.SecurityEvent{
		ID:        uuid.NewString(),
		UserID:    actorID,
		EventType: eventType,
		Timestamp: time.Now(),
		Detail:    detail,
	}
	go func() {
		if err := g.audit.AppendSecurityEvent(ev); err != nil {
			g.log.WithError(err).WithField("event_type", eventType).Warn("security event write failed")
		}
	}()
}
