// Package provision creates a user, an organization and its first API key as one
// unit, undoing completed steps in reverse order when a later step fails.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeys/internal/models"
	"github.com/wolfeidau/orgkeys/internal/store"
	"github.com/wolfeidau/orgkeys/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/wolfeidau/orgkeys/internal/provision"

// State is a provisioning progress marker, logged on every transition.
type State string

const (
	StateStart          State = "START"
	StateUserEnsured    State = "USER_ENSURED"
	StateOrgCreated     State = "ORG_CREATED"
	StateCustomerIDSet  State = "CUSTOMER_ID_SET"
	StateKeyGenerated   State = "KEY_GENERATED"
	StateSuccess        State = "SUCCESS"
	StateCleanup        State = "CLEANUP"
	StateFailed         State = "FAILED"
	StateCriticalFailed State = "CRITICAL_FAILED"
)

// Records is the subset of the record store the orchestrator writes directly.
type Records interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, email string, passwordHash *string, isAdmin bool) (*models.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	SetCustomerID(ctx context.Context, orgID uuid.UUID, customerID string) error
}

// Credentials creates and removes organizations and their keys.
// credentials.Manager satisfies it.
type Credentials interface {
	CreateOrganization(ctx context.Context, name string, adminID uuid.UUID) (*models.Organization, error)
	DeleteOrganization(ctx context.Context, orgID, adminID uuid.UUID) error
	GenerateAPIKey(ctx context.Context, orgID uuid.UUID, name string) (*models.APIKeyFull, error)
	DeleteAPIKey(ctx context.Context, keyID uuid.UUID) error
}

// Config holds configuration for the orchestrator.
type Config struct {
	// CleanupTimeout bounds the whole compensation pass. It runs detached from the
	// caller's context so an expired request deadline still gets cleaned up.
	// Default: 30s
	CleanupTimeout time.Duration
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.CleanupTimeout == 0 {
		c.CleanupTimeout = 30 * time.Second
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.CleanupTimeout < 0 {
		return fmt.Errorf("cleanup timeout must not be negative")
	}
	return nil
}

// Orchestrator provisions tenants. It holds no state between calls and is safe
// for concurrent use, consistency across calls is left to the record store.
type Orchestrator struct {
	records Records
	creds   Credentials
	cfg     Config
	tracer  trace.Tracer
}

// NewOrchestrator creates an orchestrator over the given collaborators.
func NewOrchestrator(records Records, creds Credentials, cfg Config) (*Orchestrator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provision config: %w", err)
	}

	return &Orchestrator{
		records: records,
		creds:   creds,
		cfg:     cfg,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// compensation undoes one completed step.
type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// run tracks a single Provision call.
type run struct {
	logger zerolog.Logger
	span   trace.Span
	state  State
	undo   []compensation
}

func (r *run) transition(state State) {
	r.state = state
	r.span.AddEvent(string(state))
	r.logger.Debug().Str("state", string(state)).Msg("Provisioning state changed")
}

func (r *run) push(step string, undo func(ctx context.Context) error) {
	r.undo = append(r.undo, compensation{step: step, undo: undo})
}

// Provision runs: ensure user, create organization, set customer id when given,
// generate an API key. If any step fails the completed steps are undone newest
// first. The returned error is a *Error wrapping ErrRolledBack when every undo
// succeeded, or ErrCriticalInconsistency when at least one did not.
// Invalid requests return ErrValidation without touching the store.
func (o *Orchestrator) Provision(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	metrics := telemetry.GetMetrics()

	if err := req.Validate(); err != nil {
		recordOutcome(ctx, metrics, "validation", started)
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "provision.Provision",
		trace.WithAttributes(attribute.Bool("customer_id.present", req.CustomerID != "")))
	defer span.End()

	r := &run{
		logger: log.With().Str("organization_name", req.OrganizationName).Logger(),
		span:   span,
	}
	r.transition(StateStart)

	result, step, err := o.execute(ctx, r, req)
	if err == nil {
		r.transition(StateSuccess)
		recordOutcome(ctx, metrics, "success", started)
		r.logger.Info().
			Str("key_id", result.APIKey.KeyID.String()).
			Msg("Provisioned organization")
		return result, nil
	}

	metrics.ProvisionStepFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
	span.RecordError(err)
	r.logger.Warn().Err(err).Str("step", step).Str("state", string(r.state)).Msg("Provisioning step failed, cleaning up")

	r.transition(StateCleanup)
	cleanupErr := o.compensate(ctx, r)

	perr := newError(err, cleanupErr)
	span.SetStatus(codes.Error, perr.Message)

	if perr.Critical() {
		r.transition(StateCriticalFailed)
		recordOutcome(ctx, metrics, "critical", started)
		r.logger.Error().
			Err(err).
			AnErr("cleanup_error", cleanupErr).
			Str("step", step).
			Msg("Provisioning failed and cleanup was unsuccessful, manual intervention required")
		return nil, perr
	}

	r.transition(StateFailed)
	recordOutcome(ctx, metrics, "rolled_back", started)

	return nil, perr
}

// execute runs the steps in order, returning the name of the failed step on error.
func (o *Orchestrator) execute(ctx context.Context, r *run, req Request) (*Result, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "ensure_user", err
	}

	user, created, err := o.ensureUser(ctx, req.Email)
	if err != nil {
		return nil, "ensure_user", err
	}
	if created {
		r.push("delete_user", func(ctx context.Context) error {
			return o.records.DeleteUser(ctx, user.UserID)
		})
	}
	r.logger = r.logger.With().Str("user_id", user.UserID.String()).Bool("user_created", created).Logger()
	r.transition(StateUserEnsured)

	if err := ctx.Err(); err != nil {
		return nil, "create_organization", err
	}

	org, err := o.creds.CreateOrganization(ctx, req.OrganizationName, user.UserID)
	if err != nil {
		return nil, "create_organization", err
	}
	r.push("delete_organization", func(ctx context.Context) error {
		return o.creds.DeleteOrganization(ctx, org.OrgID, user.UserID)
	})
	r.logger = r.logger.With().Str("org_id", org.OrgID.String()).Logger()
	r.transition(StateOrgCreated)

	var customerID *string
	if req.CustomerID != "" {
		if err := ctx.Err(); err != nil {
			return nil, "set_customer_id", err
		}

		if err := o.records.SetCustomerID(ctx, org.OrgID, req.CustomerID); err != nil {
			return nil, "set_customer_id", err
		}
		customerID = &req.CustomerID
		r.transition(StateCustomerIDSet)
	}

	if err := ctx.Err(); err != nil {
		return nil, "generate_api_key", err
	}

	key, err := o.creds.GenerateAPIKey(ctx, org.OrgID, req.APIKeyName)
	if err != nil {
		return nil, "generate_api_key", err
	}
	r.push("delete_api_key", func(ctx context.Context) error {
		return o.creds.DeleteAPIKey(ctx, key.KeyID)
	})
	r.transition(StateKeyGenerated)

	return &Result{
		APIKey:         *key,
		OrganizationID: org.OrgID,
		UserID:         user.UserID,
		CustomerID:     customerID,
	}, "", nil
}

// ensureUser returns the user for email and whether this call created it.
// A duplicate create means a concurrent call won the race, that user is reused.
func (o *Orchestrator) ensureUser(ctx context.Context, email string) (*models.User, bool, error) {
	user, err := o.records.GetUserByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	user, err = o.records.CreateUser(ctx, email, nil, false)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, store.ErrUserAlreadyExists) {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	user, err = o.records.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up user after concurrent create: %w", err)
	}

	return user, false, nil
}

// compensate pops and runs every recorded undo, newest first, and joins their failures.
func (o *Orchestrator) compensate(ctx context.Context, r *run) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.CleanupTimeout)
	defer cancel()

	metrics := telemetry.GetMetrics()

	var errs []error
	for i := len(r.undo) - 1; i >= 0; i-- {
		c := r.undo[i]

		err := c.undo(ctx)
		result := "ok"
		if err != nil {
			result = "failed"
			errs = append(errs, fmt.Errorf("%s: %w", c.step, err))
			r.logger.Error().Err(err).Str("step", c.step).Msg("Cleanup step failed")
		} else {
			r.logger.Debug().Str("step", c.step).Msg("Cleanup step completed")
		}

		metrics.CompensationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("step", c.step),
			attribute.String("result", result),
		))
	}
	r.undo = nil

	return errors.Join(errs...)
}

func recordOutcome(ctx context.Context, metrics *telemetry.Metrics, outcome string, started time.Time) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	metrics.ProvisionTotal.Add(ctx, 1, attrs)
	metrics.ProvisionDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)
}
