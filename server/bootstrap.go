package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/lms-quiz-gate/content"
	"github.com/jrsteele09/lms-quiz-gate/gate"
	"github.com/jrsteele09/lms-quiz-gate/handshake"
	"github.com/jrsteele09/lms-quiz-gate/handshake/authflowrepo"
	"github.com/jrsteele09/lms-quiz-gate/idp"
	"github.com/jrsteele09/lms-quiz-gate/internal/config"
	"github.com/jrsteele09/lms-quiz-gate/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// janitorInterval is how often expired in-memory sessions and abandoned
// logins are swept.
const janitorInterval = time.Minute

// Dependencies are the components the Server is built from.
type Dependencies struct {
	Gate         gate.AccessGate
	Handshake    *handshake.Controller
	Store        sessions.Store
	Cookies      *sessions.CookieSigner
	Content      *content.Service
	HealthChecks map[string]HealthCheck

	janitors []func(ctx context.Context) error
	closers  []func() error
}

// Bootstrap wires the configured strategy and its storage backend.
func Bootstrap(ctx context.Context, c config.Config) (*Dependencies, error) {
	log.Info().Msg("Bootstrap: checking system configuration")

	quiz, err := content.New()
	if err != nil {
		return nil, fmt.Errorf("[server Bootstrap] load quiz content: %w", err)
	}

	provider, err := idp.NewFromConfig(c)
	if err != nil {
		return nil, fmt.Errorf("[server Bootstrap] identity provider client: %w", err)
	}

	deps := &Dependencies{
		Content:      quiz,
		HealthChecks: map[string]HealthCheck{},
	}

	if c.GetGateStrategy() == config.StrategySession {
		if err := deps.bootstrapSessions(ctx, c, provider); err != nil {
			_ = deps.Close()
			return nil, err
		}
	}

	deps.Gate, err = gate.New(gate.Options{
		Strategy:         c.GetGateStrategy(),
		CookieName:       c.GetSessionCookieName(),
		Cookies:          deps.Cookies,
		Store:            deps.Store,
		Provider:         provider,
		RequiredCourseID: c.GetRequiredCourseID(),
	})
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("[server Bootstrap] access gate: %w", err)
	}

	event := log.Info().
		Str("strategy", c.GetGateStrategy()).
		Str("school", c.GetSchoolURL()).
		Int("questions", quiz.QuestionCount()).
		Int("flashcards", quiz.FlashcardCount())
	if c.EnrollmentRequired() {
		event = event.Str("required_course", c.GetRequiredCourseID())
	}
	if c.GetGateStrategy() == config.StrategySession {
		event = event.Str("session_backend", c.GetSessionBackend())
	}
	event.Msg("Bootstrap complete")

	return deps, nil
}

func (d *Dependencies) bootstrapSessions(ctx context.Context, c config.Config, provider *idp.Client) error {
	cookies, err := sessions.NewCookieSigner(c.GetSessionSecret())
	if err != nil {
		return fmt.Errorf("[server Bootstrap] cookie signer: %w", err)
	}
	d.Cookies = cookies

	var flows authflowrepo.Repo
	switch c.GetSessionBackend() {
	case config.SessionBackendRedis:
		client, err := sessions.NewRedisClient(ctx, c.GetRedisURL())
		if err != nil {
			return fmt.Errorf("[server Bootstrap] session backend: %w", err)
		}
		d.closers = append(d.closers, client.Close)

		store := sessions.NewRedisStore(client, sessions.WithDefaultMaxAge(c.GetMaxSessionAge()))
		d.Store = store
		d.HealthChecks["redis"] = store.Health
		flows = authflowrepo.NewRedisRepo(client, c.GetAuthFlowTimeout())
	default:
		store := sessions.NewInMemoryStore()
		d.Store = store
		d.janitors = append(d.janitors, func(ctx context.Context) error {
			return store.RunJanitor(ctx, janitorInterval)
		})

		repo := authflowrepo.NewInMemoryRepo(c.GetAuthFlowTimeout())
		flows = repo
		d.janitors = append(d.janitors, func(ctx context.Context) error {
			return every(ctx, janitorInterval, func() { repo.EvictExpired() })
		})
	}

	d.Handshake, err = handshake.NewController(handshake.Options{
		Provider:      provider,
		Store:         d.Store,
		Flows:         flows,
		FetchProfile:  c.GetFetchProfile(),
		MaxSessionAge: c.GetMaxSessionAge(),
	})
	if err != nil {
		return fmt.Errorf("[server Bootstrap] handshake: %w", err)
	}
	return nil
}

// RunJanitors blocks until ctx is done, sweeping process-local state.
func (d *Dependencies) RunJanitors(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, janitor := range d.janitors {
		g.Go(func() error { return janitor(ctx) })
	}
	return g.Wait()
}

// Close releases backend connections.
func (d *Dependencies) Close() error {
	var errs []error
	for _, closeFn := range d.closers {
		errs = append(errs, closeFn())
	}
	d.closers = nil
	return errors.Join(errs...)
}

func every(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}
