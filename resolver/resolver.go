package resolver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"matchgate/backend"
	"matchgate/fault"
)

// Config carries the resolution policies. Zero values are filled with the
// defaults below by New.
type Config struct {
	// Environment is the logical build-alias name servers are allocated
	// from (e.g. "production").
	Environment string
	// MinTicketAge is the minimum-age guard: a still-matching ticket
	// younger than this is rejected with TooEarly instead of triggering
	// allocation.
	MinTicketAge time.Duration
	// PollAttempts and PollInterval bound the wait for a freshly
	// allocated server to become reachable.
	PollAttempts int
	PollInterval time.Duration
	// PreferredRegions is passed through to the backend's allocation
	// call; empty lets the backend choose.
	PreferredRegions []string
}

const (
	DefaultMinTicketAge = 30 * time.Second
	DefaultPollAttempts = 10
	DefaultPollInterval = time.Second
)

// Resolved is a usable (host, port) pair for one match, ready for the
// request transformer.
type Resolved struct {
	Host string
	Port int
}

// Resolver turns a match identifier into a reachable server endpoint,
// allocating a new server through the backend when the ticket state calls
// for it.
type Resolver struct {
	client backend.Client
	cfg    Config
	port   PortPolicy
	sleep  sleepFunc
	now    func() time.Time
}

func New(client backend.Client, cfg Config) *Resolver {
	if cfg.MinTicketAge <= 0 {
		cfg.MinTicketAge = DefaultMinTicketAge
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultPollAttempts
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Resolver{
		client: client,
		cfg:    cfg,
		port:   FirstPort,
		sleep:  sleepWithContext,
		now:    time.Now,
	}
}

// WithPortPolicy swaps the port selection policy.
func (r *Resolver) WithPortPolicy(p PortPolicy) *Resolver {
	r.port = p
	return r
}

func (r *Resolver) resolved(ep backend.Endpoint) (Resolved, error) {
	p, err := r.port(ep.Ports)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Host: ep.FQDN, Port: p.Number}, nil
}

// ResolveDirect looks up the server for an already-allocated match.
// NotFound is terminal: allocation is the ticket-aware path's job.
func (r *Resolver) ResolveDirect(ctx context.Context, matchID uuid.UUID, queue string) (Resolved, error) {
	ep, err := r.client.GetMatchDetails(ctx, matchID, queue)
	if err != nil {
		return Resolved{}, err
	}
	return r.resolved(ep)
}

// ResolveViaTicket drives the full ticket-aware resolution: fetch the
// ticket, verify the caller is a member, then either look the server up
// directly or cancel the ticket and allocate a fresh server. The step
// order is strict; cancellation must complete before allocation so
// matchmaking cannot re-match the ticket concurrently.
func (r *Resolver) ResolveViaTicket(ctx context.Context, matchID uuid.UUID, queue, ticketID, playerID string) (Resolved, error) {
	ticket, err := r.client.GetTicket(ctx, ticketID, queue)
	if err != nil {
		return Resolved{}, err
	}

	if !ticket.HasMember(playerID) {
		return Resolved{}, fault.New(fault.NotFound, "player %s is not a member of ticket %s", playerID, ticketID)
	}

	switch ticket.Status {
	case backend.StatusWaitingForServer, backend.StatusMatched:
		// A server is expected to exist already.
		return r.ResolveDirect(ctx, matchID, queue)

	case backend.StatusWaitingForMatch, backend.StatusWaitingForPlayers:
		return r.allocate(ctx, matchID, queue, ticket)

	default:
		log.Error().Str("ticketId", ticketID).Str("status", string(ticket.Status)).Msg("resolver: unknown ticket status; backend contract may have changed")
		return Resolved{}, fault.New(fault.InvalidState, "ticket %s has unexpected status %q", ticketID, ticket.Status)
	}
}

// allocate cancels a still-matching ticket and provisions a server for the
// match, then waits for it to come up.
func (r *Resolver) allocate(ctx context.Context, matchID uuid.UUID, queue string, ticket *backend.Ticket) (Resolved, error) {
	if age := r.now().Sub(ticket.Created); age < r.cfg.MinTicketAge {
		return Resolved{}, fault.New(fault.TooEarly, "ticket %s is %s old, below the %s allocation threshold", ticket.ID, age.Truncate(time.Second), r.cfg.MinTicketAge)
	}

	// Cancel before allocating; an unknown cancellation state must not
	// race a manual allocation.
	canceled, err := r.client.CancelTicket(ctx, ticket.ID, queue)
	if err != nil {
		return Resolved{}, err
	}
	if !canceled {
		return Resolved{}, fault.New(fault.Backend, "CancelTicket: backend did not cancel ticket %s", ticket.ID)
	}

	aliasID, err := r.client.ListAliasForEnvironment(ctx, r.cfg.Environment)
	if err != nil {
		return Resolved{}, err
	}

	log.Info().Str("matchId", matchID.String()).Str("queue", queue).Str("aliasId", aliasID).Msg("resolver: allocating server")
	if _, err := r.client.AllocateServer(ctx, aliasID, matchID, r.cfg.PreferredRegions); err != nil {
		return Resolved{}, err
	}

	// The allocation response is provisional; wait until the server
	// actually reports Active.
	ep, err := r.WaitForReady(ctx, matchID)
	if err != nil {
		return Resolved{}, err
	}
	return r.resolved(ep)
}
