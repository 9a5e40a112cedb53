package backend

import (
	"time"
)

// Credential is the entity token used to authenticate backend API calls.
// A single shared instance lives in the TokenManager and is replaced
// wholesale on refresh, never mutated in place.
type Credential struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Valid reports whether the credential can still be used at the given time.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && c.Expires.After(now)
}

// TicketStatus is the matchmaking backend's status enum for a ticket.
// Anything outside the named values is treated as a contract change and
// rejected, not forwarded.
type TicketStatus string

const (
	StatusWaitingForMatch   TicketStatus = "WaitingForMatch"
	StatusWaitingForPlayers TicketStatus = "WaitingForPlayers"
	StatusWaitingForServer  TicketStatus = "WaitingForServer"
	StatusMatched           TicketStatus = "Matched"
	StatusCanceled          TicketStatus = "Canceled"
)

// Ticket is the backend's record of a pending match request. Read-only
// from the gateway's perspective except for cancellation.
type Ticket struct {
	ID        string       `json:"ticketId"`
	QueueName string       `json:"queueName"`
	Created   time.Time    `json:"created"`
	Status    TicketStatus `json:"status"`
	Members   []string     `json:"members"`
}

// HasMember reports whether entityID is a party to the ticket.
func (t *Ticket) HasMember(entityID string) bool {
	for _, m := range t.Members {
		if m == entityID {
			return true
		}
	}
	return false
}

// BuildAlias maps a logical environment name to the concrete alias the
// backend allocates server images by.
type BuildAlias struct {
	AliasID   string `json:"aliasId"`
	AliasName string `json:"aliasName"`
}

// Port is one exposed port on a game server, with its logical name.
type Port struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
}

// Endpoint is a resolved game server address: FQDN plus the backend's
// ordered list of exposed ports. Reducing it to one usable port is the
// resolver's port policy, not this package's concern.
type Endpoint struct {
	FQDN  string `json:"fqdn"`
	Ports []Port `json:"ports"`
}

// ServerState is the backend's provisioning state for an allocated server.
type ServerState string

const (
	StateProvisioning ServerState = "Provisioning"
	StateStandingBy   ServerState = "StandingBy"
	StateActive       ServerState = "Active"
	StateTerminating  ServerState = "Terminating"
)

// ServerDetails is a point-in-time view of an allocated server: its
// provisioning state and, once known, its address.
type ServerDetails struct {
	State ServerState `json:"state"`
	FQDN  string      `json:"fqdn"`
	Ports []Port      `json:"ports"`
}

// Endpoint returns the address portion of the details.
func (d ServerDetails) Endpoint() Endpoint {
	return Endpoint{FQDN: d.FQDN, Ports: d.Ports}
}
