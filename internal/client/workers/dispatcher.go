package workers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/noodlevault/noodlevault/internal/client/extension"
	"github.com/noodlevault/noodlevault/internal/client/models"
	"github.com/noodlevault/noodlevault/internal/logging"
	"github.com/noodlevault/noodlevault/internal/netx"
)

// CredentialLookup resolves a stored credential by website key.
type CredentialLookup interface {
	Get(ctx context.Context, website string) (models.Credential, error)
}

// Dispatcher answers extension credential requests. Each request carries a
// page URL; the reply is the credential pair for its registrable domain
// followed by the terminator, or a bare terminator when the lookup fails.
// One client's malformed request never stalls the others.
type Dispatcher struct {
	channel  extension.Channel
	creds    CredentialLookup
	interval time.Duration
	log      logging.Logger
}

func NewDispatcher(channel extension.Channel, creds CredentialLookup, interval time.Duration, log logging.Logger) *Dispatcher {
	return &Dispatcher{channel: channel, creds: creds, interval: interval, log: log}
}

func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.interval):
		}
		d.cycle(ctx)
	}
}

func (d *Dispatcher) cycle(ctx context.Context) {
	for _, cli := range d.channel.Clients() {
		msg, ok := cli.Receive()
		if !ok {
			continue
		}
		d.handle(ctx, cli, msg)
	}
}

type extensionRequest struct {
	URL string `json:"url"`
}

type extensionResponse struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d *Dispatcher) handle(ctx context.Context, cli extension.Client, msg []byte) {
	// The terminator always goes out, so the extension never hangs on a
	// failed lookup.
	defer func() {
		if err := cli.Send(extension.Terminator); err != nil {
			d.log.Warn(ctx, "sending terminator", "client", cli.ID(), "error", err)
		}
	}()

	var req extensionRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		d.log.Warn(ctx, "malformed extension request", "client", cli.ID(), "error", err)
		return
	}

	domain, err := netx.RegistrableDomain(req.URL)
	if err != nil {
		d.log.Warn(ctx, "unparseable request url", "client", cli.ID(), "error", err)
		return
	}

	cred, err := d.creds.Get(ctx, domain)
	if err != nil {
		d.log.Info(ctx, "no credentials for domain", "client", cli.ID(), "domain", domain, "error", err)
		return
	}

	payload, err := json.Marshal(extensionResponse{Username: cred.Username, Password: cred.Password})
	if err != nil {
		d.log.Error(ctx, "encoding extension response", "client", cli.ID(), "error", err)
		return
	}
	if err := cli.Send(payload); err != nil {
		d.log.Warn(ctx, "sending extension response", "client", cli.ID(), "error", err)
	}
}
