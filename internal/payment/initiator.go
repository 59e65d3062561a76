package payment

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/sokonet/hotspot-portal/internal/billing"
)

// Plan identifies a catalog entry chosen by the user. The catalog itself is
// rendered elsewhere; only the id matters here.
type Plan struct {
	ID   int64
	Name string
}

// Device carries the MikroTik context for one connecting client. RouterID is
// resolved by the router resolver before submission; zero means unresolved.
type Device struct {
	MAC      string
	IP       string
	RouterID int64
}

// SubmitClient is the slice of the billing client the initiator needs.
type SubmitClient interface {
	RegisterAndPay(ctx context.Context, req billing.PayRequest) (*billing.PayResponse, error)
}

// Initiator builds and submits one charge request and translates the answer
// into a correlation id or a typed failure. It holds no state between calls
// and never retries: a duplicate charge is worse than a resubmit prompt.
type Initiator struct {
	client SubmitClient
	log    *slog.Logger
}

// NewInitiator creates a payment initiator.
func NewInitiator(client SubmitClient, log *slog.Logger) *Initiator {
	return &Initiator{client: client, log: log}
}

// Submit validates preconditions, issues exactly one register-and-pay call
// and returns the correlation id used for status polling.
//
// Precondition failures (ErrInvalidPhone, ErrInvalidPlan, ErrRouterNotReady)
// are returned before any network traffic.
func (i *Initiator) Submit(ctx context.Context, phoneRaw string, plan Plan, device Device) (int64, error) {
	if !ValidPhone(phoneRaw) {
		return 0, ErrInvalidPhone
	}
	if plan.ID <= 0 {
		return 0, ErrInvalidPlan
	}
	if device.RouterID == 0 {
		return 0, ErrRouterNotReady
	}

	phone := NormalizePhone(phoneRaw)

	req := billing.PayRequest{
		Phone:         phone,
		PlanID:        plan.ID,
		MACAddress:    device.MAC,
		RouterID:      device.RouterID,
		PaymentMethod: "mobile_money",
	}

	i.log.Info("submitting payment",
		"phone", phone,
		"plan_id", plan.ID,
		"router_id", device.RouterID,
	)

	resp, err := i.client.RegisterAndPay(ctx, req)
	if err != nil {
		return 0, i.translate(err)
	}

	// The backend has shipped both field names for the correlation id.
	// customer_id is treated as canonical; falling back to id is logged so
	// the contract ambiguity stays visible.
	switch {
	case resp.CustomerID != nil:
		return *resp.CustomerID, nil
	case resp.ID != nil:
		i.log.Warn("payment response missing customer_id, using id",
			"id", *resp.ID,
		)
		return *resp.ID, nil
	default:
		return 0, ErrMissingCorrelationID
	}
}

func (i *Initiator) translate(err error) error {
	var statusErr *billing.StatusError
	if errors.As(err, &statusErr) {
		return &Rejected{Message: statusErr.Message}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ErrSubmitTimeout
	}

	return wrapNetwork(err)
}
