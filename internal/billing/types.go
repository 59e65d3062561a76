package billing

// PayRequest is the body of POST /hotspot/register-and-pay.
type PayRequest struct {
	Phone         string `json:"phone"`
	PlanID        int64  `json:"plan_id"`
	MACAddress    string `json:"mac_address"`
	RouterID      int64  `json:"router_id"`
	PaymentMethod string `json:"payment_method"`
}

// PayResponse is the 2xx body of register-and-pay. The backend has shipped
// both customer_id and id as the correlation field across revisions, so both
// are decoded; which one wins is decided by the caller.
type PayResponse struct {
	CustomerID *int64 `json:"customer_id,omitempty"`
	ID         *int64 `json:"id,omitempty"`
}

// StatusResponse is the body of GET /hotspot/payment-status/{id}.
// Only status == "active" signals success.
type StatusResponse struct {
	Status   string `json:"status"`
	PlanName string `json:"plan_name,omitempty"`
	Expiry   string `json:"expiry,omitempty"`
	Message  string `json:"message,omitempty"`
}

// RouterResponse is the body of the router-identity lookup.
type RouterResponse struct {
	ID int64 `json:"id"`
}

// Plan is one entry of the plan catalog. Fields the portal page renders
// (speed, duration, price) travel in the raw body the proxy passes through.
type Plan struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// apiError is the failure body of any endpoint: {message} or {error}.
type apiError struct {
	Message string `json:"message,omitempty"`
	Err     string `json:"error,omitempty"`
}

func (e apiError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err
}
