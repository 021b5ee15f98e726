package domain

// Trade is one open or closed position reported by the trading backend.
// CloseDate and CloseRate are nil while the trade is open.
type Trade struct {
	Pair          string     `json:"pair"`
	ProfitRatio   float64    `json:"profit_ratio"`
	ProfitAbs     float64    `json:"profit_abs"`
	OpenDate      Timestamp  `json:"open_date"`
	CloseDate     *Timestamp `json:"close_date"`
	OpenRate      float64    `json:"open_rate"`
	CloseRate     *float64   `json:"close_rate"`
	Amount        float64    `json:"amount"`
	StakeAmount   float64    `json:"stake_amount"`
	TradeDuration *float64   `json:"trade_duration"`
	IsOpen        bool       `json:"is_open"`
}

// HasClose reports whether both close fields are present.
func (t *Trade) HasClose() bool {
	return t.CloseDate != nil && !t.CloseDate.IsZero() && t.CloseRate != nil
}

// Strategy is a backend-resident trading algorithm that can be started.
type Strategy struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Status is the backend's run state. The string is opaque and shown as-is.
type Status struct {
	Status string `json:"status"`
}

// StartRequest is the body of POST /start.
type StartRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description *string        `json:"description,omitempty"`
	Config      map[string]any `json:"config" binding:"required"`
}

// MessageResponse is the generic acknowledgement returned by command endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}
