package model

import "time"

const (
	EntrySubmission = "submission"
	EntryOutcome    = "outcome"
)

// JournalEntry 流水文件中的一行，也用作数据库记录的 extras
type JournalEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Kind          string    `json:"kind"`
	ExecutionID   string    `json:"execution_id,omitempty"`
	Monitor       string    `json:"monitor,omitempty"`
	Symbol        string    `json:"symbol"`
	Side          Side      `json:"side,omitempty"`
	Level         *int      `json:"level,omitempty"`
	OrderID       string    `json:"order_id,omitempty"`
	ClientOrderID string    `json:"client_order_id,omitempty"`
	Price         string    `json:"price,omitempty"`
	Quantity      string    `json:"quantity,omitempty"`
	StopLoss      string    `json:"sl,omitempty"`
	TakeProfit    string    `json:"tp,omitempty"`
	Outcome       Outcome   `json:"outcome,omitempty"`
	Error         string    `json:"error,omitempty"`
	Retries       int       `json:"retries,omitempty"`
	Elapsed       string    `json:"elapsed,omitempty"`
}

func NewSubmissionEntry(executionID string, o SubmittedOrder) JournalEntry {
	level := o.Leg.Level
	e := JournalEntry{
		Timestamp:     o.SubmittedAt,
		Kind:          EntrySubmission,
		ExecutionID:   executionID,
		Symbol:        o.Leg.Symbol,
		Side:          o.Leg.Side,
		Level:         &level,
		OrderID:       o.VenueOrderID,
		ClientOrderID: o.ClientOrderID,
		Price:         o.Leg.LimitPrice.String(),
		Quantity:      o.Leg.Quantity.String(),
		StopLoss:      o.Leg.StopLossPrice.String(),
	}
	if o.Leg.TakeProfitPrice != nil {
		e.TakeProfit = o.Leg.TakeProfitPrice.String()
	}
	return e
}

func NewOutcomeEntry(res MonitorResult) JournalEntry {
	e := JournalEntry{
		Timestamp:   res.FinishedAt,
		Kind:        EntryOutcome,
		ExecutionID: res.ExecutionID,
		Monitor:     res.Monitor,
		Symbol:      res.Symbol,
		OrderID:     res.OrderID,
		Outcome:     res.Outcome,
		Retries:     res.Retries,
		Elapsed:     res.Elapsed.String(),
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	return e
}
