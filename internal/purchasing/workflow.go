// Package purchasing runs the purchase request workflow:
// New -> Ignored -> New, and New -> Purchased -> Done.
package purchasing

import (
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
)

type Status string

const (
	StatusNew       Status = "New"
	StatusIgnored   Status = "Ignored"
	StatusPurchased Status = "Purchased"
	StatusDone      Status = "Done"
)

type Action string

const (
	ActionIgnore   Action = "ignore"
	ActionUnignore Action = "unignore"
	ActionPurchase Action = "markAsPurchased"
	ActionDone     Action = "markAsDone"
)

// transitions maps each action to its only legal source and its target.
var transitions = map[Action]struct{ from, to Status }{
	ActionIgnore:   {StatusNew, StatusIgnored},
	ActionUnignore: {StatusIgnored, StatusNew},
	ActionPurchase: {StatusNew, StatusPurchased},
	ActionDone:     {StatusPurchased, StatusDone},
}

func (s Status) OrDefault() Status {
	if s == "" {
		return StatusNew
	}
	return s
}

func CanTransition(from Status, a Action) bool {
	t, ok := transitions[a]
	return ok && t.from == from.OrDefault()
}

// Next returns the status reached by a, or an InvalidTransitionError when from does not allow it.
func Next(id string, from Status, a Action) (Status, error) {
	if !CanTransition(from, a) {
		return "", &apperr.InvalidTransitionError{Entity: "PurchaseRequest", ID: id, Action: string(a), From: string(from.OrDefault())}
	}
	return transitions[a].to, nil
}

const dateLayout = "2006-01-02"

func validDate(field, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, v); err != nil {
		return apperr.Invalid(field, "expected YYYY-MM-DD")
	}
	return nil
}
